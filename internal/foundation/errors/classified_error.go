package errors

import (
	stderrors "errors"
	"fmt"
)

// ClassifiedError represents a structured error with category, severity, and context.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// Error implements the standard error interface.
func (e *ClassifiedError) Error() string {
	prefix := fmt.Sprintf("[%s:%s]", e.category, e.severity)
	if path, ok := e.context.GetString(ContextPath); ok && path != "" {
		prefix += " " + path + ":"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.message)
}

// Unwrap implements Go 1.13+ error unwrapping.
func (e *ClassifiedError) Unwrap() error {
	return e.cause
}

// Category returns the error category.
func (e *ClassifiedError) Category() ErrorCategory {
	return e.category
}

// Severity returns the error severity.
func (e *ClassifiedError) Severity() ErrorSeverity {
	return e.severity
}

// RetryStrategy returns the recommended retry strategy.
func (e *ClassifiedError) RetryStrategy() RetryStrategy {
	return e.retry
}

// Message returns the error message.
func (e *ClassifiedError) Message() string {
	return e.message
}

// Cause returns the underlying error.
func (e *ClassifiedError) Cause() error {
	return e.cause
}

// Context returns the error context.
func (e *ClassifiedError) Context() ErrorContext {
	return e.context
}

// Path returns the document path recorded in the context, if any.
func (e *ClassifiedError) Path() string {
	p, _ := e.context.GetString(ContextPath)
	return p
}

// Kind returns the fine-grained failure kind recorded in the context, if any.
func (e *ClassifiedError) Kind() string {
	k, _ := e.context.GetString(ContextKind)
	return k
}

// Line returns the 1-based source line recorded in the context, or 0.
func (e *ClassifiedError) Line() int {
	if v, ok := e.context.Get(ContextLine); ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return 0
}

// WithContext adds context to the error and returns a new error.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	return e.WithContextMap(ErrorContext{key: value})
}

// WithContextMap adds multiple context values and returns a new error.
func (e *ClassifiedError) WithContextMap(ctx ErrorContext) *ClassifiedError {
	return &ClassifiedError{
		category: e.category,
		severity: e.severity,
		retry:    e.retry,
		message:  e.message,
		cause:    e.cause,
		context:  e.context.Merge(ctx),
	}
}

// Is implements error comparison for Go 1.13+ error handling.
func (e *ClassifiedError) Is(target error) bool {
	if other, ok := target.(*ClassifiedError); ok {
		return e.category == other.category && e.message == other.message
	}
	return false
}

// IsCategory checks if the error belongs to a specific category.
func (e *ClassifiedError) IsCategory(category ErrorCategory) bool {
	return e.category == category
}

// IsSeverity checks if the error has a specific severity.
func (e *ClassifiedError) IsSeverity(severity ErrorSeverity) bool {
	return e.severity == severity
}

// CanRetry checks if the error allows retry operations.
func (e *ClassifiedError) CanRetry() bool {
	return e.retry == RetryImmediate
}

// IsFatal checks if the error is fatal (should stop the whole build).
func (e *ClassifiedError) IsFatal() bool {
	return e.severity == SeverityFatal
}

// IsDocumentScoped reports whether the error belongs to a single document and
// must not affect the rest of the batch.
func (e *ClassifiedError) IsDocumentScoped() bool {
	switch e.category {
	case CategoryLoad, CategoryParse, CategoryRender:
		return true
	default:
		return false
	}
}

// IsClassified checks if an error is a ClassifiedError.
func IsClassified(err error) bool {
	_, ok := AsClassified(err)
	return ok
}

// AsClassified finds the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// HasCategory checks if any error in the chain belongs to a category.
func HasCategory(err error, category ErrorCategory) bool {
	if classified, ok := AsClassified(err); ok {
		return classified.IsCategory(category)
	}
	return false
}

// HasSeverity checks if any error in the chain has a specific severity.
func HasSeverity(err error, severity ErrorSeverity) bool {
	if classified, ok := AsClassified(err); ok {
		return classified.IsSeverity(severity)
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal.
func GetCategory(err error) ErrorCategory {
	if classified, ok := AsClassified(err); ok {
		return classified.Category()
	}
	return CategoryInternal
}

// GetSeverity extracts the severity from an error, or returns SeverityError.
func GetSeverity(err error) ErrorSeverity {
	if classified, ok := AsClassified(err); ok {
		return classified.Severity()
	}
	return SeverityError
}
