package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.cause = err
	return b
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithRetry sets the retry strategy.
func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.retry = strategy
	return b
}

// WithCause sets the wrapped error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// WithContextMap adds multiple context values.
func (b *ErrorBuilder) WithContextMap(ctx ErrorContext) *ErrorBuilder {
	b.context = b.context.Merge(ctx)
	return b
}

// WithPath records the document path the error belongs to.
func (b *ErrorBuilder) WithPath(path string) *ErrorBuilder {
	return b.WithContext(ContextPath, path)
}

// WithKind records the fine-grained failure kind (e.g. "dangling_footnote").
func (b *ErrorBuilder) WithKind(kind string) *ErrorBuilder {
	return b.WithContext(ContextKind, kind)
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Retryable sets the retry strategy to immediate.
func (b *ErrorBuilder) Retryable() *ErrorBuilder {
	return b.WithRetry(RetryImmediate)
}

// UserAction marks the error as requiring a content or config fix.
func (b *ErrorBuilder) UserAction() *ErrorBuilder {
	return b.WithRetry(RetryUserAction)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		retry:    b.retry,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// LoadError creates an I/O failure for a single document.
func LoadError(message string) *ErrorBuilder {
	return NewError(CategoryLoad, message).Retryable()
}

// ParseError creates a front matter decoding failure.
func ParseError(message string) *ErrorBuilder {
	return NewError(CategoryParse, message).UserAction()
}

// RenderError creates a Markdown rendering failure.
func RenderError(message string) *ErrorBuilder {
	return NewError(CategoryRender, message).UserAction()
}

// ConfigError creates a configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

// FileSystemError creates a filesystem error.
func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message).Retryable()
}

// PublishError creates an error raised while writing the rendered site.
func PublishError(message string) *ErrorBuilder {
	return NewError(CategoryPublish, message).Fatal()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
