package errors

import "maps"

// ErrorCategory represents the pipeline stage or subsystem an error belongs to.
type ErrorCategory string

const (
	// CategoryLoad, CategoryParse and CategoryRender are per-document failures.
	// They are collected into the batch report and never abort other documents.
	CategoryLoad   ErrorCategory = "load"
	CategoryParse  ErrorCategory = "parse"
	CategoryRender ErrorCategory = "render"

	// CategoryConfig represents user-facing configuration and input errors.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryPublish    ErrorCategory = "publish"

	CategoryCanceled ErrorCategory = "canceled"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the whole build
	SeverityError   ErrorSeverity = "error"   // Fails the current document
	SeverityWarning ErrorSeverity = "warning" // Page is still produced
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy indicates whether repeating the operation may succeed.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryImmediate  RetryStrategy = "immediate"
	RetryUserAction RetryStrategy = "user" // content or config must be fixed first
)

// Context keys shared by the pipeline packages.
const (
	ContextPath = "path"
	ContextKind = "kind"
	ContextLine = "line"
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	if value, exists := c.Get(key); exists {
		if str, ok := value.(string); ok {
			return str, true
		}
	}
	return "", false
}

// Merge combines two contexts, with other taking precedence.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	result := make(ErrorContext)
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}
