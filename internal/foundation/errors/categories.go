package errors

import "maps"

// ErrorCategory is the broad classification of an error.
type ErrorCategory string

const (
	// User input: configuration files, flags, environment.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// Site content: documents and their front matter.
	CategoryContent    ErrorCategory = "content"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryRender     ErrorCategory = "render"

	// Collaborators outside the process.
	CategoryGit     ErrorCategory = "git"
	CategoryLedger  ErrorCategory = "ledger"
	CategoryNotify  ErrorCategory = "notify"
	CategoryNetwork ErrorCategory = "network"

	// Process runtime.
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // stops the run
	SeverityError   ErrorSeverity = "error"   // fails the current operation
	SeverityWarning ErrorSeverity = "warning" // run continues, result degraded
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy tells callers whether repeating the operation can help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryImmediate  RetryStrategy = "immediate"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user"
)

// ErrorContext holds structured key/value details attached to an error.
type ErrorContext map[string]any

// Set adds or replaces a value. A nil context is allocated.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c[key]
	return v, ok
}

// GetString retrieves a string value.
func (c ErrorContext) GetString(key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Merge returns a new context holding both; other wins on conflicts.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	out := make(ErrorContext, len(c)+len(other))
	maps.Copy(out, c)
	maps.Copy(out, other)
	return out
}
