// Package errors provides the classified error type used across pubgate.
//
// Every error that crosses a package boundary carries a category (what kind of
// failure), a severity (how bad) and a retry strategy (what a caller may do
// about it), plus free-form context. Errors are built with a fluent builder:
//
//	err := errors.ContentError("invalid front matter date").
//		WithContext("document", path).
//		WithContext("field", "expiryDate").
//		WithCause(parseErr).
//		Build()
//
// The CLI adapter turns a ClassifiedError into an exit code and a log record.
package errors
