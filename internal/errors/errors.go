package errors

import (
	"errors"
	"fmt"
)

// NotedexError is the structured error type for notedex.
// It carries enough context (code, path, cause) to diagnose a failed run
// without re-running it.
type NotedexError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *NotedexError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *NotedexError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a NotedexError with the same code.
func (e *NotedexError) Is(target error) bool {
	if t, ok := target.(*NotedexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *NotedexError) WithDetail(key, value string) *NotedexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithPath records the file or directory the error is about.
func (e *NotedexError) WithPath(path string) *NotedexError {
	return e.WithDetail("path", path)
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *NotedexError) WithSuggestion(suggestion string) *NotedexError {
	e.Suggestion = suggestion
	return e
}

// New creates a new NotedexError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *NotedexError {
	return &NotedexError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a NotedexError from an existing error.
// The error's message becomes the NotedexError message.
func Wrap(code string, err error) *NotedexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *NotedexError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *NotedexError {
	return New(ErrCodeFileNotFound, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *NotedexError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *NotedexError {
	return New(ErrCodeInternal, message, cause)
}

// As finds the first NotedexError in err's chain.
func As(err error) (*NotedexError, bool) {
	var ne *NotedexError
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors abort the whole run.
func IsFatal(err error) bool {
	if ne, ok := As(err); ok {
		return ne.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a NotedexError.
// Returns empty string if not a NotedexError.
func GetCode(err error) string {
	if ne, ok := As(err); ok {
		return ne.Code
	}
	return ""
}

// GetCategory extracts the category from a NotedexError.
// Returns empty string if not a NotedexError.
func GetCategory(err error) Category {
	if ne, ok := As(err); ok {
		return ne.Category
	}
	return ""
}
