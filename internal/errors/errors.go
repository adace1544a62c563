package errors

import (
	"fmt"
)

// ScopeError is the structured error type for indexscope.
// It carries a stable code plus context for logging and user presentation.
type ScopeError struct {
	// Code is the unique error code (e.g., "ERR_201_INDEX_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Lifecycle, etc.).
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
func (e *ScopeError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ScopeError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with ScopeError.
func (e *ScopeError) Is(target error) bool {
	if t, ok := target.(*ScopeError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *ScopeError) WithDetail(key, value string) *ScopeError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *ScopeError) WithSuggestion(suggestion string) *ScopeError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ScopeError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *ScopeError {
	return &ScopeError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a ScopeError from an existing error.
// The error's message becomes the ScopeError message.
func Wrap(code string, err error) *ScopeError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ValidationError creates an invalid-argument error.
// These indicate programmer misuse, not recoverable runtime conditions.
func ValidationError(message string, cause error) *ScopeError {
	return New(ErrCodeInvalidInput, message, cause)
}

// LifecycleError creates a session-lifecycle misuse error.
func LifecycleError(code string, message string) *ScopeError {
	return New(code, message, nil)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *ScopeError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*ScopeError); ok {
		return se.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a ScopeError.
// Returns empty string if not a ScopeError.
func GetCode(err error) string {
	if se, ok := err.(*ScopeError); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a ScopeError.
// Returns empty string if not a ScopeError.
func GetCategory(err error) Category {
	if se, ok := err.(*ScopeError); ok {
		return se.Category
	}
	return ""
}
