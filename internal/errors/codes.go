// Package errors provides structured error handling for indexscope.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index and IO errors (file, disk, index format)
//   - 3XX: Lifecycle errors (session state misuse)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, disk and index storage errors.
	CategoryIO Category = "IO"
	// CategoryLifecycle indicates session lifecycle misuse.
	CategoryLifecycle Category = "LIFECYCLE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Index and IO errors (200-299)
	ErrCodeIndexNotFound  = "ERR_201_INDEX_NOT_FOUND"
	ErrCodeIndexCorrupt   = "ERR_202_INDEX_CORRUPT"
	ErrCodeIndexLocked    = "ERR_203_INDEX_LOCKED"
	ErrCodeIndexOpen      = "ERR_204_INDEX_OPEN_FAILED"
	ErrCodeHistoryStorage = "ERR_205_HISTORY_STORAGE"

	// Lifecycle errors (300-399)
	ErrCodeNoSession       = "ERR_301_NO_SESSION"
	ErrCodeNothingToReopen = "ERR_302_NOTHING_TO_REOPEN"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidPath    = "ERR_402_INVALID_PATH"
	ErrCodeUnknownDirImpl = "ERR_403_UNKNOWN_DIR_IMPL"
	ErrCodeNilQuery       = "ERR_404_NIL_QUERY"
	ErrCodeNilSettings    = "ERR_405_NIL_SETTINGS"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeSearchFailed  = "ERR_502_SEARCH_FAILED"
	ErrCodeExplainFailed = "ERR_503_EXPLAIN_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract the leading digit (e.g., '2' from "ERR_201_INDEX_NOT_FOUND").
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryLifecycle
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexCorrupt:
		return SeverityFatal
	case ErrCodeHistoryStorage:
		// History is best-effort; losing it never aborts a session.
		return SeverityWarning
	default:
		return SeverityError
	}
}
