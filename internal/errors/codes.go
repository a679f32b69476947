// Package errors provides structured error handling for notedex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk, locks)
//   - 4XX: Validation errors (note headers, index keys)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates malformed input.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, the run must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates a skipped field or document, the run continues.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeOutputWrite    = "ERR_203_OUTPUT_WRITE"
	ErrCodeRemoveFailed   = "ERR_204_REMOVE_FAILED"
	ErrCodeRunLocked      = "ERR_205_RUN_LOCKED"
	ErrCodeNotADirectory  = "ERR_206_NOT_A_DIRECTORY"
	ErrCodeFileRead       = "ERR_207_FILE_READ"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodeMissingCreated = "ERR_402_MISSING_CREATED"
	ErrCodeInvalidDateKey = "ERR_403_INVALID_DATE_KEY"
	ErrCodeInvalidKeyPath = "ERR_404_INVALID_KEY_PATH"
	ErrCodeShortHeader    = "ERR_405_SHORT_HEADER"
	ErrCodeMissingField   = "ERR_406_MISSING_FIELD"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "101" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeMissingCreated, ErrCodeInvalidDateKey, ErrCodeInvalidKeyPath,
		ErrCodeOutputWrite, ErrCodeRemoveFailed, ErrCodeRunLocked, ErrCodeNotADirectory:
		return SeverityFatal
	case ErrCodeShortHeader, ErrCodeMissingField, ErrCodeFileRead:
		return SeverityWarning
	}
	return SeverityError
}
