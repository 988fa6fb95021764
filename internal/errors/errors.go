// Package errors provides structured error types for the Firn library.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by failure domain.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryConflict   ErrorCategory = "CONFLICT"
	ErrCategoryCatalog    ErrorCategory = "CATALOG"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryDecode     ErrorCategory = "DECODE"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidSchema    = "INVALID_SCHEMA"
	CodeInvalidSpec      = "INVALID_SPEC"
	CodeInvalidTransform = "INVALID_TRANSFORM"
	CodeInvalidNamespace = "INVALID_NAMESPACE"
	CodeInvalidDataFile  = "INVALID_DATA_FILE"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeNoSnapshot       = "NO_SNAPSHOT"
	CodeNotATable        = "NOT_A_TABLE"
	CodeCyclicView       = "CYCLIC_VIEW"
	CodeParseError       = "PARSE_ERROR"

	// Conflict codes
	CodeCommitConflict = "COMMIT_CONFLICT"

	// Catalog codes
	CodeNotFound       = "NOT_FOUND"
	CodeAlreadyExists  = "ALREADY_EXISTS"
	CodeBaseTableState = "BASE_TABLE_STATE"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"
	CodeObjectExists   = "OBJECT_EXISTS"

	// Decode codes
	CodeCorruptMetadata = "CORRUPT_METADATA"
	CodeCorruptSummary  = "CORRUPT_SUMMARY"
	CodeCorruptManifest = "CORRUPT_MANIFEST"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// FirnError is the structured error type used throughout the library.
type FirnError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *FirnError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *FirnError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *FirnError) Is(target error) bool {
	var t *FirnError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new FirnError.
func New(category ErrorCategory, code, message string) *FirnError {
	return &FirnError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new FirnError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *FirnError {
	return &FirnError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *FirnError) WithDetails(details map[string]interface{}) *FirnError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var fe *FirnError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// IsConflict reports whether an error chain contains a commit conflict.
func IsConflict(err error) bool {
	var fe *FirnError
	if errors.As(err, &fe) {
		return fe.Category == ErrCategoryConflict
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a FirnError.
func GetCategory(err error) ErrorCategory {
	var fe *FirnError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a FirnError.
func GetCode(err error) string {
	var fe *FirnError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// isRetryable determines if an error code may be retried by the caller.
// Conflicts are retryable by re-reading the table and replaying the
// transaction; transient storage failures are retryable as-is.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryConflict:
		return true
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *FirnError {
	return New(ErrCategoryValidation, code, message)
}

func NewConflictError(message string) *FirnError {
	return New(ErrCategoryConflict, CodeCommitConflict, message)
}

func NewCatalogError(code, message string, cause error) *FirnError {
	return Wrap(ErrCategoryCatalog, code, message, cause)
}

func NewStorageError(code, message string, cause error) *FirnError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewDecodeError(code, message string, cause error) *FirnError {
	return Wrap(ErrCategoryDecode, code, message, cause)
}

func NewInternalError(message string, cause error) *FirnError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
