package errors

import "fmt"

// ErrorCode represents an epubpress error code.
type ErrorCode string

const (
	ErrMissingInput    ErrorCode = "MISSING_INPUT"     // 400
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound    ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrArchiveTooLarge ErrorCode = "ARCHIVE_TOO_LARGE" // 413
	ErrInvalidArchive  ErrorCode = "INVALID_ARCHIVE"   // 422
	ErrInternal        ErrorCode = "INTERNAL"          // 500
)

// PressError represents a structured error with code, status, and details.
type PressError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *PressError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewMissingInput creates a 400 error for when no archive bytes were supplied.
func NewMissingInput(msg string) *PressError {
	return &PressError{
		Code:    ErrMissingInput,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *PressError {
	return &PressError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a book cannot be found.
func NewNotFound(identifier string) *PressError {
	return &PressError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("book not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewEntryNotFound creates a 404 error for a path missing from the archive cache.
func NewEntryNotFound(path string) *PressError {
	return &PressError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("entry not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewFileNotFound creates a 404 error for a missing file on disk.
func NewFileNotFound(path string) *PressError {
	return &PressError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewArchiveTooLarge creates a 413 error when an archive exceeds the size limit.
func NewArchiveTooLarge(max int64) *PressError {
	return &PressError{
		Code:    ErrArchiveTooLarge,
		Status:  413,
		Message: fmt.Sprintf("archive exceeds maximum size of %d bytes", max),
		Details: map[string]any{"max_bytes": max},
	}
}

// NewInvalidArchive creates a 422 error for bytes that do not parse as a zip archive.
func NewInvalidArchive(err error) *PressError {
	msg := "invalid archive"
	if err != nil {
		msg = fmt.Sprintf("invalid archive: %v", err)
	}
	return &PressError{
		Code:    ErrInvalidArchive,
		Status:  422,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *PressError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &PressError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a PressError with the given code.
func Is(err error, code ErrorCode) bool {
	if pErr, ok := err.(*PressError); ok {
		return pErr.Code == code
	}
	return false
}
