package errors

import (
	"fmt"
	"testing"
)

func TestPressError_Error(t *testing.T) {
	err := &PressError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "book not found",
	}

	expected := "NOT_FOUND: book not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewMissingInput(t *testing.T) {
	err := NewMissingInput("File is undefined or not provided")

	if err.Code != ErrMissingInput {
		t.Errorf("Code = %q, want %q", err.Code, ErrMissingInput)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "File is undefined or not provided" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("id is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01HXYZ")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "01HXYZ" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "01HXYZ")
	}
}

func TestNewEntryNotFound(t *testing.T) {
	err := NewEntryNotFound("OEBPS/missing.xhtml")

	if err.Code != ErrNotFound || err.Status != 404 {
		t.Errorf("got %s/%d, want NOT_FOUND/404", err.Code, err.Status)
	}
	if err.Message != "entry not found: OEBPS/missing.xhtml" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["path"] != "OEBPS/missing.xhtml" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/missing.epub")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileNotFound)
	}
	if err.Details["path"] != "/tmp/missing.epub" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
}

func TestNewArchiveTooLarge(t *testing.T) {
	err := NewArchiveTooLarge(1024)

	if err.Code != ErrArchiveTooLarge {
		t.Errorf("Code = %q, want %q", err.Code, ErrArchiveTooLarge)
	}
	if err.Status != 413 {
		t.Errorf("Status = %d, want 413", err.Status)
	}
	if err.Details["max_bytes"] != int64(1024) {
		t.Errorf("Details[max_bytes] = %v, want 1024", err.Details["max_bytes"])
	}
}

func TestNewInvalidArchive(t *testing.T) {
	err := NewInvalidArchive(fmt.Errorf("zip: not a valid zip file"))

	if err.Code != ErrInvalidArchive {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidArchive)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if err.Message != "invalid archive: zip: not a valid zip file" {
		t.Errorf("Message = %q", err.Message)
	}

	bare := NewInvalidArchive(nil)
	if bare.Message != "invalid archive" {
		t.Errorf("Message = %q, want %q", bare.Message, "invalid archive")
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("disk full"))
	if err.Code != ErrInternal || err.Status != 500 {
		t.Errorf("got %s/%d, want INTERNAL/500", err.Code, err.Status)
	}
	if err.Message != "disk full" {
		t.Errorf("Message = %q, want %q", err.Message, "disk full")
	}

	nilErr := NewInternal(nil)
	if nilErr.Message != "internal error" {
		t.Errorf("Message = %q, want %q", nilErr.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewMissingInput("x"), ErrMissingInput, true},
		{"different code", NewMissingInput("x"), ErrInvalidArchive, false},
		{"plain error", fmt.Errorf("plain"), ErrInternal, false},
		{"nil error", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}
