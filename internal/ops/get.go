package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/epubpress/internal/book"
	"github.com/hpungsan/epubpress/internal/db"
	"github.com/hpungsan/epubpress/internal/errors"
)

// GetBookInput contains parameters for the GetBook operation.
type GetBookInput struct {
	ID string
}

// GetBook retrieves one book's metadata.
func GetBook(ctx context.Context, database *sql.DB, input GetBookInput) (*book.Book, error) {
	id, err := validateID(input.ID)
	if err != nil {
		return nil, err
	}
	return db.GetBook(ctx, database, id)
}

// BookFilesInput contains parameters for the BookFiles operation.
type BookFilesInput struct {
	ID string
}

// BookFilesOutput lists a book's stored files without their data.
type BookFilesOutput struct {
	BookID string      `json:"book_id"`
	Files  []book.File `json:"files"`
}

// BookFiles lists the files stored for a book.
func BookFiles(ctx context.Context, database *sql.DB, input BookFilesInput) (*BookFilesOutput, error) {
	id, err := validateID(input.ID)
	if err != nil {
		return nil, err
	}
	files, err := db.GetBookFiles(ctx, database, id)
	if err != nil {
		return nil, err
	}
	return &BookFilesOutput{BookID: id, Files: files}, nil
}

// UpdateNotesInput contains parameters for the UpdateNotes operation.
type UpdateNotesInput struct {
	ID    string
	Notes *string // nil or blank clears the notes
}

// UpdateNotesOutput contains the result of the UpdateNotes operation.
type UpdateNotesOutput struct {
	ID    string  `json:"id"`
	Notes *string `json:"notes"`
}

// UpdateNotes replaces a book's markdown notes.
func UpdateNotes(ctx context.Context, database *sql.DB, input UpdateNotesInput) (*UpdateNotesOutput, error) {
	id, err := validateID(input.ID)
	if err != nil {
		return nil, err
	}

	notes := cleanOptionalString(input.Notes)
	if notes != nil && book.CountChars(*notes) > book.MaxNotesChars {
		return nil, errors.NewInvalidRequest("notes are too long")
	}

	if err := db.UpdateNotes(ctx, database, id, notes); err != nil {
		return nil, err
	}
	return &UpdateNotesOutput{ID: id, Notes: notes}, nil
}

// BookArchiveInput contains parameters for the BookArchive operation.
type BookArchiveInput struct {
	ID string
}

// BookArchive returns a book's stored archive file including its bytes.
func BookArchive(ctx context.Context, database *sql.DB, input BookArchiveInput) (*book.File, error) {
	id, err := validateID(input.ID)
	if err != nil {
		return nil, err
	}
	return db.GetArchive(ctx, database, id)
}
