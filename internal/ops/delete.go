package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/epubpress/internal/db"
)

// DeleteBookInput contains parameters for the DeleteBook operation.
type DeleteBookInput struct {
	ID string
}

// DeleteBookOutput contains the result of the DeleteBook operation.
type DeleteBookOutput struct {
	Deleted      bool   `json:"deleted"`
	ID           string `json:"id"`
	FilesDeleted int    `json:"files_deleted"`
}

// DeleteBook removes a book and its stored files. The archive cache is not
// touched: paths already extracted from the book stay servable.
func DeleteBook(ctx context.Context, database *sql.DB, input DeleteBookInput) (*DeleteBookOutput, error) {
	id, err := validateID(input.ID)
	if err != nil {
		return nil, err
	}

	n, err := db.DeleteBook(ctx, database, id)
	if err != nil {
		return nil, err
	}

	return &DeleteBookOutput{
		Deleted:      true,
		ID:           id,
		FilesDeleted: n,
	}, nil
}
