package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/epubpress/internal/book"
	"github.com/hpungsan/epubpress/internal/db"
)

// ListBooksInput contains parameters for the ListBooks operation.
type ListBooksInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListBooksOutput contains the result of the ListBooks operation.
type ListBooksOutput struct {
	Items      []book.Book `json:"items"`
	Pagination Pagination  `json:"pagination"`
	Sort       string      `json:"sort"`
}

// ListBooks retrieves library books with pagination, newest first.
func ListBooks(ctx context.Context, database *sql.DB, input ListBooksInput) (*ListBooksOutput, error) {
	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	books, total, err := db.ListBooks(ctx, database, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if books == nil {
		books = []book.Book{}
	}

	return &ListBooksOutput{
		Items: books,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(books) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
