package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/epubpress/internal/book"
	"github.com/hpungsan/epubpress/internal/errors"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertBook stores a book together with its files in one transaction.
func InsertBook(ctx context.Context, db *sql.DB, b *book.Book, files []*book.File) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO books (id, title, file_name, notes, size_bytes, digest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query,
		b.ID, b.Title, b.FileName, toNullString(b.Notes), b.SizeBytes, b.Digest, b.CreatedAt,
	); err != nil {
		return errors.NewInternal(err)
	}

	for _, f := range files {
		f.BookID = b.ID
		if err := insertFile(ctx, tx, f); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// InsertFile attaches one file to an existing book.
func InsertFile(ctx context.Context, db *sql.DB, f *book.File) error {
	if _, err := GetBook(ctx, db, f.BookID); err != nil {
		return err
	}
	return insertFile(ctx, db, f)
}

// InsertFiles attaches several files to an existing book in one transaction.
func InsertFiles(ctx context.Context, db *sql.DB, bookID string, files []*book.File) error {
	if _, err := GetBook(ctx, db, bookID); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, f := range files {
		f.BookID = bookID
		if err := insertFile(ctx, tx, f); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func insertFile(ctx context.Context, ex execer, f *book.File) error {
	data := f.Data
	if data == nil {
		data = []byte{}
	}
	query := `
		INSERT INTO files (id, book_id, name, media_type, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := ex.ExecContext(ctx, query, f.ID, f.BookID, f.Name, f.MediaType, data, f.CreatedAt); err != nil {
		return errors.NewInternal(err)
	}
	f.SizeBytes = int64(len(data))
	return nil
}

// GetBook retrieves a book by its ULID.
func GetBook(ctx context.Context, db *sql.DB, id string) (*book.Book, error) {
	query := `
		SELECT id, title, file_name, notes, size_bytes, digest, created_at
		FROM books
		WHERE id = ?
	`
	b, err := scanBook(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return b, nil
}

// ListBooks returns books newest first, plus the total count.
func ListBooks(ctx context.Context, db *sql.DB, limit, offset int) ([]book.Book, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT id, title, file_name, notes, size_bytes, digest, created_at
		FROM books
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var books []book.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return books, total, nil
}

// GetBookFiles returns the metadata of a book's files in insertion order.
// Data is not loaded.
func GetBookFiles(ctx context.Context, db *sql.DB, bookID string) ([]book.File, error) {
	if _, err := GetBook(ctx, db, bookID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, book_id, name, media_type, length(data), created_at
		FROM files
		WHERE book_id = ?
		ORDER BY rowid
	`
	rows, err := db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	files := []book.File{}
	for rows.Next() {
		var f book.File
		if err := rows.Scan(&f.ID, &f.BookID, &f.Name, &f.MediaType, &f.SizeBytes, &f.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return files, nil
}

// GetArchive loads the book's stored archive file including its data.
func GetArchive(ctx context.Context, db *sql.DB, bookID string) (*book.File, error) {
	if _, err := GetBook(ctx, db, bookID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, book_id, name, media_type, data, created_at
		FROM files
		WHERE book_id = ? AND media_type = ?
		ORDER BY rowid
		LIMIT 1
	`
	var f book.File
	err := db.QueryRowContext(ctx, query, bookID, book.MediaTypeArchive).
		Scan(&f.ID, &f.BookID, &f.Name, &f.MediaType, &f.Data, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(bookID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	f.SizeBytes = int64(len(f.Data))
	return &f, nil
}

// UpdateNotes replaces a book's notes. A nil notes clears them.
func UpdateNotes(ctx context.Context, db *sql.DB, id string, notes *string) error {
	result, err := db.ExecContext(ctx, "UPDATE books SET notes = ? WHERE id = ?", toNullString(notes), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// DeleteBook removes a book and all of its files in one transaction.
// Returns the number of files removed.
func DeleteBook(ctx context.Context, db *sql.DB, id string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	fileResult, err := tx.ExecContext(ctx, "DELETE FROM files WHERE book_id = ?", id)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	filesDeleted, err := fileResult.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	bookResult, err := tx.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	rowsAffected, err := bookResult.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return 0, errors.NewNotFound(id)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(filesDeleted), nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBook scans a single row into a Book struct.
func scanBook(row rowScanner) (*book.Book, error) {
	var (
		b     book.Book
		notes sql.NullString
	)
	if err := row.Scan(&b.ID, &b.Title, &b.FileName, &notes, &b.SizeBytes, &b.Digest, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Notes = fromNullString(notes)
	return &b, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
