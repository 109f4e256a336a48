package ops

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/hpungsan/epubpress/internal/archive"
	"github.com/hpungsan/epubpress/internal/book"
	"github.com/hpungsan/epubpress/internal/config"
	"github.com/hpungsan/epubpress/internal/db"
	"github.com/hpungsan/epubpress/internal/errors"
)

// AddBookInput contains parameters for the AddBook operation.
// Exactly one of Path or Data supplies the archive.
type AddBookInput struct {
	Path     string  // archive on disk, validated with ValidatePath
	Data     []byte  // archive bytes (uploads)
	FileName string  // required with Data; defaults to the base name of Path
	Title    *string // default: derived from FileName
	Notes    *string
}

// AddBookOutput contains the result of the AddBook operation.
type AddBookOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	FileName  string `json:"file_name"`
	SizeBytes int64  `json:"size_bytes"`
	Digest    string `json:"digest"`
	Entries   int    `json:"entries"`
}

// AddBook stores an archive in the library. The archive must extract cleanly;
// the book row and its archive file are written in one transaction.
func AddBook(ctx context.Context, database *sql.DB, cfg *config.Config, input AddBookInput) (*AddBookOutput, error) {
	hasPath := strings.TrimSpace(input.Path) != ""
	hasData := input.Data != nil
	if hasPath == hasData {
		return nil, errors.NewInvalidRequest("exactly one of path or data is required")
	}

	data := input.Data
	fileName := strings.TrimSpace(input.FileName)
	if hasPath {
		var err error
		data, err = readArchiveFile(input.Path, cfg)
		if err != nil {
			return nil, err
		}
		if fileName == "" {
			fileName = filepath.Base(input.Path)
		}
	} else if cfg != nil && cfg.MaxArchiveBytes > 0 && int64(len(data)) > cfg.MaxArchiveBytes {
		return nil, errors.NewArchiveTooLarge(cfg.MaxArchiveBytes)
	}
	if fileName == "" {
		return nil, errors.NewInvalidRequest("file_name is required")
	}

	title := book.TitleFromFileName(fileName)
	if input.Title != nil {
		title = book.CleanTitle(*input.Title)
	}
	if title == "" {
		return nil, errors.NewInvalidRequest("title must not be empty")
	}
	if book.CountChars(title) > book.MaxTitleChars {
		return nil, errors.NewInvalidRequest("title is too long")
	}
	if input.Notes != nil && book.CountChars(*input.Notes) > book.MaxNotesChars {
		return nil, errors.NewInvalidRequest("notes are too long")
	}

	// Extract into a scratch store to prove the archive is readable.
	result, err := archive.New().Extract(ctx, data)
	if err != nil {
		return nil, err
	}

	bookID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	fileID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	now := time.Now().Unix()
	b := &book.Book{
		ID:        bookID,
		Title:     title,
		FileName:  fileName,
		Notes:     input.Notes,
		SizeBytes: int64(len(data)),
		Digest:    digest.FromBytes(data).String(),
		CreatedAt: now,
	}
	f := &book.File{
		ID:        fileID,
		Name:      fileName,
		MediaType: book.MediaTypeArchive,
		Data:      data,
		CreatedAt: now,
	}

	if err := db.InsertBook(ctx, database, b, []*book.File{f}); err != nil {
		return nil, err
	}

	return &AddBookOutput{
		ID:        b.ID,
		Title:     b.Title,
		FileName:  b.FileName,
		SizeBytes: b.SizeBytes,
		Digest:    b.Digest,
		Entries:   len(result.FileList),
	}, nil
}

// readArchiveFile validates path and reads the archive it names.
func readArchiveFile(path string, cfg *config.Config) ([]byte, error) {
	if err := ValidatePath(path, PathCheckRead, cfg); err != nil {
		return nil, err
	}
	file, err := openFileNoFollowRead(path)
	if err != nil {
		if _, ok := err.(*errors.PressError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(err)
	}
	defer file.Close()

	var limit int64
	if cfg != nil {
		limit = cfg.MaxArchiveBytes
	}
	return readArchive(file, limit)
}
