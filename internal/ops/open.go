package ops

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"path/filepath"

	"github.com/hpungsan/epubpress/internal/config"
	"github.com/hpungsan/epubpress/internal/db"
	"github.com/hpungsan/epubpress/internal/errors"
	"github.com/hpungsan/epubpress/internal/intercept"
)

// OpenBookInput contains parameters for the OpenBook operation.
type OpenBookInput struct {
	ID string
}

// OpenBookOutput pairs the opened book with the worker's reply.
type OpenBookOutput struct {
	BookID string           `json:"book_id"`
	Reply  *intercept.Reply `json:"reply"`
}

// OpenBook loads a stored book's archive and posts it to the worker for
// extraction. Extraction failures come back inside Reply.
func OpenBook(ctx context.Context, database *sql.DB, sender MessageSender, input OpenBookInput) (*OpenBookOutput, error) {
	id, err := validateID(input.ID)
	if err != nil {
		return nil, err
	}

	f, err := db.GetArchive(ctx, database, id)
	if err != nil {
		return nil, err
	}

	reply, err := sendProcess(ctx, sender, f.Name, bytes.NewReader(f.Data))
	if err != nil {
		return nil, err
	}
	return &OpenBookOutput{BookID: id, Reply: reply}, nil
}

// ProcessFileInput contains parameters for the ProcessFile operation.
type ProcessFileInput struct {
	Path string
}

// ProcessFile sends an archive on disk through the worker. The file is
// streamed to the message handler, which enforces max_archive_bytes.
func ProcessFile(ctx context.Context, cfg *config.Config, sender MessageSender, input ProcessFileInput) (*intercept.Reply, error) {
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}
	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.PressError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(err)
	}
	defer file.Close()

	return sendProcess(ctx, sender, filepath.Base(input.Path), file)
}

// ProcessDataInput contains parameters for the ProcessData operation.
type ProcessDataInput struct {
	FileName string
	Data     []byte // nil sends the message without a file
}

// ProcessData sends in-memory archive bytes through the worker.
func ProcessData(ctx context.Context, sender MessageSender, input ProcessDataInput) (*intercept.Reply, error) {
	var file io.Reader
	if input.Data != nil {
		file = bytes.NewReader(input.Data)
	}
	return sendProcess(ctx, sender, input.FileName, file)
}
