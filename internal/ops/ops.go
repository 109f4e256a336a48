package ops

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/epubpress/internal/errors"
	"github.com/hpungsan/epubpress/internal/intercept"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// MessageSender delivers a message to the archive worker and waits for its reply.
// *session.Session satisfies it.
type MessageSender interface {
	Send(ctx context.Context, msg intercept.Message) (intercept.Reply, bool, error)
}

// sendProcess posts a process-archive message and returns the reply.
// An error reply is returned as a reply, not as an error.
func sendProcess(ctx context.Context, sender MessageSender, fileName string, file io.Reader) (*intercept.Reply, error) {
	reply, ok, err := sender.Send(ctx, intercept.Message{
		Type:     intercept.TypeProcessArchive,
		FileName: fileName,
		File:     file,
	})
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if !ok {
		return nil, errors.NewInternal(nil)
	}
	return &reply, nil
}

// validateID trims and requires a book ID.
func validateID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("id is required")
	}
	return id, nil
}

// cleanOptionalString trims s and maps blank values to nil.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// readArchive reads r fully, failing with ARCHIVE_TOO_LARGE past limit bytes.
// limit <= 0 disables the check.
func readArchive(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, errors.NewArchiveTooLarge(limit)
	}
	return data, nil
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
