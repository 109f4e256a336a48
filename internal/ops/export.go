package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/epubpress/internal/config"
	"github.com/hpungsan/epubpress/internal/db"
	"github.com/hpungsan/epubpress/internal/errors"
)

// ExportBookInput contains parameters for the ExportBook operation.
type ExportBookInput struct {
	ID   string
	Path string // optional, default: ~/.epubpress/library/<title>-<timestamp>.epub
}

// ExportBookOutput contains the result of the ExportBook operation.
type ExportBookOutput struct {
	BookID     string `json:"book_id"`
	Path       string `json:"path"`
	SizeBytes  int64  `json:"size_bytes"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportBook writes a stored book's archive bytes back to disk.
func ExportBook(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportBookInput) (*ExportBookOutput, error) {
	id, err := validateID(input.ID)
	if err != nil {
		return nil, err
	}

	b, err := db.GetBook(ctx, database, id)
	if err != nil {
		return nil, err
	}
	f, err := db.GetArchive(ctx, database, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// Determine export path
	exportPath := input.Path
	if exportPath == "" {
		exportPath, err = defaultExportPath(b.Title, now)
		if err != nil {
			return nil, err
		}
	}

	// Validate ALL paths (both user-provided and default) for security
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	if err := writeFileAtomic(exportPath, f.Data); err != nil {
		return nil, err
	}

	return &ExportBookOutput{
		BookID:     id,
		Path:       exportPath,
		SizeBytes:  int64(len(f.Data)),
		ExportedAt: now.Unix(),
	}, nil
}

// writeFileAtomic writes data to a temp file beside path, then renames it
// into place so an existing file survives a failed write.
func writeFileAtomic(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}

	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	// On Windows, os.Rename fails if the destination exists; the existing file is kept.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows yet (choose a new path or delete the existing file)")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}

// defaultExportPath generates the default export path.
// Format: ~/.epubpress/library/<title>-<timestamp>.epub
func defaultExportPath(title string, now time.Time) (string, error) {
	dir, err := DefaultLibraryDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s-%s.epub", SanitizeForFilename(title), now.Format("2006-01-02T150405"))
	return filepath.Join(dir, filename), nil
}
