package ops

import (
	"strings"

	"github.com/hpungsan/epubpress/internal/archive"
	"github.com/hpungsan/epubpress/internal/errors"
	"github.com/hpungsan/epubpress/internal/intercept"
)

// ArchiveLookupInput contains parameters for the ArchiveLookup operation.
type ArchiveLookupInput struct {
	Path string // archive-relative, a leading reserved prefix is stripped
}

// ArchiveLookupOutput describes one cached entry. Text entries carry Text,
// binary entries carry Data (base64 in JSON).
type ArchiveLookupOutput struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Mode        string `json:"mode"`
	SizeBytes   int    `json:"size_bytes"`
	Digest      string `json:"digest"`
	Text        string `json:"text,omitempty"`
	Data        []byte `json:"data,omitempty"`
}

// ArchiveLookup reads one entry from the archive cache.
func ArchiveLookup(resolver *intercept.Resolver, store *archive.Store, input ArchiveLookupInput) (*ArchiveLookupOutput, error) {
	path := strings.TrimSpace(input.Path)
	if path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if resolver != nil {
		if key, ok := resolver.ArchivePath(path); ok {
			path = key
		}
	}

	content, ok := store.Lookup(path)
	if !ok {
		return nil, errors.NewEntryNotFound(path)
	}

	out := &ArchiveLookupOutput{
		Path:        path,
		ContentType: intercept.ContentTypeFor(path),
		Mode:        string(content.Mode),
		SizeBytes:   content.Size(),
		Digest:      content.Digest.String(),
	}
	if content.IsBinary() {
		out.Data = content.Bytes()
	} else {
		out.Text = content.Text()
	}
	return out, nil
}

// ArchiveListOutput lists the archive cache.
type ArchiveListOutput struct {
	Paths []string      `json:"paths"`
	Stats archive.Stats `json:"stats"`
}

// ArchiveList returns every cached path and store statistics.
func ArchiveList(store *archive.Store) *ArchiveListOutput {
	return &ArchiveListOutput{
		Paths: store.Paths(),
		Stats: store.Stats(),
	}
}

// ArchiveResetOutput contains the result of the ArchiveReset operation.
type ArchiveResetOutput struct {
	Reset   bool `json:"reset"`
	Cleared int  `json:"cleared"`
}

// ArchiveReset empties the archive cache.
func ArchiveReset(store *archive.Store) *ArchiveResetOutput {
	n := store.Len()
	store.Reset()
	return &ArchiveResetOutput{Reset: true, Cleared: n}
}
