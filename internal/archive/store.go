package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/opencontainers/go-digest"

	"github.com/hpungsan/epubpress/internal/errors"
)

// slot is what a path maps to: a directory marker or a blob reference.
type slot struct {
	dir    bool
	mode   DecodeMode
	digest digest.Digest
}

type blob struct {
	body []byte
	refs int
}

// Store is the path → content mapping populated by Extract.
//
// Every single read or write is synchronized, but Extract commits entry by
// entry: a concurrent Lookup can observe an archive that is only partly
// committed, and concurrent extractions of overlapping paths are last write
// wins per path.
type Store struct {
	mu         sync.RWMutex
	paths      map[string]slot
	blobs      map[digest.Digest]*blob
	binaryExts []string
}

// Option configures a Store.
type Option func(*Store)

// WithBinaryExtensions adds entry suffixes that are kept as raw bytes.
// DefaultBinaryExtensions always apply.
func WithBinaryExtensions(exts ...string) Option {
	return func(s *Store) {
		for _, ext := range exts {
			if ext == "" || contains(s.binaryExts, ext) {
				continue
			}
			s.binaryExts = append(s.binaryExts, ext)
		}
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		paths:      make(map[string]slot),
		blobs:      make(map[digest.Digest]*blob),
		binaryExts: append([]string(nil), DefaultBinaryExtensions...),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Extract unpacks a zip archive into the store.
//
// A nil data slice fails with MISSING_INPUT. Bytes that do not parse as a zip
// archive, or whose entries cannot be decompressed, fail with INVALID_ARCHIVE.
// In both cases the store is left unchanged: every entry is decoded before the
// first one is committed.
func (s *Store) Extract(ctx context.Context, data []byte) (*ExtractionResult, error) {
	if data == nil {
		return nil, errors.NewMissingInput("archive bytes are required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := openArchive(data)
	if err != nil {
		return nil, errors.NewInvalidArchive(err)
	}

	entries, err := decodeAll(ctx, zr, s.binaryExtensions())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.NewInvalidArchive(err)
	}

	result := &ExtractionResult{
		FileList: make([]string, 0, len(entries)),
		Manifest: make([]Entry, 0, len(entries)),
	}
	for _, d := range entries {
		s.put(d)
		result.FileList = append(result.FileList, d.entry.Path)
		result.Manifest = append(result.Manifest, d.entry)
	}

	return result, nil
}

// Lookup returns the content stored at path.
// Directories and unknown paths report false.
func (s *Store) Lookup(path string) (Content, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.paths[path]
	if !ok || sl.dir {
		return Content{}, false
	}
	b := s.blobs[sl.digest]
	return Content{Mode: sl.mode, Digest: sl.digest, body: b.body}, true
}

// Contains reports whether path was listed by any extraction, directories included.
func (s *Store) Contains(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.paths[path]
	return ok
}

// IsDir reports whether path is a directory marker.
func (s *Store) IsDir(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paths[path].dir
}

// Paths returns every stored path in lexical order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	paths := make([]string, 0, len(s.paths))
	for p := range s.paths {
		paths = append(paths, p)
	}
	s.mu.RUnlock()

	sort.Strings(paths)
	return paths
}

// Len returns the number of stored paths.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}

// Stats returns entry, blob and byte counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, sl := range s.paths {
		if sl.dir {
			st.Directories++
			continue
		}
		st.Entries++
	}
	st.Blobs = len(s.blobs)
	for _, b := range s.blobs {
		st.Bytes += int64(len(b.body))
	}
	return st
}

// Reset drops every path and blob.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = make(map[string]slot)
	s.blobs = make(map[digest.Digest]*blob)
}

// put commits one decoded entry, replacing whatever was at its path.
func (s *Store) put(d decoded) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.paths[d.entry.Path]; ok && !old.dir {
		s.release(old.digest)
	}

	if d.entry.IsDir {
		s.paths[d.entry.Path] = slot{dir: true}
		return
	}

	b, ok := s.blobs[d.digest]
	if !ok {
		b = &blob{body: d.body}
		s.blobs[d.digest] = b
	}
	b.refs++
	s.paths[d.entry.Path] = slot{mode: d.mode, digest: d.digest}
}

// release drops one reference to a blob. Caller holds s.mu.
func (s *Store) release(dgst digest.Digest) {
	b, ok := s.blobs[dgst]
	if !ok {
		return
	}
	b.refs--
	if b.refs <= 0 {
		delete(s.blobs, dgst)
	}
}

func (s *Store) binaryExtensions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.binaryExts...)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
