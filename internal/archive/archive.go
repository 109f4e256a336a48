// Package archive holds the in-memory extraction cache for e-book archives.
//
// A Store unpacks zip-structured archives into a path → content mapping.
// Bodies are content addressed: identical bodies extracted under different
// paths (or from different archives) are kept once and reference counted.
//
// The mapping is cumulative. Extracting a second archive adds to it and
// overwrites any path the two archives share (last write wins); there is no
// per-archive namespace. Callers that need isolation must Reset between
// archives.
package archive

import (
	"time"

	"github.com/opencontainers/go-digest"
)

// DecodeMode selects how an entry's bytes are held after extraction.
type DecodeMode string

const (
	// DecodeText holds the entry as UTF-8 text; ill-formed sequences become U+FFFD.
	DecodeText DecodeMode = "text"
	// DecodeBinary holds the entry's bytes unchanged.
	DecodeBinary DecodeMode = "binary"
)

// Options is zip-format metadata carried through extraction untouched.
type Options struct {
	Method           uint16 `json:"method"`
	Comment          string `json:"comment,omitempty"`
	CreatorVersion   uint16 `json:"creatorVersion"`
	ReaderVersion    uint16 `json:"readerVersion"`
	Flags            uint16 `json:"flags"`
	ExternalAttrs    uint32 `json:"externalAttrs"`
	CRC32            uint32 `json:"crc32"`
	CompressedSize   uint64 `json:"compressedSize"`
	UncompressedSize uint64 `json:"uncompressedSize"`
	Extra            []byte `json:"extra,omitempty"`
}

// Entry is one manifest record of an extraction.
type Entry struct {
	Path       string    `json:"path"`
	IsDir      bool      `json:"isDirectory"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Options    Options   `json:"originalOptions"`
}

// ExtractionResult lists what one Extract call put into the store.
// FileList and Manifest share the archive's central-directory order.
type ExtractionResult struct {
	FileList []string `json:"fileList"`
	Manifest []Entry  `json:"manifest"`
}

// Content is a stored body as returned by Lookup.
// The byte slice is shared with the store and must not be modified.
type Content struct {
	Mode   DecodeMode
	Digest digest.Digest
	body   []byte
}

// Bytes returns the body as served.
func (c Content) Bytes() []byte { return c.body }

// Text returns the body as a string.
func (c Content) Text() string { return string(c.body) }

// Size returns the body length in bytes.
func (c Content) Size() int { return len(c.body) }

// IsBinary reports whether the entry was kept as raw bytes.
func (c Content) IsBinary() bool { return c.Mode == DecodeBinary }

// Stats summarizes the store's current contents.
type Stats struct {
	Entries     int   `json:"entries"`
	Directories int   `json:"directories"`
	Blobs       int   `json:"blobs"`
	Bytes       int64 `json:"bytes"`
}
