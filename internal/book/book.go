package book

// MediaTypeArchive is the media type of a book's stored archive file.
const MediaTypeArchive = "application/epub+zip"

// Book is a library entry for one imported e-book archive.
type Book struct {
	// ID is a ULID that uniquely identifies this book
	ID string `json:"id"`

	// Title is the display title (defaults to the file name without extension)
	Title string `json:"title"`

	// FileName is the archive's original file name
	FileName string `json:"file_name"`

	// Notes is optional markdown written by the reader
	Notes *string `json:"notes,omitempty"`

	// SizeBytes is the size of the stored archive
	SizeBytes int64 `json:"size_bytes"`

	// Digest is the sha256 content address of the stored archive
	Digest string `json:"digest"`

	// CreatedAt is the Unix timestamp when the book was added
	CreatedAt int64 `json:"created_at"`
}

// File is a blob attached to a book. The book's archive is one of them.
type File struct {
	ID        string `json:"id"`
	BookID    string `json:"book_id"`
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt int64  `json:"created_at"`

	// Data is only populated by reads that ask for it.
	Data []byte `json:"-"`
}

// IsArchive reports whether the file is the book's stored archive.
func (f *File) IsArchive() bool {
	return f.MediaType == MediaTypeArchive
}
