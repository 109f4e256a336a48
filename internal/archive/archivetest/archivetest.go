// Package archivetest builds in-memory zip archives for tests.
package archivetest

import (
	"bytes"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

// PNGHeader is not valid UTF-8.
var PNGHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00, 0xff}

// ChapterBody is the content of OEBPS/chapter1.xhtml in Sample.
const ChapterBody = "<html><body>Chapter 1</body></html>"

// File is one archive member. Names ending in "/" become directories.
type File struct {
	Name   string
	Body   []byte
	Stored bool
}

// Build writes files into a zip archive.
func Build(t testing.TB, files ...File) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		method := zip.Deflate
		if f.Stored {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   method,
			Modified: time.Date(2024, 3, 9, 10, 30, 16, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("CreateHeader(%s): %v", f.Name, err)
		}
		if len(f.Body) > 0 {
			if _, err := w.Write(f.Body); err != nil {
				t.Fatalf("Write(%s): %v", f.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	return buf.Bytes()
}

// Sample is a small e-book: mimetype, OEBPS/, OEBPS/chapter1.xhtml and cover.png.
func Sample(t testing.TB) []byte {
	t.Helper()
	return Build(t,
		File{Name: "mimetype", Body: []byte("application/epub+zip"), Stored: true},
		File{Name: "OEBPS/"},
		File{Name: "OEBPS/chapter1.xhtml", Body: []byte(ChapterBody)},
		File{Name: "cover.png", Body: PNGHeader},
	)
}

// SamplePaths is the file list Sample extracts to.
var SamplePaths = []string{"mimetype", "OEBPS/", "OEBPS/chapter1.xhtml", "cover.png"}
