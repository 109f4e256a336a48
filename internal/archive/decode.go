package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
)

// DefaultBinaryExtensions are the entry suffixes kept as raw bytes.
// Other binary formats (jpg, gif, fonts) are decoded as text and will not
// round-trip; see WithBinaryExtensions.
var DefaultBinaryExtensions = []string{".png"}

// decoded is one archive entry ready to be committed.
type decoded struct {
	entry  Entry
	mode   DecodeMode
	body   []byte
	digest digest.Digest
}

// modeFor picks the decode mode from the entry name's suffix.
// Matching is case-sensitive: "COVER.PNG" is decoded as text.
func modeFor(name string, binaryExts []string) DecodeMode {
	for _, ext := range binaryExts {
		if strings.HasSuffix(name, ext) {
			return DecodeBinary
		}
	}
	return DecodeText
}

// openArchive parses data as a zip archive.
func openArchive(data []byte) (*zip.Reader, error) {
	return zip.NewReader(bytes.NewReader(data), int64(len(data)))
}

// decodeAll reads every file of zr. The result keeps central-directory order
// with duplicate names collapsed onto their first position (the later entry's
// metadata and body win).
func decodeAll(ctx context.Context, zr *zip.Reader, binaryExts []string) ([]decoded, error) {
	out := make([]decoded, len(zr.File))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, f := range zr.File {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := decodeFile(f, binaryExts)
			if err != nil {
				return err
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return collapseDuplicates(out), nil
}

func collapseDuplicates(in []decoded) []decoded {
	index := make(map[string]int, len(in))
	out := make([]decoded, 0, len(in))
	for _, d := range in {
		if i, ok := index[d.entry.Path]; ok {
			out[i] = d
			continue
		}
		index[d.entry.Path] = len(out)
		out = append(out, d)
	}
	return out
}

func decodeFile(f *zip.File, binaryExts []string) (decoded, error) {
	d := decoded{
		entry: Entry{
			Path:       f.Name,
			IsDir:      f.FileInfo().IsDir(),
			ModifiedAt: f.Modified,
			Options: Options{
				Method:           f.Method,
				Comment:          f.Comment,
				CreatorVersion:   f.CreatorVersion,
				ReaderVersion:    f.ReaderVersion,
				Flags:            f.Flags,
				ExternalAttrs:    f.ExternalAttrs,
				CRC32:            f.CRC32,
				CompressedSize:   f.CompressedSize64,
				UncompressedSize: f.UncompressedSize64,
				Extra:            f.Extra,
			},
		},
	}
	if d.entry.IsDir {
		return d, nil
	}

	rc, err := f.Open()
	if err != nil {
		return decoded{}, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return decoded{}, fmt.Errorf("read %s: %w", f.Name, err)
	}

	d.mode = modeFor(f.Name, binaryExts)
	d.body = raw
	if d.mode == DecodeText {
		d.body = decodeText(raw)
	}
	d.digest = digest.FromBytes(d.body)
	return d, nil
}

// decodeText decodes raw as UTF-8 the way a browser's TextDecoder does:
// a leading byte order mark is dropped and ill-formed sequences become U+FFFD.
func decodeText(raw []byte) []byte {
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil {
		// The decoder replaces rather than fails; keep the bytes if it ever does.
		return raw
	}
	return out
}
