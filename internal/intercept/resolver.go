// Package intercept answers resource requests under a reserved URL prefix
// from an archive store and bridges "process archive" messages to it.
package intercept

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/epubpress/internal/archive"
)

// RequestResolver turns a request into a synthesized response, or reports
// that the request should go to the network untouched.
type RequestResolver interface {
	Resolve(req *http.Request) (*http.Response, bool)
}

// Lookuper is the read side of an archive store.
type Lookuper interface {
	Lookup(path string) (archive.Content, bool)
}

// Resolver resolves requests under Prefix against a store.
type Resolver struct {
	store  Lookuper
	prefix string
}

// NewResolver creates a Resolver for the given reserved prefix.
// A missing leading or trailing slash is added.
func NewResolver(store Lookuper, prefix string) *Resolver {
	return &Resolver{store: store, prefix: normalizePrefix(prefix)}
}

// Prefix returns the normalized reserved prefix.
func (r *Resolver) Prefix() string { return r.prefix }

// ArchivePath returns the archive-relative key for a URL path and whether
// the path lies under the reserved prefix at all.
func (r *Resolver) ArchivePath(urlPath string) (string, bool) {
	if !strings.HasPrefix(urlPath, r.prefix) {
		return "", false
	}
	return urlPath[len(r.prefix):], true
}

// Resolve implements RequestResolver.
func (r *Resolver) Resolve(req *http.Request) (*http.Response, bool) {
	if req == nil || req.URL == nil {
		return nil, false
	}
	key, ok := r.ArchivePath(req.URL.Path)
	if !ok {
		return nil, false
	}
	content, ok := r.store.Lookup(key)
	if !ok {
		return nil, false
	}
	return synthesize(req, key, content), true
}

func synthesize(req *http.Request, key string, content archive.Content) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", ContentTypeFor(key))
	header.Set("Content-Length", strconv.Itoa(content.Size()))
	header.Set("ETag", strconv.Quote(content.Digest.String()))

	var body io.ReadCloser = http.NoBody
	if req.Method != http.MethodHead {
		body = io.NopCloser(bytes.NewReader(content.Bytes()))
	}

	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          body,
		ContentLength: int64(content.Size()),
		Request:       req,
	}
}

func normalizePrefix(prefix string) string {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
