package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/epubpress/internal/archive/archivetest"
	"github.com/hpungsan/epubpress/internal/config"
	"github.com/hpungsan/epubpress/internal/intercept"
)

type offlineTransport struct{ calls int }

func (o *offlineTransport) RoundTrip(*http.Request) (*http.Response, error) {
	o.calls++
	return nil, fmt.Errorf("offline")
}

func TestSession_ProcessThenServe(t *testing.T) {
	network := &offlineTransport{}
	s := New(config.DefaultConfig(), network)
	defer s.Close()

	reply, ok, err := s.Send(context.Background(), intercept.Message{
		Type:     intercept.TypeProcessArchive,
		FileName: "book.epub",
		File:     bytes.NewReader(archivetest.Sample(t)),
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, reply.OK())
	require.Equal(t, archivetest.SamplePaths, reply.FileList)

	client := s.Interceptor().Client()

	resp, err := client.Get("http://reader.local/epub/OEBPS/chapter1.xhtml")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, "application/xhtml+xml", resp.Header.Get("Content-Type"))
	require.Equal(t, archivetest.ChapterBody, string(body))

	resp, err = client.Get("http://reader.local/epub/cover.png")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	require.Equal(t, archivetest.PNGHeader, body)

	require.Zero(t, network.calls)

	_, err = client.Get("http://reader.local/epub/OEBPS/missing.xhtml")
	require.Error(t, err)
	require.Equal(t, 1, network.calls)
}

func TestSession_MissingFileReply(t *testing.T) {
	s := New(nil, &offlineTransport{})
	defer s.Close()

	reply, ok, err := s.Send(context.Background(), intercept.Message{
		Type:     intercept.TypeProcessArchive,
		FileName: "book.epub",
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, intercept.StatusError, reply.Status)
	require.Equal(t, "book.epub", reply.FileName)
	require.Equal(t, "File is undefined or not provided", reply.Error)
}

func TestSession_CustomPrefixAndBinaryExtensions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ReservedPrefix = "/books"
	cfg.BinaryExtensions = []string{".jpg"}
	s := New(cfg, &offlineTransport{})
	defer s.Close()

	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}
	_, err := s.Store().Extract(context.Background(), archivetest.Build(t,
		archivetest.File{Name: "photo.jpg", Body: jpeg},
	))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Interceptor().Middleware(http.NotFoundHandler()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/photo.jpg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	require.Equal(t, jpeg, rec.Body.Bytes())
}

func TestSession_CloseDiscardsCache(t *testing.T) {
	s := New(nil, &offlineTransport{})
	_, err := s.Store().Extract(context.Background(), archivetest.Sample(t))
	require.NoError(t, err)
	require.NotZero(t, s.Store().Len())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.Zero(t, s.Store().Len())

	_, _, err = s.Send(context.Background(), intercept.Message{Type: intercept.TypeProcessArchive})
	require.ErrorIs(t, err, intercept.ErrWorkerStopped)
}

func TestSession_Reset(t *testing.T) {
	s := New(nil, &offlineTransport{})
	defer s.Close()

	_, err := s.Store().Extract(context.Background(), archivetest.Sample(t))
	require.NoError(t, err)
	s.Reset()
	_, ok := s.Store().Lookup("cover.png")
	require.False(t, ok)
}
