package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/epubpress/internal/config"
	"github.com/hpungsan/epubpress/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates the HTTP server for the library UI and the archive
// reader. Requests under the session's reserved prefix are answered from
// the archive cache; misses go to the fallback built from cfg.
func NewServer(database *sql.DB, cfg *config.Config, sess *session.Session, version, bind string, port int) (*http.Server, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	fallback, err := newFallback(cfg)
	if err != nil {
		return nil, err
	}

	h := &Handlers{
		db:       database,
		cfg:      cfg,
		sess:     sess,
		renderer: NewRenderer(templateSub, version),
	}

	ui := http.NewServeMux()
	ui.HandleFunc("GET /{$}", h.HandleLibrary)
	ui.HandleFunc("POST /books", h.HandleUpload)
	ui.HandleFunc("GET /books/{id}", h.HandleDetail)
	ui.HandleFunc("GET /books/{id}/archive", h.HandleDownload)
	ui.HandleFunc("POST /books/{id}/open", h.HandleOpen)
	ui.HandleFunc("POST /books/{id}/notes", h.HandleNotes)
	ui.HandleFunc("DELETE /books/{id}", h.HandleDelete)
	ui.HandleFunc("POST /messages", h.HandleMessage)
	ui.HandleFunc("GET /archive", h.HandleArchive)
	ui.HandleFunc("DELETE /archive", h.HandleArchiveReset)
	ui.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	// Archive content carries its own markup and styles, so the UI's
	// security headers are not applied under the reserved prefix.
	root := http.NewServeMux()
	root.Handle(sess.Resolver().Prefix(), sess.Interceptor().Middleware(fallback))
	root.Handle("/", securityHeaders(ui))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// newFallback returns the handler for reserved-prefix requests the cache
// cannot answer: a reverse proxy to UpstreamURL, else a file server on
// StaticDir, else 404.
func newFallback(cfg *config.Config) (http.Handler, error) {
	if cfg == nil {
		return http.NotFoundHandler(), nil
	}
	if cfg.UpstreamURL != "" {
		target, err := url.Parse(cfg.UpstreamURL)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("invalid upstream_url %q", cfg.UpstreamURL)
		}
		return httputil.NewSingleHostReverseProxy(target), nil
	}
	if cfg.StaticDir != "" {
		return http.FileServer(http.Dir(cfg.StaticDir)), nil
	}
	return http.NotFoundHandler(), nil
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("epubpress running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
