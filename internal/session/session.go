// Package session ties one archive cache to the interceptor and message
// worker that serve it. The cache lives exactly as long as the Session.
package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/hpungsan/epubpress/internal/archive"
	"github.com/hpungsan/epubpress/internal/config"
	"github.com/hpungsan/epubpress/internal/intercept"
)

// Session owns a Store, the Interceptor reading from it and the Worker
// writing to it.
type Session struct {
	store       *archive.Store
	resolver    *intercept.Resolver
	interceptor *intercept.Interceptor
	worker      *intercept.Worker

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Session from cfg and starts its worker. network carries
// requests the interceptor cannot answer; nil uses http.DefaultTransport.
// A nil cfg uses config.DefaultConfig.
func New(cfg *config.Config, network http.RoundTripper) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	prefix := cfg.ReservedPrefix
	if prefix == "" {
		prefix = config.DefaultConfig().ReservedPrefix
	}

	store := archive.New(archive.WithBinaryExtensions(cfg.BinaryExtensions...))
	resolver := intercept.NewResolver(store, prefix)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		store:       store,
		resolver:    resolver,
		interceptor: intercept.NewInterceptor(resolver, network),
		worker:      intercept.NewWorker(intercept.NewArchiveHandler(store, cfg.MaxArchiveBytes), 0),
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		_ = s.worker.Run(ctx)
	}()

	return s
}

// Store returns the session's archive cache.
func (s *Session) Store() *archive.Store { return s.store }

// Resolver returns the request resolver bound to the store.
func (s *Session) Resolver() *intercept.Resolver { return s.resolver }

// Interceptor returns the session's interceptor.
func (s *Session) Interceptor() *intercept.Interceptor { return s.interceptor }

// Worker returns the session's message worker.
func (s *Session) Worker() *intercept.Worker { return s.worker }

// Send posts msg to the worker and waits for its reply.
func (s *Session) Send(ctx context.Context, msg intercept.Message) (intercept.Reply, bool, error) {
	return s.worker.Send(ctx, msg)
}

// Reset empties the archive cache.
func (s *Session) Reset() {
	s.store.Reset()
}

// Close stops the worker and discards the cache. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		s.store.Reset()
	})
	return nil
}
