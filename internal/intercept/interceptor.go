package intercept

import (
	"io"
	"net/http"
)

// Interceptor gates outbound requests: resolved ones are answered from the
// archive store, everything else goes out exactly as it came in.
type Interceptor struct {
	resolver RequestResolver
	next     http.RoundTripper
}

// Interface compliance.
var _ http.RoundTripper = (*Interceptor)(nil)

// NewInterceptor wraps next, which carries unresolved requests to the network.
// A nil next uses http.DefaultTransport.
func NewInterceptor(resolver RequestResolver, next http.RoundTripper) *Interceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Interceptor{resolver: resolver, next: next}
}

// RoundTrip implements http.RoundTripper. Fallback responses and errors from
// the wrapped transport are returned unchanged.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if resp, ok := i.resolver.Resolve(req); ok {
		return resp, nil
	}
	return i.next.RoundTrip(req)
}

// Client returns an http.Client whose requests pass through the interceptor.
func (i *Interceptor) Client() *http.Client {
	return &http.Client{Transport: i}
}

// Middleware answers resolved requests itself and hands the rest to next.
func (i *Interceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, ok := i.resolver.Resolve(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		defer resp.Body.Close()

		for k, vs := range resp.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	})
}
