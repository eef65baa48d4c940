package core

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// doerFunc adapts a function to rest.HTTPDoer
type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// sleepRecorder records requested delays without waiting
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// staticBuilder targets base?msisdn=<id>
type staticBuilder struct{ base string }

func (b staticBuilder) Build(ctx context.Context, msisdn string) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, b.base+"?msisdn="+msisdn, nil)
}
