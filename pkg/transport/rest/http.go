package rest

import (
	"crypto/tls"
	"net/http"
	"time"
)

// HTTPDoer is a minimal interface for HTTP clients
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPClientOption configures the *http.Client built by NewHTTPClient
type HTTPClientOption func(*http.Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) HTTPClientOption {
	return func(c *http.Client) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification
func WithInsecureSkipVerify(skip bool) HTTPClientOption {
	return func(c *http.Client) {
		if !skip {
			return
		}
		base, ok := c.Transport.(*http.Transport)
		if !ok || base == nil {
			base = http.DefaultTransport.(*http.Transport)
		}
		t := base.Clone()
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{}
		}
		t.TLSClientConfig.InsecureSkipVerify = true
		c.Transport = t
	}
}

// NewHTTPClient returns a client with a 30s timeout and the given options applied
func NewHTTPClient(options ...HTTPClientOption) *http.Client {
	c := &http.Client{Timeout: 30 * time.Second}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// ApplyHTTPClientOptions applies options to doer when it is an *http.Client.
// Other doers are returned unchanged.
func ApplyHTTPClientOptions(doer HTTPDoer, options ...HTTPClientOption) HTTPDoer {
	c, ok := doer.(*http.Client)
	if !ok {
		return doer
	}
	clone := *c
	for _, opt := range options {
		opt(&clone)
	}
	return &clone
}
