package core

import (
	"context"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/saturnines/msisdn-extractor/pkg/errors"
	"github.com/saturnines/msisdn-extractor/pkg/transport/rest"
)

// maxBodyBytes bounds how much of a response body is read
const maxBodyBytes = 16 << 20

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// APIClient sends requests and reads their bodies
type APIClient struct {
	httpClient rest.HTTPDoer
	limiter    *rate.Limiter
}

// ClientOption defines config for APIClient
type ClientOption func(*APIClient)

// NewClient creates a new APIClient with the given options
func NewClient(options ...ClientOption) *APIClient {
	client := &APIClient{
		httpClient: rest.NewHTTPClient(),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithHTTPDoer replaces the underlying HTTP client
func WithHTTPDoer(doer rest.HTTPDoer) ClientOption {
	return func(c *APIClient) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

// WithClientHTTPOptions applies options to the underlying *http.Client
func WithClientHTTPOptions(options ...rest.HTTPClientOption) ClientOption {
	return func(c *APIClient) {
		c.httpClient = rest.ApplyHTTPClientOptions(c.httpClient, options...)
	}
}

// WithRateLimiter makes every request wait on l first.
// The limiter may be shared between clients.
func WithRateLimiter(l *rate.Limiter) ClientOption {
	return func(c *APIClient) {
		c.limiter = l
	}
}

// Do sends req and reads the whole body. Any status is returned as a Response;
// only transport failures are errors.
func (c *APIClient) Do(ctx context.Context, req *http.Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "failed to read response body")
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
