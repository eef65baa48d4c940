package core

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/saturnines/msisdn-extractor/pkg/config"
	"github.com/saturnines/msisdn-extractor/pkg/errors"
)

// MaxRetryDelay caps every computed or server-requested delay
const MaxRetryDelay = 30 * time.Second

// errNotRetryable marks attempt errors that must end the loop
var errNotRetryable = errors.New("not retryable")

// NotRetryable marks err so the retry loop stops on it
func NotRetryable(err error) error {
	return errors.Mark(err, errNotRetryable)
}

// HTTPError wraps HTTP error responses
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, strings.TrimSpace(strings.TrimPrefix(e.Status, strconv.Itoa(e.StatusCode))))
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// AttemptFunc performs one attempt; attempt starts at 1
type AttemptFunc func(ctx context.Context, attempt int) (*Response, error)

// Outcome is what the retry loop ended with
type Outcome struct {
	Response   *Response // set only on a 2xx response
	Attempts   int
	LastStatus int // 0 if no response was ever received
	Err        error
}

// RetryPolicy is a bounded retry loop: at most 1+MaxRetries attempts.
type RetryPolicy struct {
	MaxRetries    int
	Backoff       time.Duration
	Strategy      config.BackoffStrategy
	Multiplier    float64
	RetryStatuses []int // empty means every status >= 400

	Sleep  Sleeper
	Logger *zap.Logger
}

// NewRetryPolicy builds a policy from the retry config
func NewRetryPolicy(cfg config.RetryConfig) *RetryPolicy {
	strategy := cfg.BackoffStrategy
	if strategy == "" {
		strategy = config.BackoffExponential
	}
	multiplier := cfg.BackoffMultiplier
	if multiplier == 0 {
		multiplier = config.DefaultBackoffMultiplier
	}
	return &RetryPolicy{
		MaxRetries:    cfg.MaxRetriesValue(),
		Backoff:       time.Duration(cfg.BackoffSecondsValue() * float64(time.Second)),
		Strategy:      strategy,
		Multiplier:    multiplier,
		RetryStatuses: cfg.RetryStatuses,
	}
}

// Run calls fn until it succeeds, fails permanently or attempts run out.
func (p *RetryPolicy) Run(ctx context.Context, fn AttemptFunc) Outcome {
	logger := p.logger()
	maxAttempts := p.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var out Outcome
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out.Attempts = attempt

		resp, err := fn(ctx, attempt)
		if err == nil {
			out.LastStatus = resp.StatusCode
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				out.Response = resp
				out.Err = nil
				return out
			}
			err = &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
			if !p.retryableStatus(resp.StatusCode) {
				out.Err = errors.WrapError(err, errors.ErrHTTPResponse, "non-retryable status")
				return out
			}
		} else {
			if ctxErr := ctx.Err(); ctxErr != nil {
				out.Err = errors.WrapError(ctxErr, errors.ErrHTTPRequest, "request cancelled")
				return out
			}
			if errors.Is(err, errNotRetryable) {
				out.Err = errors.WrapError(err, errors.ErrHTTPRequest, "request failed")
				return out
			}
		}
		out.Err = err

		// Don't wait after the last attempt
		if attempt == maxAttempts {
			break
		}

		delay := p.delay(attempt, resp)
		logger.Warn("retrying request",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := p.sleep(ctx, delay); err != nil {
			out.Err = errors.WrapError(err, errors.ErrHTTPRequest, "request cancelled")
			return out
		}
	}

	out.Err = errors.WrapError(out.Err, errors.ErrHTTPRequest,
		fmt.Sprintf("request failed after %d attempts", out.Attempts))
	return out
}

// Delay returns the wait before attempt n+1 after attempt n (n >= 1) failed
func (p *RetryPolicy) Delay(n int) time.Duration {
	return p.delay(n, nil)
}

func (p *RetryPolicy) delay(n int, resp *Response) time.Duration {
	if resp != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) {
		if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && secs >= 0 {
			return capDelay(time.Duration(secs) * time.Second)
		}
	}

	var d float64
	switch p.Strategy {
	case config.BackoffFixed:
		d = float64(p.Backoff)
	case config.BackoffLinear:
		d = float64(p.Backoff) * float64(n)
	default:
		d = float64(p.Backoff) * math.Pow(p.Multiplier, float64(n-1))
	}
	if d > float64(MaxRetryDelay) || math.IsInf(d, 0) || math.IsNaN(d) {
		return MaxRetryDelay
	}
	return capDelay(time.Duration(d))
}

func capDelay(d time.Duration) time.Duration {
	if d > MaxRetryDelay {
		return MaxRetryDelay
	}
	if d < 0 {
		return 0
	}
	return d
}

// retryableStatus reports whether an error status is worth another attempt
func (p *RetryPolicy) retryableStatus(code int) bool {
	if code < 400 {
		return false
	}
	if len(p.RetryStatuses) == 0 {
		return true
	}
	for _, s := range p.RetryStatuses {
		if s == code {
			return true
		}
	}
	return false
}

func (p *RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

func (p *RetryPolicy) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// SleepContext waits for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
