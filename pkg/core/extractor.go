package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/saturnines/msisdn-extractor/pkg/errors"
	"github.com/saturnines/msisdn-extractor/pkg/jsonvalue"
	"github.com/saturnines/msisdn-extractor/pkg/keypath"
	"github.com/saturnines/msisdn-extractor/pkg/transform"
)

// Extractor runs the request, parse and resolve step for one identifier.
type Extractor struct {
	builder    RequestBuilder
	client     *APIClient
	retry      *RetryPolicy
	keys       []string
	transforms map[string]transform.Transformer
	logger     *zap.Logger
}

// ExtractorOption configures an Extractor
type ExtractorOption func(*Extractor)

// WithClient sets the API client
func WithClient(c *APIClient) ExtractorOption {
	return func(e *Extractor) { e.client = c }
}

// WithRetryPolicy sets the retry policy
func WithRetryPolicy(p *RetryPolicy) ExtractorOption {
	return func(e *Extractor) { e.retry = p }
}

// WithTransforms sets per-key transforms
func WithTransforms(t map[string]transform.Transformer) ExtractorOption {
	return func(e *Extractor) { e.transforms = t }
}

// WithExtractorLogger sets the logger
func WithExtractorLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an Extractor for the ordered keys
func NewExtractor(builder RequestBuilder, keys []string, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		builder: builder,
		keys:    append([]string(nil), keys...),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = NewClient()
	}
	if e.retry == nil {
		e.retry = &RetryPolicy{MaxRetries: 0}
	}
	return e
}

// Keys returns the configured key paths in order
func (e *Extractor) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Extract processes one identifier. It never fails: every problem is
// recorded in the returned Result.
func (e *Extractor) Extract(ctx context.Context, msisdn string) Result {
	start := time.Now()
	log := e.logger.With(zap.String("msisdn", msisdn))

	outcome := e.retry.Run(ctx, func(ctx context.Context, attempt int) (*Response, error) {
		req, err := e.builder.Build(ctx, msisdn)
		if err != nil {
			return nil, NotRetryable(err)
		}
		log.Debug("sending request",
			zap.String("url", req.URL.Redacted()),
			zap.Int("attempt", attempt),
		)
		resp, err := e.client.Do(ctx, req)
		if err == nil {
			log.Debug("received response", zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
		}
		return resp, err
	})

	result := Result{
		Identifier: msisdn,
		Attempts:   outcome.Attempts,
		HTTPStatus: outcome.LastStatus,
	}

	if outcome.Err != nil {
		result.Status = StatusRequestFailed
		result.Fields = absentFields(e.keys)
		result.Err = outcome.Err
		log.Warn("request failed",
			zap.Int("attempts", outcome.Attempts),
			zap.Int("status", outcome.LastStatus),
			zap.Error(outcome.Err),
		)
		return result
	}

	doc, err := jsonvalue.Decode(outcome.Response.Body)
	if err != nil {
		result.Status = StatusMalformedResponse
		result.Fields = absentFields(e.keys)
		result.Err = errors.WrapError(err, errors.ErrHTTPResponse, "malformed JSON response")
		log.Warn("malformed response", zap.Int("status", outcome.LastStatus), zap.Error(err))
		return result
	}

	result.Status = StatusSuccess
	result.Fields = e.resolveAll(doc)

	found := 0
	for _, f := range result.Fields {
		if f.Found {
			found++
		} else {
			log.Debug("key not found", zap.String("key", f.Key), zap.Error(f.Miss))
		}
	}
	log.Info("extracted",
		zap.Int("found", found),
		zap.Int("keys", len(e.keys)),
		zap.Int("attempts", outcome.Attempts),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result
}

// resolveAll resolves every key independently against doc
func (e *Extractor) resolveAll(doc jsonvalue.Value) []Field {
	fields := make([]Field, len(e.keys))
	for i, key := range e.keys {
		value, miss := Resolve(doc, key)
		if miss != nil {
			fields[i] = Field{Key: key, Miss: miss}
			continue
		}

		if t, ok := e.transforms[key]; ok {
			transformed, err := t.Transform(value)
			if err != nil {
				segs := keypath.Split(key)
				fields[i] = Field{Key: key, Miss: &PathNotFoundError{
					Path:    key,
					Index:   len(segs) - 1,
					Segment: segs[len(segs)-1],
					Reason:  ReasonTransformFailed,
					Detail:  err.Error(),
				}}
				continue
			}
			value = transformed
		}

		fields[i] = Field{Key: key, Value: value, Found: true}
	}
	return fields
}
