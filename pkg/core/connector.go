package core

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/saturnines/msisdn-extractor/pkg/auth"
	"github.com/saturnines/msisdn-extractor/pkg/config"
	"github.com/saturnines/msisdn-extractor/pkg/errors"
	"github.com/saturnines/msisdn-extractor/pkg/transform"
	"github.com/saturnines/msisdn-extractor/pkg/transport/rest"
)

// Connector drives the Extractor over a batch of identifiers.
type Connector struct {
	extractor *Extractor
	workers   int
	logger    *zap.Logger
}

type connectorOptions struct {
	logger *zap.Logger
	doer   rest.HTTPDoer
	sleep  Sleeper
}

// Option configures NewConnector
type Option func(*connectorOptions)

// WithLogger sets the logger for the whole batch
func WithLogger(l *zap.Logger) Option {
	return func(o *connectorOptions) { o.logger = l }
}

// WithHTTPClient replaces the HTTP client built from the source config.
// An *http.Client still gets the configured timeout and TLS settings.
func WithHTTPClient(doer rest.HTTPDoer) Option {
	return func(o *connectorOptions) { o.doer = doer }
}

// WithSleeper replaces the wait between retry attempts
func WithSleeper(s Sleeper) Option {
	return func(o *connectorOptions) { o.sleep = s }
}

// NewConnector wires a Connector from a finalized job.
func NewConnector(job *config.Job, opts ...Option) (*Connector, error) {
	o := connectorOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	h, err := auth.CreateHandler(job.Source.Auth)
	if err != nil {
		return nil, errors.Wrap(err, "auth handler")
	}
	builder := rest.NewBuilder(job.Source, h)

	// Source settings also apply to an injected *http.Client, on a copy
	clientOpts := []ClientOption{
		WithHTTPDoer(o.doer),
		WithClientHTTPOptions(
			rest.WithTimeout(time.Duration(job.Source.TimeoutSeconds*float64(time.Second))),
			rest.WithInsecureSkipVerify(job.Source.InsecureSkipVerify),
		),
	}
	if rl := job.Source.RateLimit; rl != nil && rl.RequestsPerSecond > 0 {
		burst := rl.Burst
		if burst < 1 {
			burst = 1
		}
		clientOpts = append(clientOpts, WithRateLimiter(rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst)))
	}

	transforms := make(map[string]transform.Transformer, len(job.Extract.Transforms))
	for key, name := range job.Extract.Transforms {
		t, err := transform.DefaultRegistry.Parse(name)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrConfiguration, "transform for "+key)
		}
		transforms[key] = t
	}

	retry := NewRetryPolicy(job.Source.Retry)
	retry.Logger = o.logger
	retry.Sleep = o.sleep

	extractor := NewExtractor(builder, job.Extract.Keys,
		WithClient(NewClient(clientOpts...)),
		WithRetryPolicy(retry),
		WithTransforms(transforms),
		WithExtractorLogger(o.logger),
	)

	return NewBatch(extractor, job.Workers, o.logger), nil
}

// NewBatch creates a Connector around an existing Extractor.
// workers below 1 means sequential.
func NewBatch(extractor *Extractor, workers int, logger *zap.Logger) *Connector {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{extractor: extractor, workers: workers, logger: logger}
}

// Keys returns the key paths every Result carries
func (c *Connector) Keys() []string {
	return c.extractor.Keys()
}

// Run processes every identifier and returns exactly one Result per input,
// in input order. A failed identifier never stops the batch. After ctx is
// cancelled the remaining identifiers are recorded as request_failed.
func (c *Connector) Run(ctx context.Context, msisdns []string) ResultSet {
	results := make(ResultSet, len(msisdns))
	total := len(msisdns)
	start := time.Now()

	c.logger.Info("starting batch", zap.Int("total", total), zap.Int("workers", c.workers))

	if c.workers == 1 {
		for i, id := range msisdns {
			if err := ctx.Err(); err != nil {
				results[i] = c.cancelled(id, err)
				continue
			}
			c.logger.Info("Processing", zap.Int("index", i+1), zap.Int("total", total), zap.String("msisdn", id))
			results[i] = c.extractor.Extract(ctx, id)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(c.workers)
		for i, id := range msisdns {
			if err := ctx.Err(); err != nil {
				results[i] = c.cancelled(id, err)
				continue
			}
			g.Go(func() error {
				c.logger.Info("Processing", zap.Int("index", i+1), zap.Int("total", total), zap.String("msisdn", id))
				results[i] = c.extractor.Extract(ctx, id)
				return nil
			})
		}
		_ = g.Wait()
	}

	s := results.Summary()
	c.logger.Info("batch finished",
		zap.Int("total", s.Total),
		zap.Int("success", s.Success),
		zap.Int("request_failed", s.RequestFailed),
		zap.Int("malformed_response", s.MalformedResponse),
		zap.Any("misses", s.Misses),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results
}

func (c *Connector) cancelled(msisdn string, err error) Result {
	return Result{
		Identifier: msisdn,
		Fields:     absentFields(c.extractor.keys),
		Status:     StatusRequestFailed,
		Err:        errors.WrapError(err, errors.ErrHTTPRequest, "batch cancelled"),
	}
}
