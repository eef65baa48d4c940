package core

import (
	"context"
	"net/http"
	"time"
)

// RequestBuilder builds the request for one identifier
type RequestBuilder interface {
	Build(ctx context.Context, msisdn string) (*http.Request, error)
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error
