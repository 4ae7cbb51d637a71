// Package transport provides the retrying HTTP client shared by every Maps
// service adapter, and the context-aware pause used for rate limiting.
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Options controls retry behaviour. Attempts counts the first try, so the
// default of 3 means one call plus two retries.
type Options struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Doer is the part of *http.Client the adapters depend on.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewClient returns an *http.Client that retries connection errors, 429 and
// 5xx responses with exponential backoff starting at opts.Backoff. Once the
// attempts are spent the last error is returned to the caller.
func NewClient(opts Options) *http.Client {
	if opts.Attempts < 1 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.MaxBackoff < opts.Backoff {
		opts.MaxBackoff = opts.Backoff * 16
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.Attempts - 1
	rc.RetryWaitMin = opts.Backoff
	rc.RetryWaitMax = opts.MaxBackoff
	rc.Backoff = retryablehttp.DefaultBackoff
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	if opts.Logger != nil {
		rc.Logger = opts.Logger
	} else {
		rc.Logger = nil
	}
	return rc.StandardClient()
}

// Wait blocks for d or until ctx is done. A non-positive d returns at once.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
