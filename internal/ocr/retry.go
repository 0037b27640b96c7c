package ocr

import (
	"context"
	"fmt"
	"time"
)

// Retry backoff constants for transient extraction failures
// Schedule: 1s → 4s → 16s (capped at 30s)
const (
	RetryInitialBackoff = 1 * time.Second  // First retry after 1 second
	RetryBackoffFactor  = 4                // Multiply by 4 each retry
	RetryMaxBackoff     = 30 * time.Second // Cap between attempts
	RetryMaxAttempts    = 3                // Total attempts including the first
)

// RetryOptions configures a Retrier. Zero fields fall back to the package
// constants; AttemptTimeout of zero leaves attempts unbounded.
type RetryOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	BackoffFactor  int
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration

	// OnRetry, if set, is called before each backoff sleep.
	OnRetry func(req Request, attempt int, backoff time.Duration, err error)
}

// Retrier wraps a Client with bounded retries for transient failures.
// Permanent failures and context cancellation return immediately.
type Retrier struct {
	client Client
	opts   RetryOptions
}

// NewRetrier wraps client with the given retry policy.
func NewRetrier(client Client, opts RetryOptions) *Retrier {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = RetryMaxAttempts
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = RetryInitialBackoff
	}
	if opts.BackoffFactor <= 0 {
		opts.BackoffFactor = RetryBackoffFactor
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = RetryMaxBackoff
	}
	return &Retrier{client: client, opts: opts}
}

// Extract runs the wrapped client until it succeeds, fails permanently, or
// the attempt budget is spent.
func (r *Retrier) Extract(ctx context.Context, req Request) (*Document, error) {
	backoff := r.opts.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if r.opts.OnRetry != nil {
				r.opts.OnRetry(req, attempt, backoff, lastErr)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= time.Duration(r.opts.BackoffFactor)
			if backoff > r.opts.MaxBackoff {
				backoff = r.opts.MaxBackoff
			}
		}

		doc, err := r.extractOnce(ctx, req)
		if err == nil {
			return doc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("extraction failed after %d attempts: %w", r.opts.MaxAttempts, lastErr)
}

func (r *Retrier) extractOnce(ctx context.Context, req Request) (*Document, error) {
	if r.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.AttemptTimeout)
		defer cancel()
	}
	doc, err := r.client.Extract(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	return doc, nil
}

// Name returns the wrapped provider name.
func (r *Retrier) Name() string {
	return r.client.Name()
}

// Close releases the wrapped client.
func (r *Retrier) Close() error {
	return r.client.Close()
}
