package oura

import (
	"context"
	"errors"
	"time"

	"github.com/spiffcs/vitals/internal/log"
	"github.com/spiffcs/vitals/internal/metrics"
	"github.com/spiffcs/vitals/internal/retry"
)

// Retrier re-runs an attempt while it fails with a retryable error.
type Retrier struct {
	Policy retry.Policy
	// Sleep waits between attempts. nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter returns values in [0, 1). nil uses math/rand.
	Jitter func() float64
}

// Do runs fn at most Policy.MaxAttempts+1 times. Unauthorized, NotFound,
// Decoding and generic HTTP failures are returned immediately; cancellation
// is returned as KindCancelled without further attempts. After the last
// attempt the final error is returned.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return cancelled("", err)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || KindOf(err) == KindCancelled {
			if ctx.Err() != nil {
				return cancelled(endpointOf(err), ctx.Err())
			}
			return cancelled(endpointOf(err), err)
		}

		var apiErr *Error
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return err
		}
		if attempt >= r.Policy.MaxAttempts {
			log.Debug("retries exhausted", "endpoint", apiErr.Endpoint, "attempts", attempt+1, "error", err)
			return err
		}

		delay := r.Policy.Delay(attempt, apiErr.RetryAfter, r.Jitter)
		metrics.RecordRetry(apiErr.Kind.String())
		log.Debug("retrying request",
			"endpoint", apiErr.Endpoint,
			"kind", apiErr.Kind.String(),
			"retry", attempt+1,
			"delay", delay)

		if err := sleep(ctx, delay); err != nil {
			return cancelled(apiErr.Endpoint, err)
		}
	}
}

// Retry is Do for functions that return a value.
func Retry[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func endpointOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Endpoint
	}
	return ""
}
