// Package retry computes exponential backoff delays for transient API
// failures.
package retry

import (
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/spiffcs/vitals/internal/constants"
)

// Policy bounds how a failing request is retried.
type Policy struct {
	// MaxAttempts is the number of retries after the first attempt.
	// Zero disables retries.
	MaxAttempts int
	// BaseDelay is the delay before the first retry, before jitter.
	BaseDelay time.Duration
	// MaxDelay caps every delay, including server-provided ones.
	MaxDelay time.Duration
}

// DefaultPolicy returns 3 retries starting at 1s and capped at 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: constants.DefaultMaxAttempts,
		BaseDelay:   constants.DefaultBaseDelay,
		MaxDelay:    constants.DefaultMaxDelay,
	}
}

// Validate reports an error for a policy that cannot be applied.
func (p Policy) Validate() error {
	var errs []error
	if p.MaxAttempts < 0 {
		errs = append(errs, errors.New("max_attempts must be >= 0"))
	}
	if p.BaseDelay < 0 {
		errs = append(errs, errors.New("base_delay must be >= 0"))
	}
	if p.MaxDelay < p.BaseDelay {
		errs = append(errs, errors.New("max_delay must be >= base_delay"))
	}
	return errors.Join(errs...)
}

// Backoff returns the delay before retry n (0-indexed) without jitter:
// BaseDelay * 2^n, capped at MaxDelay.
func (p Policy) Backoff(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	d := float64(p.BaseDelay) * math.Pow(2, float64(n))
	if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Delay returns the wait before retry n. A positive retryAfter replaces the
// computed backoff. Otherwise a uniform jitter of up to half the backoff is
// added. jitter returns values in [0, 1); nil uses math/rand.
// The result never exceeds MaxDelay.
func (p Policy) Delay(n int, retryAfter time.Duration, jitter func() float64) time.Duration {
	if retryAfter > 0 {
		return p.cap(retryAfter)
	}
	if jitter == nil {
		jitter = rand.Float64
	}
	base := p.Backoff(n)
	extra := time.Duration(float64(base) * 0.5 * jitter())
	return p.cap(base + extra)
}

func (p Policy) cap(d time.Duration) time.Duration {
	if d < 0 {
		// overflow from base + extra
		return p.MaxDelay
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
