package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds the fetch-and-store loop of a save.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Backoff is the wait after failed attempt number attempt (1-based):
// base * 2^attempt, capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func (p RetryPolicy) backoff() retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		if attempt >= p.Attempts {
			return 0, true
		}
		return Backoff(attempt, p.BaseDelay, p.MaxDelay), false
	})
}

// retryValue runs f until it succeeds, the attempts run out, or ctx ends.
// Every error from f is retried. When ctx ends first the returned error
// also carries the last failure.
func retryValue[T any](ctx context.Context, p RetryPolicy, f func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var (
		attempt int
		lastErr error
	)
	v, err := retry.DoValue(ctx, p.backoff(), func(ctx context.Context) (T, error) {
		attempt++
		v, err := f(ctx, attempt)
		if err != nil {
			lastErr = err
			return v, retry.RetryableError(err)
		}
		return v, nil
	})
	if err != nil && ctx.Err() != nil && lastErr != nil && err == ctx.Err() {
		return v, fmt.Errorf("%w (last error: %v)", err, lastErr)
	}
	return v, err
}
