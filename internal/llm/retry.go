package llm

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds attempts on a remote call. The delay after attempt n is
// Multiplier*2^(n-1), clamped to [Min, Max].
type RetryPolicy struct {
	MaxAttempts int
	Multiplier  time.Duration
	Min         time.Duration
	Max         time.Duration
	// Retryable reports whether an error may be retried; nil retries everything
	Retryable func(error) bool
}

// DefaultRetryPolicy is three attempts with 4s..10s exponential waits
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Multiplier:  time.Second,
		Min:         4 * time.Second,
		Max:         10 * time.Second,
	}
}

// Delay returns the wait after the given 1-based attempt
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Multiplier
	for i := 1; i < attempt && (p.Max <= 0 || d < p.Max); i++ {
		d *= 2
	}
	if d < p.Min {
		d = p.Min
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn until it succeeds, a non-retryable error occurs, or attempts run out.
// The returned error is the last failure.
func (p RetryPolicy) Do(ctx context.Context, sleep SleepFunc, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.Delay(attempt-1)); err != nil {
				return fmt.Errorf("%w (last error: %w)", err, lastErr)
			}
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
