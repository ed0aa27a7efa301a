// Package retry provides a bounded retry wrapper for operations that
// fail with a transient error class. The caller decides which errors
// are worth retrying; everything else fails immediately.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy controls how Do retries an operation.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values <= 0 default to 1 (no retries).
	MaxAttempts int

	// Delay is the fixed pause between attempts.
	Delay time.Duration

	// Retryable reports whether the error is transient. A nil predicate
	// means nothing is retryable.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, returns a non-retryable error, or all
// attempts are used up. The delay between attempts is fixed and
// cancellable through ctx. On exhaustion the returned error names the
// number of attempts made and wraps the last underlying error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}

		if p.Retryable == nil || !p.Retryable(err) {
			return zero, err
		}

		lastErr = err
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	return zero, fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}
