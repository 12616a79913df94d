package infra

import (
	"context"
	"errors"
	"time"
)

// Retry runs fn up to attempts times with exponentially growing delays
// between failures. Context cancellation is never retried. Used by the
// outbound API clients (speech-to-text, pushover); device traffic is
// deliberately retry-free — the reconciler's polling cadence is the
// retry policy there.
func Retry(ctx context.Context, attempts int, initialDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := initialDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return lastErr
}
