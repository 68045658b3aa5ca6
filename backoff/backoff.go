// Package backoff computes retry delays shared by the HTTP crawler and the
// language model client.
package backoff

import (
	"context"
	"time"
)

const defaultBase = 100 * time.Millisecond

// Delay doubles base per attempt (1-based) and caps the result at max when
// max > 0.
func Delay(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	if base <= 0 {
		base = defaultBase
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max > 0 && (delay > max || delay <= 0) {
		delay = max
	}
	return delay
}

// Wait sleeps for d or until ctx is done, whichever comes first.
func Wait(ctx context.Context, d time.Duration) error {
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
