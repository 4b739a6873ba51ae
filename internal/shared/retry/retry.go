package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Window bounds conflict retries when the caller's context carries no
// earlier deadline.
const Window = 5 * time.Second

const (
	baseDelay = 2 * time.Millisecond
	maxDelay  = 100 * time.Millisecond
)

// OnConflict reruns fn while it fails with conflict, sleeping a jittered
// delay that doubles up to maxDelay between runs. It stops when ctx is
// done or the window closes and returns the last error. onRetry may be
// nil.
func OnConflict(ctx context.Context, conflict error, fn func() error, onRetry func(attempt int, wait time.Duration)) error {
	deadline := time.Now().Add(Window)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	delay := baseDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if !errors.Is(err, conflict) {
			return err
		}

		wait := jitter(delay)
		if time.Now().Add(wait).After(deadline) {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxDelay)
	}
}

// jitter spreads contenders over [d/2, d].
func jitter(d time.Duration) time.Duration {
	return d/2 + rand.N(d/2+1)
}
