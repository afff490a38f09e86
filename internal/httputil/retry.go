// SPDX-License-Identifier: MIT
package httputil

import (
	"context"
	"errors"
	"time"
)

// Retry defaults.
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// RetryableError marks a transient failure worth another attempt.
type RetryableError struct{ Err error }

// Error implements the error interface.
func (e *RetryableError) Error() string { return e.Err.Error() }

// Unwrap exposes the transient failure.
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn up to attempts times, doubling delay between attempts.
//
// Only errors wrapping a [RetryableError] are retried; the last error is returned once the
// attempts run out.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) (err error) {
	attempts = max(attempts, 1)

	for attempt := range attempts {
		if err = fn(); err == nil || !errors.As(err, new(*RetryableError)) {
			return
		}

		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}

	return
}
