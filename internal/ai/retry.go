package ai

import (
	"context"
	"errors"
	"net"
	"time"

	"google.golang.org/api/googleapi"
)

// Retriable reports whether an upstream failure is worth retrying: rate
// limiting and transient 5xx from the hosted API, plus network timeouts.
// Validation-level failures (4xx other than 429) are not.
func Retriable(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 429 || gerr.Code >= 500
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return false
}

// Do runs fn up to attempts times with doubling backoff between tries.
// Non-retriable errors pass through immediately. A context deadline or
// cancellation stops the loop and is reported as ErrTimeout when the
// deadline was hit.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	delay := baseDelay
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		if !Retriable(err) || i == attempts-1 {
			return err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}
