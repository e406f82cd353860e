// Package retry provides exponential backoff for calls to external services.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retries exhausted")

// Policy describes how many times to call and how long to wait between calls.
// The wait before attempt n+1 is Min * Multiplier^(n-1), capped at Max.
type Policy struct {
	MaxAttempts int
	Multiplier  float64
	Min         time.Duration
	Max         time.Duration

	// Retryable decides whether err is worth another attempt. Nil retries everything.
	Retryable func(err error) bool
	// Logger receives one warning per retry. Nil disables logging.
	Logger logrus.FieldLogger

	sleep func(ctx context.Context, d time.Duration) error
}

// ReasoningPolicy is used for reasoning-service calls: 5 attempts, 5s doubling to 60s.
func ReasoningPolicy() Policy {
	return Policy{MaxAttempts: 5, Multiplier: 2, Min: 5 * time.Second, Max: 60 * time.Second}
}

// SearchPolicy is used for search calls: 3 attempts, 2s doubling to 10s.
func SearchPolicy() Policy {
	return Policy{MaxAttempts: 3, Multiplier: 2, Min: 2 * time.Second, Max: 10 * time.Second}
}

// FetchPolicy is used for document fetches: 2 attempts, 2s doubling to 5s.
func FetchPolicy() Policy {
	return Policy{MaxAttempts: 2, Multiplier: 2, Min: 2 * time.Second, Max: 5 * time.Second}
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.Min)
	for i := 1; i < attempt; i++ {
		d *= mult
		if p.Max > 0 && d >= float64(p.Max) {
			return p.Max
		}
	}
	if p.Max > 0 && time.Duration(d) > p.Max {
		return p.Max
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts run
// out, or ctx is done.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		wait := p.Backoff(attempt)
		if p.Logger != nil {
			p.Logger.WithFields(logrus.Fields{
				"op":      op,
				"attempt": attempt,
				"wait":    wait.String(),
			}).WithError(lastErr).Warn("retrying after failure")
		}
		if err := sleep(ctx, wait); err != nil {
			return fmt.Errorf("%s: %w (last error: %v)", op, err, lastErr)
		}
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", op, ErrExhausted, attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
