package llm

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RateLimiter enforces a minimum interval between reasoning-service calls.
// Callers block until their slot arrives instead of failing.
type RateLimiter struct {
	interval time.Duration
	next     time.Time // earliest time the next call may start
	mu       sync.Mutex
	logger   logrus.FieldLogger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter allowing callsPerMinute calls. Zero or less disables waiting.
func NewRateLimiter(callsPerMinute int, logger logrus.FieldLogger) *RateLimiter {
	var interval time.Duration
	if callsPerMinute > 0 {
		interval = time.Minute / time.Duration(callsPerMinute)
	}
	return &RateLimiter{
		interval: interval,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepUntil,
	}
}

// Interval returns the minimum spacing between calls.
func (r *RateLimiter) Interval() time.Duration {
	return r.interval
}

// Wait reserves the next call slot and blocks until it arrives or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.interval <= 0 {
		return ctx.Err()
	}

	r.mu.Lock()
	now := r.now()
	slot := now
	if r.next.After(now) {
		slot = r.next
	}
	r.next = slot.Add(r.interval)
	r.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return ctx.Err()
	}
	if r.logger != nil {
		r.logger.WithField("wait", wait.String()).Debug("rate limiter waiting")
	}
	if err := r.sleep(ctx, wait); err != nil {
		r.release(slot)
		return err
	}
	return nil
}

// release returns an unused slot when no later caller has queued behind it.
func (r *RateLimiter) release(slot time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next.Equal(slot.Add(r.interval)) {
		r.next = slot
	}
}

func sleepUntil(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
