package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	waits []time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	return ctx.Err()
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(cpm int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewRateLimiter(cpm, nil)
	r.now = clock.now
	r.sleep = clock.sleep
	return r, clock
}

func TestRateLimiter_Interval(t *testing.T) {
	assert.Equal(t, 2400*time.Millisecond, NewRateLimiter(25, nil).Interval())
	assert.Equal(t, time.Second, NewRateLimiter(60, nil).Interval())
	assert.Equal(t, time.Duration(0), NewRateLimiter(0, nil).Interval())
}

func TestRateLimiter_SpacesConsecutiveCalls(t *testing.T) {
	r, clock := newTestLimiter(60)
	ctx := context.Background()

	require.NoError(t, r.Wait(ctx))
	require.NoError(t, r.Wait(ctx))
	require.NoError(t, r.Wait(ctx))

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.waits)
}

func TestRateLimiter_NoWaitAfterIntervalElapsed(t *testing.T) {
	r, clock := newTestLimiter(60)
	ctx := context.Background()

	require.NoError(t, r.Wait(ctx))
	clock.advance(5 * time.Second)
	require.NoError(t, r.Wait(ctx))

	assert.Empty(t, clock.waits)
}

func TestRateLimiter_ConcurrentCallersGetDistinctSlots(t *testing.T) {
	r, clock := newTestLimiter(60)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Wait(ctx))
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second}, clock.waits)
}

func TestRateLimiter_Disabled(t *testing.T) {
	var r *RateLimiter
	assert.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewRateLimiter(0, nil).Wait(ctx), context.Canceled)
}

func TestRateLimiter_RealSleepHonoursCancel(t *testing.T) {
	r := NewRateLimiter(1, nil)
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiter_CancelledWaitReleasesSlot(t *testing.T) {
	r, clock := newTestLimiter(60)
	ctx := context.Background()
	require.NoError(t, r.Wait(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, r.Wait(cancelled), context.Canceled)

	require.NoError(t, r.Wait(ctx))
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.waits)
}

func TestRateLimiter_CancelledWaitKeepsLaterReservations(t *testing.T) {
	r, _ := newTestLimiter(60)
	ctx := context.Background()
	require.NoError(t, r.Wait(ctx))
	require.NoError(t, r.Wait(ctx))
	start := r.next

	r.release(start.Add(-2 * time.Second))
	assert.Equal(t, start, r.next)
}
