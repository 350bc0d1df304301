package statsapi

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Throttle enforces a minimum gap between the end of one outbound call and
// the start of the next. Acquire holds an internal lock until the returned
// release func is called, so at most one call is in flight at a time.
type Throttle struct {
	mu    sync.Mutex
	clock clockwork.Clock
	gap   time.Duration
	last  time.Time
}

// NewThrottle returns a Throttle with the given gap. A nil clock uses the
// real clock.
func NewThrottle(gap time.Duration, clock clockwork.Clock) *Throttle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Throttle{clock: clock, gap: gap}
}

// Acquire blocks until the gap since the previous call has elapsed. On
// success the caller owns the call slot and must invoke release when the
// call completes. If ctx ends first, Acquire returns ctx.Err() and the slot
// is not taken.
func (t *Throttle) Acquire(ctx context.Context) (release func(), err error) {
	t.mu.Lock()

	if !t.last.IsZero() && t.gap > 0 {
		if wait := t.gap - t.clock.Since(t.last); wait > 0 {
			select {
			case <-ctx.Done():
				t.mu.Unlock()
				return nil, ctx.Err()
			case <-t.clock.After(wait):
			}
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			t.last = t.clock.Now()
			t.mu.Unlock()
		})
	}, nil
}
