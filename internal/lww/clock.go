package lww

import (
	"sync"
	"time"
)

// Clock issues the client timestamps stamped onto operations. It is a hybrid
// of wall-clock milliseconds and a monotonic counter: Tick returns
// max(now_ms, last+1), and Observe folds in timestamps seen from remote
// replicas so a node behind a fast peer keeps generating advancing values.
type Clock struct {
	now  func() time.Time
	last int64
	mu   sync.Mutex
}

// NewClock creates a clock backed by the system wall clock.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockAt creates a clock with an injected time source. Used in tests.
func NewClockAt(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Tick returns the next timestamp, strictly greater than any value this
// clock has previously returned or observed.
func (c *Clock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

// Observe advances the clock past a timestamp received from another replica
// or from the Authority. Safe to call with stale values.
func (c *Clock) Observe(remote int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remote > c.last {
		c.last = remote
	}
}

// Last returns the most recent timestamp issued or observed, without
// advancing the clock.
func (c *Clock) Last() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}
