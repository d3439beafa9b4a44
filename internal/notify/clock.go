package notify

import "sync/atomic"

// Clock is a monotonic logical clock for event ordering.
//
// Events are stamped with a strictly increasing seq number, never a wall
// clock reading, so the auto-clicker goroutine and user actions produce one
// reproducible order in traces.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
