package testutil

import (
	"sync"
	"time"
)

// ManualTicker is a ticker that fires only when told to.
type ManualTicker struct {
	Period time.Duration

	ch   chan time.Time
	mu   sync.Mutex
	stop bool
}

// C returns the tick channel.
func (t *ManualTicker) C() <-chan time.Time { return t.ch }

// Stop marks the ticker stopped. Fire on a stopped ticker does nothing.
func (t *ManualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stop = true
}

// Stopped reports whether Stop was called.
func (t *ManualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop
}

// Fire delivers one tick, waiting up to a second for the receiver.
// Returns false if the ticker is stopped or nobody received the tick.
func (t *ManualTicker) Fire() bool {
	if t.Stopped() {
		return false
	}
	select {
	case t.ch <- time.Time{}:
		return true
	case <-time.After(time.Second):
		return false
	}
}

// Tickers records every ticker created through New.
//
// Thread-safety: safe for concurrent use.
type Tickers struct {
	mu      sync.Mutex
	created []*ManualTicker
}

// New creates and records a ticker for period d.
func (f *Tickers) New(d time.Duration) *ManualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &ManualTicker{Period: d, ch: make(chan time.Time)}
	f.created = append(f.created, t)
	return t
}

// All returns every ticker created so far.
func (f *Tickers) All() []*ManualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*ManualTicker, len(f.created))
	copy(out, f.created)
	return out
}

// Last returns the most recently created ticker, or nil.
func (f *Tickers) Last() *ManualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}
