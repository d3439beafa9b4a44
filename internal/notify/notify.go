// Package notify carries user-facing events (achievement toasts,
// insufficient-funds floaters, purchase confirmations) from the economy to
// whatever presents them.
//
// Every event is stamped with a sequence number from a monotonic logical
// clock so presenters and test traces see one total order regardless of
// which goroutine raised the event.
package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Kind distinguishes event types.
type Kind string

const (
	// KindAchievementEarned is raised once per newly earned achievement.
	KindAchievementEarned Kind = "achievement_earned"
	// KindInsufficientFunds is raised when a purchase is short.
	KindInsufficientFunds Kind = "insufficient_funds"
	// KindPurchased is raised after a purchase commits.
	KindPurchased Kind = "purchased"
	// KindLoreUnlocked is raised after a lore entry is bought.
	KindLoreUnlocked Kind = "lore_unlocked"
	// KindReset is raised after a full reset.
	KindReset Kind = "reset"
)

// Event is one notification.
type Event struct {
	Seq    int64  `json:"seq"`
	Kind   Kind   `json:"kind"`
	ID     string `json:"id,omitempty"`
	Title  string `json:"title,omitempty"`
	Amount int64  `json:"amount,omitempty"`
	Level  int    `json:"level,omitempty"`
	TxID   string `json:"tx_id,omitempty"`
}

// String renders the event as a single trace line.
func (e Event) String() string {
	switch e.Kind {
	case KindAchievementEarned:
		return fmt.Sprintf("%04d %s %s %q", e.Seq, e.Kind, e.ID, e.Title)
	case KindInsufficientFunds:
		return fmt.Sprintf("%04d %s %s shortage=%d", e.Seq, e.Kind, e.ID, e.Amount)
	case KindPurchased:
		if e.Level > 0 {
			return fmt.Sprintf("%04d %s %s cost=%d level=%d", e.Seq, e.Kind, e.ID, e.Amount, e.Level)
		}
		return fmt.Sprintf("%04d %s %s cost=%d", e.Seq, e.Kind, e.ID, e.Amount)
	case KindLoreUnlocked:
		return fmt.Sprintf("%04d %s %s cost=%d", e.Seq, e.Kind, e.ID, e.Amount)
	default:
		return fmt.Sprintf("%04d %s", e.Seq, e.Kind)
	}
}

// Notifier receives events. Implementations must not block for long: they
// are called while a purchase or tick is in progress.
type Notifier interface {
	Notify(Event)
}

// Func adapts a function to Notifier.
type Func func(Event)

func (f Func) Notify(e Event) { f(e) }

// Discard drops every event.
var Discard Notifier = Func(func(Event) {})

// Multi fans events out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(e Event) {
	for _, n := range m {
		n.Notify(e)
	}
}

// Sequencer stamps events with the next clock value before forwarding them.
type Sequencer struct {
	clock *Clock
	next  Notifier
}

// NewSequencer stamps events from clock and forwards them to next.
func NewSequencer(clock *Clock, next Notifier) *Sequencer {
	return &Sequencer{clock: clock, next: next}
}

func (s *Sequencer) Notify(e Event) {
	e.Seq = s.clock.Next()
	s.next.Notify(e)
}

// Logger writes every event to a slog logger at Info level.
type Logger struct {
	L *slog.Logger
}

func (l Logger) Notify(e Event) {
	logger := l.L
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "seq", e.Seq, "kind", e.Kind, "id", e.ID, "title", e.Title, "amount", e.Amount)
}

// Recorder keeps every event in memory. Used by the harness and tests.
//
// Thread-safety: Recorder is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfKind returns the recorded events of kind k.
func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// ErrClosed is returned by Queue.Next once the queue is closed and empty.
var ErrClosed = errors.New("notification queue closed")
