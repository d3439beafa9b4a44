// Package autoclick runs the auto-clicker: a repeating timer, live only while
// the upgrade level is above zero, that credits one automated click per
// period and then notifies registered observers.
//
// At most one timer exists per Scheduler. Every transition cancels the live
// timer and waits for its goroutine to exit before scheduling a new one, so
// two timers never credit clicks at the same time.
package autoclick

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/roach88/idle/internal/catalog"
	"github.com/roach88/idle/internal/config"
	"github.com/roach88/idle/internal/progress"
)

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker with period d.
type TickerFunc func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// TickCallback observes a tick. agentClicks is the agent click count after
// the tick was credited.
type TickCallback func(agentClicks int64)

// Period returns the tick period at level using the default economy.
// Level 0 and below have no period.
func Period(level int) time.Duration {
	return period(config.BasePeriod, config.RateFactor, level)
}

// PeriodFor returns the tick period at level for an economy.
func PeriodFor(e catalog.Economy, level int) time.Duration {
	return period(e.BasePeriod(), e.RateFactor, level)
}

// period computes base * rate^(level-1), rounded to the microsecond so that
// float error never shows up in the result (level 2 is exactly 1.9s, not
// 1.899999999s).
func period(base time.Duration, rate float64, level int) time.Duration {
	if level < 1 {
		return 0
	}
	us := math.Round(float64(base.Microseconds()) * math.Pow(rate, float64(level-1)))
	if us < 1 {
		us = 1
	}
	return time.Duration(us) * time.Microsecond
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTickerFunc replaces the ticker source. Tests use a manual ticker.
func WithTickerFunc(fn TickerFunc) Option {
	return func(s *Scheduler) { s.newTicker = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithEconomy sets the base period and rate factor.
func WithEconomy(e catalog.Economy) Option {
	return func(s *Scheduler) {
		s.base = e.BasePeriod()
		s.rate = e.RateFactor
	}
}

// Scheduler owns the auto-clicker timer.
//
// Thread-safety: all methods are safe for concurrent use. Tick callbacks run
// on the timer goroutine and must not call Start, Restart or Stop: those wait
// for the timer goroutine to exit. Fire must never take mu.
type Scheduler struct {
	state     *progress.State
	newTicker TickerFunc
	logger    *slog.Logger
	base      time.Duration
	rate      float64

	mu   sync.Mutex
	live *loop

	cbMu      sync.Mutex
	callbacks []TickCallback
}

type loop struct {
	ticker Ticker
	period time.Duration
	done   chan struct{}
	exited chan struct{}
}

// New creates an idle Scheduler for state.
func New(state *progress.State, opts ...Option) *Scheduler {
	s := &Scheduler{
		state:     state,
		newTicker: NewTimeTicker,
		logger:    slog.Default(),
		base:      config.BasePeriod,
		rate:      config.RateFactor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins ticking if the upgrade level is above zero and no timer is
// live. Starting a running scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live != nil {
		return
	}
	s.startLocked()
}

// Restart cancels the live timer, if any, and schedules a new one at the
// period for the current level. At level 0 the scheduler ends up idle.
func (s *Scheduler) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.startLocked()
}

// Stop cancels the live timer and waits for its goroutine to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) startLocked() {
	level := s.state.UpgradeLevel()
	if level < 1 {
		return
	}
	p := period(s.base, s.rate, level)
	l := &loop{
		ticker: s.newTicker(p),
		period: p,
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	s.live = l
	s.logger.Debug("auto-clicker started", "level", level, "period", p)
	go s.run(l)
}

func (s *Scheduler) stopLocked() {
	l := s.live
	if l == nil {
		return
	}
	s.live = nil
	l.ticker.Stop()
	close(l.done)
	<-l.exited
	s.logger.Debug("auto-clicker stopped", "period", l.period)
}

func (s *Scheduler) run(l *loop) {
	defer close(l.exited)
	for {
		select {
		case <-l.done:
			return
		case <-l.ticker.C():
			select {
			case <-l.done:
				return
			default:
			}
			s.Fire()
		}
	}
}

// Running reports whether a timer is live.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live != nil
}

// Period returns the live timer's period, or 0 when idle.
func (s *Scheduler) Period() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == nil {
		return 0
	}
	return s.live.period
}

// RegisterTickCallback adds fn to the observers called after every tick.
// Callbacks run in registration order.
func (s *Scheduler) RegisterTickCallback(fn TickCallback) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// Fire performs one tick synchronously: it credits an automated click and
// calls every callback. A callback that panics is logged and skipped.
// Returns the agent click count after the tick.
func (s *Scheduler) Fire() int64 {
	agent := s.state.RecordAutomatedClick()

	s.cbMu.Lock()
	callbacks := make([]TickCallback, len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.cbMu.Unlock()

	for i, fn := range callbacks {
		s.call(i, fn, agent)
	}
	return agent
}

func (s *Scheduler) call(i int, fn TickCallback, agent int64) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick callback panicked", "index", i, "panic", r)
		}
	}()
	fn(agent)
}
