// Package progress owns the spendable balance, the lifetime click counters,
// the upgrade level and the one-time feature unlocks, and keeps each of them
// in step with the persistent store.
//
// Counters only grow. The balance is the one value that goes down, and only
// through Spend or Purchase, which write the deduction and its effect in a
// single batch.
package progress

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/roach88/idle/internal/config"
	"github.com/roach88/idle/internal/kv"
)

// Feature identifies a one-time unlock.
type Feature string

const (
	FeatureDarkMode     Feature = "dark_mode"
	FeatureSynthwave    Feature = "synthwave"
	FeatureMaritime     Feature = "maritime"
	FeatureBGM          Feature = "bgm"
	FeatureVCInvestment Feature = "vc_investment"
)

// Features lists every known unlock in display order.
var Features = []Feature{
	FeatureDarkMode,
	FeatureSynthwave,
	FeatureMaritime,
	FeatureBGM,
	FeatureVCInvestment,
}

// ManualTotals is returned by RecordManualClick for achievement checks.
type ManualTotals struct {
	Balance        int64
	LifetimeClicks int64
	ManualClicks   int64
}

// Snapshot is a point-in-time copy of the state.
type Snapshot struct {
	Balance        int64            `json:"balance"`
	LifetimeClicks int64            `json:"lifetime_clicks"`
	ManualClicks   int64            `json:"manual_clicks"`
	AgentClicks    int64            `json:"agent_clicks"`
	UpgradeLevel   int              `json:"upgrade_level"`
	Unlocks        map[Feature]bool `json:"unlocks"`
}

// Effect is what a purchase changes besides the balance.
// A zero Level leaves the upgrade level alone; an empty Unlock unlocks nothing.
// Writes are appended to the purchase batch so records owned elsewhere (the
// unlocked lore set) commit together with the deduction.
type Effect struct {
	Level  int
	Unlock Feature
	Writes kv.Batch
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger used for storage and parse failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) { s.logger = l }
}

// WithConfig overrides the key names.
func WithConfig(c config.Config) Option {
	return func(s *State) { s.keys = c.Keys }
}

// State is the single progression record of a session.
//
// Thread-safety: all methods are safe for concurrent use. The auto-clicker
// goroutine and user-driven calls serialise on an internal mutex.
type State struct {
	mu     sync.Mutex
	store  kv.Store
	keys   config.Keys
	logger *slog.Logger

	balance        int64
	lifetimeClicks int64
	manualClicks   int64
	agentClicks    int64
	level          int
	unlocks        map[Feature]bool
}

// Load builds a State from the store. Missing or malformed values load as
// zero; Load never fails.
func Load(store kv.Store, opts ...Option) *State {
	s := &State{
		store:   store,
		keys:    config.Default().Keys,
		logger:  slog.Default(),
		unlocks: make(map[Feature]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reload()
	return s
}

// Reload re-reads every key from the store, replacing in-memory values.
func (s *State) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balance = s.readCount(s.keys.Balance)
	s.lifetimeClicks = s.readCount(s.keys.TotalClicks)
	s.manualClicks = s.readCount(s.keys.ManualClicks)
	s.agentClicks = s.readCount(s.keys.AgentClicks)
	s.level = int(s.readCount(s.keys.UpgradeLevel))
	for _, f := range Features {
		s.unlocks[f] = s.readFlag(s.featureKey(f))
	}
}

// readCount parses a stored counter. Anything but a non-negative base-10
// integer reads as 0.
func (s *State) readCount(key string) int64 {
	raw, ok, err := s.store.Get(key)
	if err != nil {
		s.logger.Error("read counter", "key", key, "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		s.logger.Warn("malformed persisted counter, using 0", "key", key, "value", raw)
		return 0
	}
	return n
}

func (s *State) readFlag(key string) bool {
	raw, _, err := s.store.Get(key)
	if err != nil {
		s.logger.Error("read flag", "key", key, "error", err)
		return false
	}
	return raw == config.TrueLiteral
}

func (s *State) featureKey(f Feature) string {
	switch f {
	case FeatureDarkMode:
		return s.keys.DarkModeUnlocked
	case FeatureSynthwave:
		return s.keys.SynthwaveUnlocked
	case FeatureMaritime:
		return s.keys.MaritimeUnlocked
	case FeatureBGM:
		return s.keys.BGMUnlocked
	case FeatureVCInvestment:
		return s.keys.VCInvestmentUnlocked
	}
	return ""
}

// write persists a batch. Storage failures are logged, never returned: the
// in-memory state stays authoritative for the session.
func (s *State) write(b kv.Batch) {
	if err := s.store.Apply(b); err != nil {
		s.logger.Error("persist progress", "error", err)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// RecordManualClick credits one human click.
func (s *State) RecordManualClick() ManualTotals {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balance++
	s.lifetimeClicks++
	s.manualClicks++

	var b kv.Batch
	b.Set(s.keys.Balance, itoa(s.balance))
	b.Set(s.keys.TotalClicks, itoa(s.lifetimeClicks))
	b.Set(s.keys.ManualClicks, itoa(s.manualClicks))
	s.write(b)

	return ManualTotals{
		Balance:        s.balance,
		LifetimeClicks: s.lifetimeClicks,
		ManualClicks:   s.manualClicks,
	}
}

// RecordAutomatedClick credits one auto-clicker click and returns the new
// agent click count. Lifetime clicks are untouched: automation never counts
// toward manual-click achievements.
func (s *State) RecordAutomatedClick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balance++
	s.agentClicks++

	var b kv.Batch
	b.Set(s.keys.Balance, itoa(s.balance))
	b.Set(s.keys.AgentClicks, itoa(s.agentClicks))
	s.write(b)

	return s.agentClicks
}

// Spend deducts amount from the balance.
// Returns *InsufficientFundsError and leaves the balance unchanged if the
// balance is short.
func (s *State) Spend(amount int64) error {
	return s.Purchase(amount, Effect{})
}

// Purchase deducts cost and applies effect as one persisted batch.
// Returns *InsufficientFundsError with no state change if the balance is
// short, or ErrLevelDecrease if effect would lower the upgrade level.
func (s *State) Purchase(cost int64, effect Effect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cost < 0 {
		return ErrNegativeAmount
	}
	if s.balance < cost {
		return &InsufficientFundsError{Cost: cost, Balance: s.balance, Shortage: cost - s.balance}
	}
	if effect.Level != 0 && effect.Level < s.level {
		return ErrLevelDecrease
	}

	s.balance -= cost

	var b kv.Batch
	b.Set(s.keys.Balance, itoa(s.balance))
	if effect.Level != 0 {
		s.level = effect.Level
		b.Set(s.keys.UpgradeLevel, itoa(int64(s.level)))
	}
	if effect.Unlock != "" {
		s.unlocks[effect.Unlock] = true
		b.Set(s.featureKey(effect.Unlock), config.TrueLiteral)
	}
	b = append(b, effect.Writes...)
	s.write(b)
	return nil
}

// SetUpgradeLevel raises the upgrade level. Lowering it returns
// ErrLevelDecrease; only Reset goes back to 0.
func (s *State) SetUpgradeLevel(level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level {
		return ErrLevelDecrease
	}
	s.level = level
	var b kv.Batch
	b.Set(s.keys.UpgradeLevel, itoa(int64(level)))
	s.write(b)
	return nil
}

// SetUnlock marks f unlocked. Unlocking twice is a no-op.
func (s *State) SetUnlock(f Feature) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unlocks[f] {
		return
	}
	s.unlocks[f] = true
	var b kv.Batch
	b.Set(s.featureKey(f), config.TrueLiteral)
	s.write(b)
}

// Reset zeroes every counter, clears every unlock and deletes their keys.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balance = 0
	s.lifetimeClicks = 0
	s.manualClicks = 0
	s.agentClicks = 0
	s.level = 0

	var b kv.Batch
	b.Delete(s.keys.Balance)
	b.Delete(s.keys.TotalClicks)
	b.Delete(s.keys.ManualClicks)
	b.Delete(s.keys.AgentClicks)
	b.Delete(s.keys.UpgradeLevel)
	for _, f := range Features {
		s.unlocks[f] = false
		b.Delete(s.featureKey(f))
	}
	s.write(b)
}

// ApplyRemote folds a change made by another session into this one.
//
// Only the balance key is followed. Lifetime counters and unlocks stay
// owned by the session that produced them so achievements never fire twice
// for the same clicks. Returns true if the balance changed.
func (s *State) ApplyRemote(c kv.Change) bool {
	if c.Key != s.keys.Balance {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if !c.Deleted {
		parsed, err := strconv.ParseInt(c.Value, 10, 64)
		if err != nil || parsed < 0 {
			s.logger.Warn("malformed remote balance, using 0", "value", c.Value)
		} else {
			n = parsed
		}
	}
	if n == s.balance {
		return false
	}
	s.balance = n
	return true
}

// Balance returns the spendable balance.
func (s *State) Balance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// LifetimeClicks returns the total number of manual clicks ever made.
func (s *State) LifetimeClicks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifetimeClicks
}

// ManualClicks returns the manual click count.
func (s *State) ManualClicks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manualClicks
}

// AgentClicks returns the auto-clicker click count.
func (s *State) AgentClicks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agentClicks
}

// UpgradeLevel returns the auto-clicker upgrade level.
func (s *State) UpgradeLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Unlocked reports whether f has been unlocked.
func (s *State) Unlocked(f Feature) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocks[f]
}

// Snapshot returns a copy of the whole state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlocks := make(map[Feature]bool, len(s.unlocks))
	for f, v := range s.unlocks {
		unlocks[f] = v
	}
	return Snapshot{
		Balance:        s.balance,
		LifetimeClicks: s.lifetimeClicks,
		ManualClicks:   s.manualClicks,
		AgentClicks:    s.agentClicks,
		UpgradeLevel:   s.level,
		Unlocks:        unlocks,
	}
}
