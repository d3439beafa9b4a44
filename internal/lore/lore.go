// Package lore sells narrative entries attached to timeline experiences.
//
// It follows the shop's spend protocol without levels: check the shared
// balance, animate the deduction, then commit the deduction and the new
// unlocked set in one write.
package lore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/idle/internal/achievement"
	"github.com/roach88/idle/internal/animate"
	"github.com/roach88/idle/internal/catalog"
	"github.com/roach88/idle/internal/config"
	"github.com/roach88/idle/internal/kv"
	"github.com/roach88/idle/internal/notify"
	"github.com/roach88/idle/internal/progress"
	"github.com/roach88/idle/internal/txid"
)

var (
	// ErrUnknownLore is returned for an id the catalog does not contain.
	ErrUnknownLore = errors.New("unknown lore entry")

	// ErrAlreadyUnlocked is returned when unlocking an entry twice.
	ErrAlreadyUnlocked = errors.New("lore already unlocked")

	// ErrPurchaseInProgress is returned while a shop or lore purchase is
	// animating.
	ErrPurchaseInProgress = animate.ErrPurchaseInProgress
)

// Receipt describes a committed unlock.
type Receipt struct {
	TxID    string `json:"tx_id"`
	LoreID  string `json:"lore_id"`
	Cost    int64  `json:"cost"`
	Balance int64  `json:"balance"`
}

// Entry is a catalog entry with its unlock state.
type Entry struct {
	catalog.Lore
	Unlocked bool `json:"unlocked"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithAnimator sets the deduction animator.
func WithAnimator(a *animate.Animator) Option {
	return func(m *Manager) { m.animator = a }
}

// WithFrame sets the callback receiving displayed balances.
func WithFrame(fn func(display int64)) Option {
	return func(m *Manager) { m.frame = fn }
}

// WithTxIDs sets the receipt id generator.
func WithTxIDs(g txid.Generator) Option {
	return func(m *Manager) { m.ids = g }
}

// WithNotifier sets where unlock and insufficient-funds events go.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithKey overrides the store key of the unlocked set.
func WithKey(key string) Option {
	return func(m *Manager) { m.key = key }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager holds the unlocked lore set.
//
// Thread-safety: Manager is safe for concurrent use.
type Manager struct {
	state        *progress.State
	achievements *achievement.Manager
	entries      []catalog.Lore
	gate         *animate.Gate
	store        kv.Store

	animator *animate.Animator
	frame    func(int64)
	ids      txid.Generator
	notifier notify.Notifier
	key      string
	logger   *slog.Logger

	mu       sync.Mutex
	unlocked map[string]bool
}

// New creates a Manager and loads the unlocked set from store. gate must be
// the one the shop uses: both spend the same balance.
func New(state *progress.State, achievements *achievement.Manager, entries []catalog.Lore, gate *animate.Gate, store kv.Store, opts ...Option) *Manager {
	m := &Manager{
		state:        state,
		achievements: achievements,
		entries:      entries,
		gate:         gate,
		store:        store,
		animator:     animate.NewAnimator(nil),
		ids:          txid.UUIDv7Generator{},
		notifier:     notify.Discard,
		key:          config.Default().Keys.UnlockedLore,
		logger:       slog.Default(),
		unlocked:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.load()
	return m
}

func (m *Manager) load() {
	raw, ok, err := m.store.Get(m.key)
	if err != nil {
		m.logger.Error("read unlocked lore", "error", err)
		return
	}
	if !ok {
		return
	}
	ids, err := kv.DecodeSet(raw)
	if err != nil {
		m.logger.Warn("malformed unlocked lore, starting empty", "error", err)
		return
	}
	for _, id := range ids {
		m.unlocked[id] = true
	}
}

func (m *Manager) entry(id string) (catalog.Lore, bool) {
	for _, l := range m.entries {
		if l.ID == id {
			return l, true
		}
	}
	return catalog.Lore{}, false
}

// Unlock buys the entry id.
//
// A short balance raises an insufficient_funds event and returns
// *progress.InsufficientFundsError with nothing changed. On success the
// lore group achievements are evaluated with the unlocked count and the
// catalog size.
func (m *Manager) Unlock(ctx context.Context, id string) (Receipt, error) {
	l, ok := m.entry(id)
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %q", ErrUnknownLore, id)
	}
	if m.IsUnlocked(id) {
		return Receipt{}, ErrAlreadyUnlocked
	}

	if !m.gate.TryAcquire() {
		return Receipt{}, ErrPurchaseInProgress
	}
	defer m.gate.Release()

	// A purchase that held the gate before us may have unlocked id.
	if m.IsUnlocked(id) {
		return Receipt{}, ErrAlreadyUnlocked
	}

	balance := m.state.Balance()
	if balance < l.Cost {
		err := &progress.InsufficientFundsError{Cost: l.Cost, Balance: balance, Shortage: l.Cost - balance}
		m.insufficient(id, err)
		return Receipt{}, err
	}

	m.animator.Deduct(ctx, balance, l.Cost, m.frame)

	m.mu.Lock()
	next := m.idsLocked()
	next = append(next, id)
	var writes kv.Batch
	writes.Set(m.key, kv.EncodeSet(next))
	if err := m.state.Purchase(l.Cost, progress.Effect{Writes: writes}); err != nil {
		m.mu.Unlock()
		if progress.IsInsufficientFunds(err) {
			m.insufficient(id, err)
		}
		return Receipt{}, fmt.Errorf("commit lore %q: %w", id, err)
	}
	m.unlocked[id] = true
	count := int64(len(m.unlocked))
	m.mu.Unlock()

	r := Receipt{
		TxID:    m.ids.Generate(),
		LoreID:  id,
		Cost:    l.Cost,
		Balance: m.state.Balance(),
	}
	m.logger.Info("lore unlocked", "tx_id", r.TxID, "id", id, "title", l.Title)
	m.notifier.Notify(notify.Event{
		Kind:   notify.KindLoreUnlocked,
		ID:     id,
		Title:  l.Title,
		Amount: l.Cost,
		TxID:   r.TxID,
	})
	m.achievements.Check(catalog.GroupLore, achievement.OfTotal(count, int64(len(m.entries))))
	return r, nil
}

func (m *Manager) insufficient(id string, err error) {
	m.notifier.Notify(notify.Event{
		Kind:   notify.KindInsufficientFunds,
		ID:     id,
		Amount: progress.Shortage(err),
	})
}

func (m *Manager) idsLocked() []string {
	ids := make([]string, 0, len(m.unlocked))
	for id := range m.unlocked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Unlocked returns the unlocked ids, sorted.
func (m *Manager) Unlocked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idsLocked()
}

// IsUnlocked reports whether id is unlocked.
func (m *Manager) IsUnlocked(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlocked[id]
}

// Entries returns every catalog entry in catalog order with its state.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, l := range m.entries {
		out = append(out, Entry{Lore: l, Unlocked: m.unlocked[l.ID]})
	}
	return out
}

// Reset forgets every unlock and deletes the stored set.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlocked = make(map[string]bool)
	if err := m.store.Delete(m.key); err != nil {
		m.logger.Error("delete unlocked lore", "error", err)
	}
}
