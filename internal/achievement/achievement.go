// Package achievement awards one-time achievements from live game facts.
//
// The catalog is partitioned into check groups. Callers evaluate a group
// with the facts it needs (a click count, a lore count and the catalog size,
// a boolean interaction flag); every entry in the group that is not yet
// earned and whose predicate holds is earned exactly once, persisted and
// announced.
package achievement

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/idle/internal/catalog"
	"github.com/roach88/idle/internal/config"
	"github.com/roach88/idle/internal/kv"
	"github.com/roach88/idle/internal/notify"
)

// Facts are the values an achievement predicate is evaluated against.
// Which fields matter depends on the group.
type Facts struct {
	Value int64
	Total int64
	Flag  bool
}

// Count is the facts for threshold groups.
func Count(n int64) Facts { return Facts{Value: n} }

// OfTotal is the facts for "n of total" groups such as lore.
func OfTotal(n, total int64) Facts { return Facts{Value: n, Total: total} }

// Flag is the facts for boolean interaction groups.
func Flag(v bool) Facts { return Facts{Flag: v} }

// Completion is the facts for shop completion: the upgrade level against the
// current cap, and whether every cosmetic unlock is owned.
func Completion(level, maxLevel int, cosmeticsOwned bool) Facts {
	return Facts{Value: int64(level), Total: int64(maxLevel), Flag: cosmeticsOwned}
}

// Predicate decides whether an achievement is satisfied.
type Predicate func(Facts) bool

// Achievement is an immutable catalog entry with its predicate.
type Achievement struct {
	ID          string
	Title       string
	Description string
	Group       catalog.Group
	Predicate   Predicate
}

// FromCatalog builds predicates for catalog definitions.
func FromCatalog(defs []catalog.Achievement) ([]Achievement, error) {
	out := make([]Achievement, 0, len(defs))
	for _, d := range defs {
		p, err := predicateFor(d.Rule)
		if err != nil {
			return nil, fmt.Errorf("achievement %q: %w", d.ID, err)
		}
		out = append(out, Achievement{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			Group:       d.Group,
			Predicate:   p,
		})
	}
	return out, nil
}

func predicateFor(r catalog.Rule) (Predicate, error) {
	switch r.Kind {
	case catalog.RuleAtLeast:
		threshold := r.Threshold
		return func(f Facts) bool { return f.Value >= threshold }, nil
	case catalog.RuleReachTotal:
		return func(f Facts) bool { return f.Total > 0 && f.Value >= f.Total }, nil
	case catalog.RuleFlag:
		return func(f Facts) bool { return f.Flag }, nil
	case catalog.RuleComplete:
		return func(f Facts) bool { return f.Total > 0 && f.Value >= f.Total && f.Flag }, nil
	}
	return nil, fmt.Errorf("unknown rule kind %q", r.Kind)
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier sets where earned achievements are announced.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithKey overrides the store key of the earned set.
func WithKey(key string) Option {
	return func(m *Manager) { m.key = key }
}

// Manager holds the earned set.
//
// Thread-safety: Manager is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	catalog  []Achievement
	earned   map[string]bool
	store    kv.Store
	key      string
	notifier notify.Notifier
	logger   *slog.Logger
}

// New creates a Manager and loads the earned set from store. An unreadable
// set loads as empty.
func New(achievements []Achievement, store kv.Store, opts ...Option) *Manager {
	m := &Manager{
		catalog:  achievements,
		earned:   make(map[string]bool),
		store:    store,
		key:      config.Default().Keys.EarnedAchievements,
		notifier: notify.Discard,
		logger:   slog.Default(),
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
		m.logger.Error("read earned achievements", "error", err)
		return
	}
	if !ok {
		return
	}
	ids, err := kv.DecodeSet(raw)
	if err != nil {
		m.logger.Warn("malformed earned achievements, starting empty", "error", err)
		return
	}
	for _, id := range ids {
		m.earned[id] = true
	}
}

// Check evaluates every unearned achievement of group against f and returns
// the ones newly earned, in catalog order.
//
// A predicate that panics is logged and treated as unsatisfied; the rest of
// the group is still evaluated.
func (m *Manager) Check(group catalog.Group, f Facts) []Achievement {
	m.mu.Lock()
	var newly []Achievement
	for _, a := range m.catalog {
		if a.Group != group || m.earned[a.ID] {
			continue
		}
		if !m.evaluate(a, f) {
			continue
		}
		m.earned[a.ID] = true
		m.persist()
		newly = append(newly, a)
	}
	m.mu.Unlock()

	for _, a := range newly {
		m.logger.Info("achievement earned", "id", a.ID, "title", a.Title)
		m.notifier.Notify(notify.Event{
			Kind:  notify.KindAchievementEarned,
			ID:    a.ID,
			Title: a.Title,
		})
	}
	return newly
}

func (m *Manager) evaluate(a Achievement, f Facts) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("achievement predicate panicked", "id", a.ID, "panic", r)
			ok = false
		}
	}()
	return a.Predicate(f)
}

// persist writes the whole earned set. Caller holds m.mu.
func (m *Manager) persist() {
	if err := m.store.Set(m.key, kv.EncodeSet(m.earnedLocked())); err != nil {
		m.logger.Error("persist earned achievements", "error", err)
	}
}

func (m *Manager) earnedLocked() []string {
	ids := make([]string, 0, len(m.earned))
	for id := range m.earned {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Earned returns the earned ids, sorted.
func (m *Manager) Earned() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.earnedLocked()
}

// Has reports whether id is earned.
func (m *Manager) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.earned[id]
}

// Catalog returns the achievement catalog.
func (m *Manager) Catalog() []Achievement {
	out := make([]Achievement, len(m.catalog))
	copy(out, m.catalog)
	return out
}

// Reset forgets every earned achievement and deletes the stored set.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.earned = make(map[string]bool)
	if err := m.store.Delete(m.key); err != nil {
		m.logger.Error("delete earned achievements", "error", err)
	}
}
