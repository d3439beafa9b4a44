// Package shop is the purchase layer: it prices the repeatable auto-clicker
// upgrade and the one-time unlocks, validates a purchase against the
// balance, plays the deduction animation, commits the purchase and tells
// dependent components about it.
package shop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/idle/internal/achievement"
	"github.com/roach88/idle/internal/animate"
	"github.com/roach88/idle/internal/catalog"
	"github.com/roach88/idle/internal/notify"
	"github.com/roach88/idle/internal/progress"
	"github.com/roach88/idle/internal/txid"
)

// Receipt describes a committed purchase.
type Receipt struct {
	TxID    string `json:"tx_id"`
	ItemID  string `json:"item_id"`
	Cost    int64  `json:"cost"`
	Level   int    `json:"level,omitempty"`
	Balance int64  `json:"balance"`
}

// Listing is an item as currently offered.
type Listing struct {
	Item  catalog.Item `json:"item"`
	Price int64        `json:"price"`
	Owned bool         `json:"owned"`
	Level int          `json:"level,omitempty"`
	Max   int          `json:"max,omitempty"`
	// Available is false when the item is owned, maxed or locked.
	Available bool `json:"available"`
}

// AudioTrigger plays the purchase sound. It is called fire-and-forget on its
// own goroutine; a panic is logged and dropped.
type AudioTrigger func(itemID string)

// Restarter is restarted after the upgrade level changes.
// *autoclick.Scheduler implements it.
type Restarter interface {
	Restart()
}

// Option configures a Shop.
type Option func(*Shop)

// WithGate shares a purchase gate with other spenders of the same balance.
func WithGate(g *animate.Gate) Option {
	return func(s *Shop) { s.gate = g }
}

// WithAnimator sets the deduction animator.
func WithAnimator(a *animate.Animator) Option {
	return func(s *Shop) { s.animator = a }
}

// WithFrame sets the callback receiving displayed balances during a
// deduction.
func WithFrame(fn func(display int64)) Option {
	return func(s *Shop) { s.frame = fn }
}

// WithTxIDs sets the receipt id generator.
func WithTxIDs(g txid.Generator) Option {
	return func(s *Shop) { s.ids = g }
}

// WithNotifier sets where purchase and insufficient-funds events go.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Shop) { s.notifier = n }
}

// WithScheduler sets the auto-clicker restarted after an upgrade.
func WithScheduler(r Restarter) Option {
	return func(s *Shop) { s.scheduler = r }
}

// WithAudio sets the purchase sound trigger.
func WithAudio(fn AudioTrigger) Option {
	return func(s *Shop) { s.audio = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shop) { s.logger = l }
}

// Shop sells the catalog's items against a progression state.
//
// Thread-safety: Shop is safe for concurrent use. One purchase runs at a
// time per gate; a concurrent Buy returns ErrPurchaseInProgress.
type Shop struct {
	state        *progress.State
	achievements *achievement.Manager
	catalog      *catalog.Catalog

	gate      *animate.Gate
	animator  *animate.Animator
	frame     func(int64)
	ids       txid.Generator
	notifier  notify.Notifier
	scheduler Restarter
	audio     AudioTrigger
	logger    *slog.Logger

	mu    sync.Mutex
	hooks []func(Receipt)
}

// New creates a Shop.
func New(state *progress.State, achievements *achievement.Manager, cat *catalog.Catalog, opts ...Option) *Shop {
	s := &Shop{
		state:        state,
		achievements: achievements,
		catalog:      cat,
		gate:         &animate.Gate{},
		animator:     animate.NewAnimator(nil),
		ids:          txid.UUIDv7Generator{},
		notifier:     notify.Discard,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnPurchase registers fn to run after every committed purchase, in
// registration order.
func (s *Shop) OnPurchase(fn func(Receipt)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// MaxLevel returns the current upgrade cap. Owning vc_investment raises it.
func (s *Shop) MaxLevel() int {
	if s.state.Unlocked(progress.FeatureVCInvestment) {
		return s.catalog.Economy.InvestedMaxLevel
	}
	return s.catalog.Economy.MaxLevel
}

// Price returns what buying id would cost now.
func (s *Shop) Price(id string) (int64, error) {
	it, ok := s.catalog.Item(id)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	_, cost, err := s.quote(it)
	return cost, err
}

// Items lists every item with its current price and availability.
func (s *Shop) Items() []Listing {
	out := make([]Listing, 0, len(s.catalog.Items))
	for _, it := range s.catalog.Items {
		_, cost, err := s.quote(it)
		l := Listing{Item: it, Price: cost, Available: err == nil}
		if it.Kind == catalog.KindUpgrade {
			l.Level = s.state.UpgradeLevel()
			l.Max = s.MaxLevel()
		} else {
			l.Owned = s.state.Unlocked(progress.Feature(it.Feature))
		}
		out = append(out, l)
	}
	return out
}

// quote validates that it can be bought now and returns its effect and cost.
func (s *Shop) quote(it catalog.Item) (progress.Effect, int64, error) {
	level := s.state.UpgradeLevel()
	if it.Kind == catalog.KindUpgrade {
		if level >= s.MaxLevel() {
			return progress.Effect{}, 0, ErrMaxLevel
		}
		return progress.Effect{Level: level + 1}, UpgradeCost(level, s.catalog.Economy.Tiers), nil
	}

	f := progress.Feature(it.Feature)
	if s.state.Unlocked(f) {
		return progress.Effect{}, it.Cost, ErrAlreadyOwned
	}
	if level < it.RequiresLevel {
		return progress.Effect{}, it.Cost, fmt.Errorf("%w: requires level %d", ErrLocked, it.RequiresLevel)
	}
	return progress.Effect{Unlock: f}, it.Cost, nil
}

// Buy purchases id.
//
// Rejections (ErrAlreadyOwned, ErrMaxLevel, ErrLocked, ErrPurchaseInProgress)
// change nothing and raise no event. A short balance raises an
// insufficient_funds event and returns *progress.InsufficientFundsError.
// Otherwise the deduction is animated, the cost and effect are committed in
// one write, and the purchase is announced.
//
// Cancelling ctx only shortens the animation; a purchase that passed
// validation always commits.
func (s *Shop) Buy(ctx context.Context, id string) (Receipt, error) {
	it, ok := s.catalog.Item(id)
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}

	if !s.gate.TryAcquire() {
		return Receipt{}, s.reject(id, ErrPurchaseInProgress)
	}
	defer s.gate.Release()

	effect, cost, err := s.quote(it)
	if err != nil {
		return Receipt{}, s.reject(id, err)
	}

	balance := s.state.Balance()
	if balance < cost {
		err := &progress.InsufficientFundsError{Cost: cost, Balance: balance, Shortage: cost - balance}
		s.insufficient(id, err)
		return Receipt{}, err
	}

	s.animator.Deduct(ctx, balance, cost, s.frame)

	if err := s.state.Purchase(cost, effect); err != nil {
		// Another session can lower the balance while the animation runs.
		if progress.IsInsufficientFunds(err) {
			s.insufficient(id, err)
		}
		return Receipt{}, fmt.Errorf("commit purchase %q: %w", id, err)
	}

	r := Receipt{
		TxID:    s.ids.Generate(),
		ItemID:  id,
		Cost:    cost,
		Level:   effect.Level,
		Balance: s.state.Balance(),
	}
	s.logger.Info("purchase completed", "tx_id", r.TxID, "item", id, "cost", cost, "level", r.Level)
	s.notifier.Notify(notify.Event{
		Kind:   notify.KindPurchased,
		ID:     id,
		Title:  it.Title,
		Amount: cost,
		Level:  effect.Level,
		TxID:   r.TxID,
	})
	s.playAudio(id)

	if effect.Level > 0 {
		if s.scheduler != nil {
			s.scheduler.Restart()
		}
		s.achievements.Check(catalog.GroupPurchase, achievement.Count(int64(effect.Level)))
	}
	s.CheckCompletion()

	s.mu.Lock()
	hooks := make([]func(Receipt), len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(r)
	}

	return r, nil
}

func (s *Shop) insufficient(id string, err error) {
	shortage := progress.Shortage(err)
	s.logger.Debug("insufficient funds", "item", id, "shortage", shortage)
	s.notifier.Notify(notify.Event{
		Kind:   notify.KindInsufficientFunds,
		ID:     id,
		Amount: shortage,
	})
}

func (s *Shop) playAudio(id string) {
	if s.audio == nil {
		return
	}
	fn := s.audio
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Warn("purchase sound failed", "item", id, "panic", r)
			}
		}()
		fn(id)
	}()
}

// Complete reports whether the shop is complete: the upgrade at its current
// cap and every cosmetic unlock owned.
func (s *Shop) Complete() bool {
	if s.state.UpgradeLevel() < s.MaxLevel() {
		return false
	}
	return s.cosmeticsOwned()
}

func (s *Shop) cosmeticsOwned() bool {
	for _, it := range s.catalog.Items {
		if it.Cosmetic && !s.state.Unlocked(progress.Feature(it.Feature)) {
			return false
		}
	}
	return true
}

// CheckCompletion evaluates the shop_completion group against the live
// state. It is recomputed on every call, never cached.
func (s *Shop) CheckCompletion() []achievement.Achievement {
	return s.achievements.Check(catalog.GroupShopCompletion,
		achievement.Completion(s.state.UpgradeLevel(), s.MaxLevel(), s.cosmeticsOwned()))
}

// reject logs a refused purchase and returns err unchanged.
func (s *Shop) reject(id string, err error) error {
	if IsRejection(err) {
		s.logger.Debug("purchase rejected", "item", id, "reason", err)
	}
	return err
}
