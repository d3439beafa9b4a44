// Package game wires the economy together: one progression state, its
// achievements, the auto-clicker, the shop, lore and the gated preferences,
// all sharing one namespaced store and one event sequence.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/idle/internal/achievement"
	"github.com/roach88/idle/internal/animate"
	"github.com/roach88/idle/internal/autoclick"
	"github.com/roach88/idle/internal/catalog"
	"github.com/roach88/idle/internal/config"
	"github.com/roach88/idle/internal/kv"
	"github.com/roach88/idle/internal/lore"
	"github.com/roach88/idle/internal/notify"
	"github.com/roach88/idle/internal/prefs"
	"github.com/roach88/idle/internal/progress"
	"github.com/roach88/idle/internal/shop"
	"github.com/roach88/idle/internal/txid"
)

// Option configures a Game.
type Option func(*settings)

type settings struct {
	catalog   *catalog.Catalog
	config    config.Config
	logger    *slog.Logger
	clock     animate.Clock
	tickers   autoclick.TickerFunc
	ids       txid.Generator
	notifier  notify.Notifier
	events    *notify.Clock
	audio     shop.AudioTrigger
	frame     func(int64)
	skipProbe bool
}

// WithCatalog replaces the embedded catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *settings) { s.catalog = c }
}

// WithConfig overrides the namespace and key names.
func WithConfig(c config.Config) Option {
	return func(s *settings) { s.config = c }
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithClock sets the animation clock.
func WithClock(c animate.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithTickerFunc sets the auto-clicker ticker source.
func WithTickerFunc(fn autoclick.TickerFunc) Option {
	return func(s *settings) { s.tickers = fn }
}

// WithTxIDs sets the receipt id generator.
func WithTxIDs(g txid.Generator) Option {
	return func(s *settings) { s.ids = g }
}

// WithNotifier sets where sequenced events are delivered.
func WithNotifier(n notify.Notifier) Option {
	return func(s *settings) { s.notifier = n }
}

// WithEventClock sets the clock stamping event sequence numbers. Sessions
// sharing a clock share one event order.
func WithEventClock(c *notify.Clock) Option {
	return func(s *settings) { s.events = c }
}

// WithAudio sets the purchase sound trigger.
func WithAudio(fn shop.AudioTrigger) Option {
	return func(s *settings) { s.audio = fn }
}

// WithFrame sets the callback receiving displayed balances while a
// purchase animates.
func WithFrame(fn func(display int64)) Option {
	return func(s *settings) { s.frame = fn }
}

// WithoutProbe skips the startup storage probe. The harness uses it so the
// probe key never shows up in recorded writes.
func WithoutProbe() Option {
	return func(s *settings) { s.skipProbe = true }
}

// Game is one session of the economy.
type Game struct {
	State        *progress.State
	Achievements *achievement.Manager
	Scheduler    *autoclick.Scheduler
	Shop         *shop.Shop
	Lore         *lore.Manager
	Themes       *prefs.Themes
	Music        *prefs.Music

	catalog  *catalog.Catalog
	config   config.Config
	store    kv.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

// ClickResult is returned by Click.
type ClickResult struct {
	progress.ManualTotals
	Earned []achievement.Achievement
}

// New loads a session from backend. Keys are namespaced under the
// configured prefix. If backend fails the storage probe the session runs
// memory-only.
func New(backend kv.Store, opts ...Option) (*Game, error) {
	s := settings{
		config:   config.Default(),
		logger:   slog.Default(),
		ids:      txid.UUIDv7Generator{},
		notifier: notify.Discard,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.catalog == nil {
		c, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		s.catalog = c
	}

	store := kv.WithPrefix(backend, s.config.Prefix)
	if !s.skipProbe {
		store = kv.Probe(store, s.logger)
	}

	list, err := achievement.FromCatalog(s.catalog.Achievements)
	if err != nil {
		return nil, fmt.Errorf("build achievements: %w", err)
	}

	if s.events == nil {
		s.events = notify.NewClock()
	}
	events := notify.NewSequencer(s.events, s.notifier)
	animator := animate.NewAnimator(s.clock)
	gate := &animate.Gate{}

	g := &Game{
		catalog:  s.catalog,
		config:   s.config,
		store:    store,
		notifier: events,
		logger:   s.logger,
	}

	g.State = progress.Load(store, progress.WithConfig(s.config), progress.WithLogger(s.logger))
	g.Achievements = achievement.New(list, store,
		achievement.WithKey(s.config.Keys.EarnedAchievements),
		achievement.WithNotifier(events),
		achievement.WithLogger(s.logger),
	)

	schedOpts := []autoclick.Option{
		autoclick.WithEconomy(s.catalog.Economy),
		autoclick.WithLogger(s.logger),
	}
	if s.tickers != nil {
		schedOpts = append(schedOpts, autoclick.WithTickerFunc(s.tickers))
	}
	g.Scheduler = autoclick.New(g.State, schedOpts...)
	g.Scheduler.RegisterTickCallback(func(agent int64) {
		g.Achievements.Check(catalog.GroupAgentClicks, achievement.Count(agent))
	})

	g.Shop = shop.New(g.State, g.Achievements, s.catalog,
		shop.WithGate(gate),
		shop.WithAnimator(animator),
		shop.WithFrame(s.frame),
		shop.WithTxIDs(s.ids),
		shop.WithNotifier(events),
		shop.WithScheduler(g.Scheduler),
		shop.WithAudio(s.audio),
		shop.WithLogger(s.logger),
	)
	g.Lore = lore.New(g.State, g.Achievements, s.catalog.Lore, gate, store,
		lore.WithAnimator(animator),
		lore.WithFrame(s.frame),
		lore.WithTxIDs(s.ids),
		lore.WithNotifier(events),
		lore.WithKey(s.config.Keys.UnlockedLore),
		lore.WithLogger(s.logger),
	)
	g.Themes = prefs.NewThemes(g.State, store, prefs.WithConfig(s.config), prefs.WithLogger(s.logger))
	g.Music = prefs.NewMusic(g.State, store, prefs.WithConfig(s.config), prefs.WithLogger(s.logger))

	g.Shop.OnPurchase(g.purchased)
	return g, nil
}

// purchased activates what a one-time unlock turns on.
func (g *Game) purchased(r shop.Receipt) {
	it, ok := g.catalog.Item(r.ItemID)
	if !ok || it.Kind != catalog.KindUnlock {
		return
	}
	f := progress.Feature(it.Feature)
	g.Themes.Unlocked(f)
	if f == progress.FeatureBGM {
		if err := g.Music.SetPlaying(true); err != nil {
			g.logger.Warn("start music", "error", err)
		}
	}
}

// Catalog returns the catalog in use.
func (g *Game) Catalog() *catalog.Catalog { return g.catalog }

// Start runs the auto-clicker if the loaded level is above zero.
func (g *Game) Start() { g.Scheduler.Start() }

// Close stops the auto-clicker.
func (g *Game) Close() { g.Scheduler.Stop() }

// Click records one manual click and evaluates the click groups.
func (g *Game) Click() ClickResult {
	totals := g.State.RecordManualClick()
	earned := g.Achievements.Check(catalog.GroupClick, achievement.Count(totals.LifetimeClicks))
	earned = append(earned, g.Achievements.Check(catalog.GroupManualClicks, achievement.Count(totals.ManualClicks))...)
	return ClickResult{ManualTotals: totals, Earned: earned}
}

// HoverName records the hero-name hover interaction.
func (g *Game) HoverName() []achievement.Achievement {
	return g.Achievements.Check(catalog.GroupNameHover, achievement.Flag(true))
}

// ClickName records the hero-name click interaction.
func (g *Game) ClickName() []achievement.Achievement {
	return g.Achievements.Check(catalog.GroupNameClick, achievement.Flag(true))
}

// Buy purchases a shop item.
func (g *Game) Buy(ctx context.Context, id string) (shop.Receipt, error) {
	return g.Shop.Buy(ctx, id)
}

// UnlockLore purchases a lore entry.
func (g *Game) UnlockLore(ctx context.Context, id string) (lore.Receipt, error) {
	return g.Lore.Unlock(ctx, id)
}

// ClearAllData stops the auto-clicker, resets every component and purges
// every progress key. The theme key is kept and set back to light.
func (g *Game) ClearAllData() {
	g.Scheduler.Stop()

	g.State.Reset()
	g.Achievements.Reset()
	g.Lore.Reset()
	g.Music.Reset()

	var b kv.Batch
	for _, k := range g.config.ProgressKeys() {
		b.Delete(k)
	}
	if err := g.store.Apply(b); err != nil {
		g.logger.Error("purge progress", "error", err)
	}
	g.Themes.Reset()

	g.logger.Info("all game progress has been reset")
	g.notifier.Notify(notify.Event{Kind: notify.KindReset})
}

// Sync follows balance changes written by other sessions until ctx is done.
// fn, if set, is called with the new balance after each applied change.
// A remote delete of the upgrade level means another session cleared all
// data: the auto-clicker stops and progression is re-read from the store.
// A store that cannot watch returns once ctx is done.
func (g *Game) Sync(ctx context.Context, fn func(balance int64)) {
	w, ok := g.store.(kv.Watcher)
	if !ok {
		<-ctx.Done()
		return
	}
	for c := range w.Watch(ctx) {
		if c.Key == g.config.Keys.UpgradeLevel && c.Deleted {
			g.remoteReset(c.Origin)
			if fn != nil {
				fn(g.State.Balance())
			}
			continue
		}
		if !g.State.ApplyRemote(c) {
			continue
		}
		g.logger.Debug("balance synced", "origin", c.Origin, "balance", g.State.Balance())
		if fn != nil {
			fn(g.State.Balance())
		}
	}
}

// remoteReset follows a ClearAllData done by another session. Nothing is
// written back so the sessions do not echo deletes at each other.
func (g *Game) remoteReset(origin string) {
	g.Scheduler.Stop()
	g.State.Reload()
	g.logger.Info("progress cleared by another session", "origin", origin)
}

// Status is a read-only view of the session.
type Status struct {
	progress.Snapshot
	MaxLevel        int           `json:"max_level"`
	NextUpgradeCost int64         `json:"next_upgrade_cost,omitempty"`
	Period          time.Duration `json:"period_ns,omitempty"`
	ShopComplete    bool          `json:"shop_complete"`
	Theme           prefs.Theme   `json:"theme"`
	Volume          int           `json:"volume"`
	Playing         bool          `json:"playing"`
	Achievements    []string      `json:"achievements"`
	Lore            []string      `json:"lore"`
}

// Status returns the current view.
func (g *Game) Status() Status {
	snap := g.State.Snapshot()
	st := Status{
		Snapshot:     snap,
		MaxLevel:     g.Shop.MaxLevel(),
		Period:       autoclick.PeriodFor(g.catalog.Economy, snap.UpgradeLevel),
		ShopComplete: g.Shop.Complete(),
		Theme:        g.Themes.Current(),
		Volume:       g.Music.Volume(),
		Playing:      g.Music.Playing(),
		Achievements: g.Achievements.Earned(),
		Lore:         g.Lore.Unlocked(),
	}
	if cost, err := g.Shop.Price(g.catalog.Upgrade().ID); err == nil {
		st.NextUpgradeCost = cost
	}
	return st
}
