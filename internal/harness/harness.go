package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/idle/internal/autoclick"
	"github.com/roach88/idle/internal/catalog"
	"github.com/roach88/idle/internal/game"
	"github.com/roach88/idle/internal/kv"
	"github.com/roach88/idle/internal/lore"
	"github.com/roach88/idle/internal/notify"
	"github.com/roach88/idle/internal/prefs"
	"github.com/roach88/idle/internal/progress"
	"github.com/roach88/idle/internal/shop"
	"github.com/roach88/idle/internal/testutil"
)

// errIdle is returned by a tick step while the auto-clicker is off.
var errIdle = errors.New("auto-clicker idle")

// Option configures a run.
type Option func(*Harness)

// WithCatalog runs the scenario against c instead of the embedded catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(h *Harness) { h.catalog = c }
}

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Harness executes one scenario with deterministic collaborators.
type Harness struct {
	catalog *catalog.Catalog
	logger  *slog.Logger

	store    kv.Store
	clock    *testutil.FakeClock
	tickers  *testutil.Tickers
	ids      *testutil.SequentialGenerator
	events   *notify.Clock
	recorder *notify.Recorder

	game *game.Game
}

// Run executes a scenario and returns the result.
//
// Each scenario runs over a fresh in-memory store. A step whose outcome
// differs from its expectation, or a failing assertion, marks the result
// failed; the returned error is reserved for scenarios that cannot run.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		store:    kv.NewMemory().Session("harness"),
		clock:    testutil.NewFakeClock(),
		tickers:  &testutil.Tickers{},
		ids:      testutil.NewSequentialGenerator("tx"),
		events:   notify.NewClock(),
		recorder: &notify.Recorder{},
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.load(); err != nil {
		return nil, err
	}
	defer func() { h.game.Close() }()

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		outcome, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Do, err)
		}
		result.Steps = append(result.Steps, StepResult{Index: i, Do: step.Do, Item: step.Item, Outcome: outcome})

		want := step.Expect
		if want == "" {
			want = OutcomeOK
		}
		if outcome != want {
			result.AddError(fmt.Sprintf("step %d (%s %s): expected %s, got %s", i, step.Do, step.Item, want, outcome))
		}
	}

	result.Trace = h.recorder.Events()
	result.Final = h.game.Status()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// load starts a session over the harness store.
func (h *Harness) load() error {
	opts := []game.Option{
		game.WithLogger(h.logger),
		game.WithClock(h.clock),
		game.WithTickerFunc(func(d time.Duration) autoclick.Ticker { return h.tickers.New(d) }),
		game.WithTxIDs(h.ids),
		game.WithEventClock(h.events),
		game.WithNotifier(h.recorder),
		game.WithoutProbe(),
	}
	if h.catalog != nil {
		opts = append(opts, game.WithCatalog(h.catalog))
	}
	g, err := game.New(h.store, opts...)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	g.Start()
	h.game = g
	return nil
}

// execute runs one step and classifies its outcome. Repeated steps stop at
// the first outcome that differs from the first repetition's.
func (h *Harness) execute(ctx context.Context, step Step) (string, error) {
	times := max(step.Times, 1)
	g := h.game

	switch step.Do {
	case DoClick:
		for range times {
			g.Click()
		}
		return OutcomeOK, nil
	case DoTick:
		return repeat(times, func() error {
			if !g.Scheduler.Running() {
				return errIdle
			}
			g.Scheduler.Fire()
			return nil
		}), nil
	case DoBuy:
		return repeat(times, func() error {
			_, err := g.Buy(ctx, step.Item)
			return err
		}), nil
	case DoLore:
		_, err := g.UnlockLore(ctx, step.Item)
		return classify(err), nil
	case DoHoverName:
		g.HoverName()
		return OutcomeOK, nil
	case DoClickName:
		g.ClickName()
		return OutcomeOK, nil
	case DoTheme:
		return classify(g.Themes.Select(prefs.Theme(step.Item))), nil
	case DoToggleTheme:
		g.Themes.Toggle()
		return OutcomeOK, nil
	case DoVolume:
		g.Music.SetVolume(step.Value)
		return OutcomeOK, nil
	case DoReset:
		g.ClearAllData()
		return OutcomeOK, nil
	case DoReload:
		g.Close()
		return OutcomeOK, h.load()
	}
	return "", fmt.Errorf("unknown action %q", step.Do)
}

func repeat(times int, fn func() error) string {
	first := ""
	for i := range times {
		outcome := classify(fn())
		if i == 0 {
			first = outcome
		} else if outcome != first {
			return outcome
		}
	}
	return first
}

// classify maps an error to a step outcome.
func classify(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case progress.IsInsufficientFunds(err):
		return OutcomeInsufficientFunds
	case errors.Is(err, shop.ErrAlreadyOwned), errors.Is(err, lore.ErrAlreadyUnlocked):
		return OutcomeAlreadyOwned
	case errors.Is(err, shop.ErrMaxLevel):
		return OutcomeMaxLevel
	case errors.Is(err, shop.ErrLocked), errors.Is(err, prefs.ErrLocked):
		return OutcomeLocked
	case errors.Is(err, shop.ErrUnknownItem), errors.Is(err, lore.ErrUnknownLore), errors.Is(err, prefs.ErrUnknownTheme):
		return OutcomeUnknown
	case errors.Is(err, shop.ErrPurchaseInProgress):
		return OutcomeInProgress
	case errors.Is(err, errIdle):
		return OutcomeIdle
	}
	return OutcomeError
}
