package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/idle/internal/catalog"
	"github.com/roach88/idle/internal/game"
	"github.com/roach88/idle/internal/kv"
	"github.com/roach88/idle/internal/notify"
)

// session is one opened game over the database.
type session struct {
	game   *game.Game
	store  *kv.SQLite
	events *notify.Queue
	out    *OutputFormatter
	logger *slog.Logger
}

// newFormatter builds the formatter for cmd's writers.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newLogger logs to w. Only warnings are shown unless verbose is set.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openSession opens the database, creating it and its directory if needed,
// and loads the game from it. Each process is its own origin so concurrent
// sessions see each other's writes as remote changes.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := newFormatter(opts, cmd)
	logger := newLogger(opts, cmd.ErrOrStderr())

	var gameOpts []game.Option
	if opts.Catalog != "" {
		cat, err := catalog.Load(opts.Catalog)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
		}
		gameOpts = append(gameOpts, game.WithCatalog(cat))
	}

	if dir := filepath.Dir(opts.Database); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}

	origin := uuid.NewString()
	out.VerboseLog("Using database %s", opts.Database)
	logger.Debug("opening database", "path", opts.Database, "origin", origin)
	st, err := kv.Open(opts.Database, origin)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	events := notify.NewQueue()
	gameOpts = append(gameOpts,
		game.WithLogger(logger),
		game.WithNotifier(notify.Multi{events, notify.Logger{L: logger}}),
	)
	gameOpts = append(gameOpts, opts.gameOptions...)

	g, err := game.New(st, gameOpts...)
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load game", err)
	}

	return &session{
		game:   g,
		store:  st,
		events: events,
		out:    out,
		logger: logger,
	}, nil
}

// Close stops the auto-clicker and closes the database.
func (s *session) Close() {
	s.game.Close()
	s.events.Close()
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// withSession opens a session, runs fn and closes the session.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(*session) error) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// describeEvent renders an event for people.
func describeEvent(e notify.Event) string {
	switch e.Kind {
	case notify.KindAchievementEarned:
		return fmt.Sprintf("★ Achievement unlocked: %s", e.Title)
	case notify.KindInsufficientFunds:
		return fmt.Sprintf("✗ Not enough clicks for %s (%d short)", e.ID, e.Amount)
	case notify.KindPurchased:
		if e.Level > 0 {
			return fmt.Sprintf("✓ Bought %s level %d for %d", e.Title, e.Level, e.Amount)
		}
		return fmt.Sprintf("✓ Bought %s for %d", e.Title, e.Amount)
	case notify.KindLoreUnlocked:
		return fmt.Sprintf("✓ Unlocked lore %q for %d", e.Title, e.Amount)
	case notify.KindReset:
		return "All game progress has been reset"
	}
	return string(e.Kind)
}

// printEvents writes every queued event in text mode.
func (s *session) printEvents() {
	events := s.events.Drain()
	if s.out.Format == "json" {
		return
	}
	for _, e := range events {
		fmt.Fprintln(s.out.Writer, describeEvent(e))
	}
}

// pending drains the queued events for a JSON payload.
func (s *session) pending() []notify.Event {
	events := s.events.Drain()
	if events == nil {
		events = []notify.Event{}
	}
	return events
}
