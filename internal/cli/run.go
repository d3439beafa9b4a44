package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/idle/internal/notify"
)

// ErrNoAgents is returned by run when no auto-clicker upgrade is owned.
var ErrNoAgents = errors.New("no agents hired: buy the upgrade first")

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	For time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Let the agents click",
		Long: `Run the auto-clicker in the foreground.

Hired agents click once per period until interrupted. Achievements are
printed as they are earned. Balance changes made by other processes
sharing the database are picked up while running.

Examples:
  idle run
  idle run --for 5m
  idle run --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				return runAgents(opts, cmd, s)
			})
		},
	}

	cmd.Flags().DurationVar(&opts.For, "for", 0, "stop after this long (default: until interrupted)")
	return cmd
}

// RunSummary is the final JSON payload of the run command.
type RunSummary struct {
	Balance     int64 `json:"balance"`
	AgentClicks int64 `json:"agent_clicks"`
	Earned      int64 `json:"clicks_earned"`
}

func runAgents(opts *RunOptions, cmd *cobra.Command, s *session) error {
	if s.game.State.UpgradeLevel() < 1 {
		return s.out.Refused(ErrNoAgents, nil)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()
	if opts.For > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.For)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			s.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.game.Sync(ctx, nil)
	}()

	startAgents := s.game.State.AgentClicks()
	s.game.Start()
	if s.out.Format != "json" {
		fmt.Fprintf(s.out.Writer, "Agents at work, one click every %s.\n", s.game.Scheduler.Period())
		fmt.Fprintln(s.out.Writer, "Press Ctrl-C to stop.")
	}

	enc := json.NewEncoder(s.out.Writer)
	for {
		e, err := s.events.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, notify.ErrClosed) {
				break
			}
			return WrapExitError(ExitFailure, "event loop", err)
		}
		if s.out.Format == "json" {
			if err := enc.Encode(e); err != nil {
				return WrapExitError(ExitCommandError, "failed to write output", err)
			}
			continue
		}
		fmt.Fprintln(s.out.Writer, describeEvent(e))
	}

	s.game.Close()
	cancel()
	wg.Wait()

	summary := RunSummary{
		Balance:     s.game.State.Balance(),
		AgentClicks: s.game.State.AgentClicks(),
	}
	summary.Earned = summary.AgentClicks - startAgents
	s.logger.Info("agents stopped", "clicks", summary.Earned)

	if s.out.Format == "json" {
		return s.out.Success(summary)
	}
	fmt.Fprintf(s.out.Writer, "Stopped. Agents clicked %d times. Balance: %d\n", summary.Earned, summary.Balance)
	return nil
}
