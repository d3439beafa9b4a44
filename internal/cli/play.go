package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/idle/internal/notify"
	"github.com/roach88/idle/internal/progress"
)

// commandContext returns cmd's context, or Background if none was set.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// ClickOutput is the JSON payload of the click command.
type ClickOutput struct {
	Clicks         int            `json:"clicks"`
	Balance        int64          `json:"balance"`
	LifetimeClicks int64          `json:"lifetime_clicks"`
	ManualClicks   int64          `json:"manual_clicks"`
	Events         []notify.Event `json:"events"`
}

// NewClickCommand creates the click command.
func NewClickCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "click [count]",
		Short: "Click the button",
		Long: `Record one or more manual clicks.

Each click adds one to the balance and to the lifetime and manual click
counters, and may earn click achievements.

Examples:
  idle click
  idle click 50`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			count := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return NewExitError(ExitCommandError, fmt.Sprintf("invalid click count %q: must be a positive integer", args[0]))
				}
				count = n
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				return runClick(s, count)
			})
		},
	}
	return cmd
}

func runClick(s *session, count int) error {
	var last progress.ManualTotals
	for i := 0; i < count; i++ {
		last = s.game.Click().ManualTotals
	}

	if s.out.Format == "json" {
		return s.out.Success(ClickOutput{
			Clicks:         count,
			Balance:        last.Balance,
			LifetimeClicks: last.LifetimeClicks,
			ManualClicks:   last.ManualClicks,
			Events:         s.pending(),
		})
	}

	s.printEvents()
	fmt.Fprintf(s.out.Writer, "Balance: %d (lifetime clicks: %d)\n", last.Balance, last.LifetimeClicks)
	return nil
}

// PurchaseOutput is the JSON payload of the buy and lore commands.
type PurchaseOutput struct {
	Receipt interface{}    `json:"receipt"`
	Text    string         `json:"text,omitempty"`
	Events  []notify.Event `json:"events"`
}

// refuse reports a failed purchase. Queued events are dropped: the error
// output already says what happened.
func (s *session) refuse(err error) error {
	s.events.Drain()
	var details interface{}
	if progress.IsInsufficientFunds(err) {
		details = map[string]int64{
			"balance":  s.game.State.Balance(),
			"shortage": progress.Shortage(err),
		}
	}
	return s.out.Refused(err, details)
}

// NewBuyCommand creates the buy command.
func NewBuyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy <item>",
		Short: "Buy a shop item",
		Long: `Buy the auto-clicker upgrade or a one-time unlock.

Run 'idle shop' to list items and prices.

Exit codes:
  0 - Purchase committed
  1 - Purchase refused (insufficient funds, owned, max level, locked)
  2 - Command error

Examples:
  idle buy agentic_clicker
  idle buy dark_mode --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				receipt, err := s.game.Buy(commandContext(cmd), args[0])
				if err != nil {
					return s.refuse(err)
				}
				if s.out.Format == "json" {
					return s.out.Success(PurchaseOutput{Receipt: receipt, Events: s.pending()})
				}
				s.printEvents()
				fmt.Fprintf(s.out.Writer, "Balance: %d\n", receipt.Balance)
				return nil
			})
		},
	}
	return cmd
}

// NewLoreCommand creates the lore command.
func NewLoreCommand(rootOpts *RootOptions) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "lore [id]",
		Short: "Unlock or list lore entries",
		Long: `Unlock a lore entry and print it, or list every entry.

Unlocked entries can be read again for free.

Examples:
  idle lore --list
  idle lore valcom_mvc`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list || len(args) == 0 {
				return withSession(rootOpts, cmd, listLore)
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				return unlockLore(commandContext(cmd), s, args[0])
			})
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "list lore entries")
	return cmd
}

func unlockLore(ctx context.Context, s *session, id string) error {
	entry, ok := s.game.Catalog().LoreEntry(id)
	if ok && s.game.Lore.IsUnlocked(id) {
		if s.out.Format == "json" {
			return s.out.Success(PurchaseOutput{Text: entry.Text, Events: []notify.Event{}})
		}
		fmt.Fprintf(s.out.Writer, "%s\n\n%s\n", entry.Title, entry.Text)
		return nil
	}

	receipt, err := s.game.UnlockLore(ctx, id)
	if err != nil {
		return s.refuse(err)
	}
	if s.out.Format == "json" {
		return s.out.Success(PurchaseOutput{Receipt: receipt, Text: entry.Text, Events: s.pending()})
	}
	s.printEvents()
	fmt.Fprintf(s.out.Writer, "\n%s\n\n%s\n\nBalance: %d\n", entry.Title, entry.Text, receipt.Balance)
	return nil
}

func listLore(s *session) error {
	entries := s.game.Lore.Entries()
	if s.out.Format == "json" {
		return s.out.Success(entries)
	}
	for _, e := range entries {
		mark := " "
		if e.Unlocked {
			mark = "✓"
		}
		fmt.Fprintf(s.out.Writer, "%s %-24s %-28s %6d  %s\n", mark, e.ID, e.Experience, e.Cost, e.Title)
	}
	return nil
}
