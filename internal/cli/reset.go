package cli

import (
	"github.com/spf13/cobra"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all game progress",
		Long: `Clear the balance, counters, unlocks, achievements, lore and music
settings. The theme goes back to light. This cannot be undone.

Example:
  idle reset --yes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "reset deletes all progress: pass --yes to confirm")
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				s.game.ClearAllData()
				if s.out.Format == "json" {
					return s.out.Success(s.game.Status())
				}
				s.printEvents()
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
