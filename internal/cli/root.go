package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/idle/internal/game"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Catalog  string // optional CUE catalog overriding the embedded one

	// gameOptions are appended to every session (for testing).
	gameOptions []game.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the idle CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	return newRootCommand(opts)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idle",
		Short: "idle - a clicker economy in your terminal",
		Long: `A clicker economy with an auto-clicker, a shop, lore and achievements.

Progress is kept in a SQLite database. Two processes sharing the same
database see each other's balance.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", defaultDatabasePath(), "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", "", "path to a CUE catalog (default: embedded)")

	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewClickCommand(opts))
	cmd.AddCommand(NewBuyCommand(opts))
	cmd.AddCommand(NewLoreCommand(opts))
	cmd.AddCommand(NewShopCommand(opts))
	cmd.AddCommand(NewAchievementsCommand(opts))
	cmd.AddCommand(NewThemeCommand(opts))
	cmd.AddCommand(NewMusicCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// defaultDatabasePath returns $HOME/.idle/idle.db, or idle.db in the working
// directory if there is no home.
func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "idle.db"
	}
	return filepath.Join(home, ".idle", "idle.db")
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
