package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/idle/internal/prefs"
)

// ThemeOutput is the JSON payload of the theme command.
type ThemeOutput struct {
	Theme prefs.Theme `json:"theme"`
}

// NewThemeCommand creates the theme command.
func NewThemeCommand(rootOpts *RootOptions) *cobra.Command {
	var toggle bool

	cmd := &cobra.Command{
		Use:   "theme [name]",
		Short: "Show or select the colour theme",
		Long: `Show the current theme, select one, or toggle between light and dark.

Themes other than light must be bought in the shop first.

Examples:
  idle theme
  idle theme synthwave
  idle theme --toggle`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				switch {
				case toggle:
					s.game.Themes.Toggle()
				case len(args) == 1:
					th, err := prefs.ParseTheme(args[0])
					if err != nil {
						return s.out.Refused(err, map[string]string{"theme": args[0]})
					}
					if err := s.game.Themes.Select(th); err != nil {
						return s.out.Refused(err, map[string]string{"theme": args[0]})
					}
				}

				current := s.game.Themes.Current()
				if s.out.Format == "json" {
					return s.out.Success(ThemeOutput{Theme: current})
				}
				fmt.Fprintf(s.out.Writer, "Theme: %s\n", current)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&toggle, "toggle", false, "toggle between light and dark")
	return cmd
}

// MusicOutput is the JSON payload of the music command.
type MusicOutput struct {
	Playing bool `json:"playing"`
	Volume  int  `json:"volume"`
}

// NewMusicCommand creates the music command.
func NewMusicCommand(rootOpts *RootOptions) *cobra.Command {
	var on, off bool

	cmd := &cobra.Command{
		Use:   "music [volume]",
		Short: "Show or change background music settings",
		Long: `Show the background music settings, set the volume (0-100) or turn
the music on or off. Playing requires the music unlock from the shop.

Examples:
  idle music
  idle music 40
  idle music --off`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if on && off {
				return NewExitError(ExitCommandError, "--on and --off are mutually exclusive")
			}
			var volume *int
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return NewExitError(ExitCommandError, fmt.Sprintf("invalid volume %q: must be an integer", args[0]))
				}
				volume = &v
			}

			return withSession(rootOpts, cmd, func(s *session) error {
				if volume != nil {
					s.game.Music.SetVolume(*volume)
				}
				if on || off {
					if err := s.game.Music.SetPlaying(on); err != nil {
						return s.out.Refused(err, nil)
					}
				}

				out := MusicOutput{Playing: s.game.Music.Playing(), Volume: s.game.Music.Volume()}
				if s.out.Format == "json" {
					return s.out.Success(out)
				}
				state := "off"
				if out.Playing {
					state = "on"
				}
				fmt.Fprintf(s.out.Writer, "Music: %s, volume %d\n", state, out.Volume)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&on, "on", false, "start the music")
	cmd.Flags().BoolVar(&off, "off", false, "stop the music")
	return cmd
}
