package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/idle/internal/catalog"
	"github.com/roach88/idle/internal/progress"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show balance, counters and unlocks",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, showStatus)
		},
	}
	return cmd
}

func showStatus(s *session) error {
	st := s.game.Status()
	if s.out.Format == "json" {
		return s.out.Success(st)
	}

	w := s.out.Writer
	fmt.Fprintf(w, "Balance:        %d\n", st.Balance)
	fmt.Fprintf(w, "Lifetime:       %d clicks (%d manual, %d by agents)\n", st.LifetimeClicks, st.ManualClicks, st.AgentClicks)
	if st.UpgradeLevel > 0 {
		fmt.Fprintf(w, "Agents:         level %d/%d, one click every %s\n", st.UpgradeLevel, st.MaxLevel, st.Period)
	} else {
		fmt.Fprintf(w, "Agents:         none hired\n")
	}
	if st.NextUpgradeCost > 0 {
		fmt.Fprintf(w, "Next agent:     %d\n", st.NextUpgradeCost)
	}

	var unlocks []string
	for _, f := range progress.Features {
		if st.Unlocks[f] {
			unlocks = append(unlocks, string(f))
		}
	}
	if len(unlocks) == 0 {
		unlocks = []string{"none"}
	}
	fmt.Fprintf(w, "Unlocks:        %s\n", strings.Join(unlocks, ", "))
	fmt.Fprintf(w, "Theme:          %s\n", st.Theme)

	music := "off"
	if st.Playing {
		music = "on"
	}
	fmt.Fprintf(w, "Music:          %s, volume %d\n", music, st.Volume)
	fmt.Fprintf(w, "Achievements:   %d/%d\n", len(st.Achievements), len(s.game.Catalog().Achievements))
	fmt.Fprintf(w, "Lore:           %d/%d\n", len(st.Lore), len(s.game.Catalog().Lore))
	if st.ShopComplete {
		fmt.Fprintln(w, "Shop:           complete")
	}
	return nil
}

// NewShopCommand creates the shop command.
func NewShopCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "List shop items and prices",
		Long: `List every shop item with its current price.

The agent upgrade price grows with each level. One-time unlocks show as
owned once bought; locked items show their level requirement.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, listShop)
		},
	}
	return cmd
}

func listShop(s *session) error {
	items := s.game.Shop.Items()
	if s.out.Format == "json" {
		return s.out.Success(items)
	}

	w := s.out.Writer
	level := s.game.State.UpgradeLevel()
	for _, l := range items {
		var state string
		switch {
		case l.Owned:
			state = "owned"
		case l.Item.Kind == catalog.KindUpgrade && l.Level >= l.Max:
			state = fmt.Sprintf("max level %d", l.Max)
		case l.Item.RequiresLevel > level:
			state = fmt.Sprintf("requires level %d", l.Item.RequiresLevel)
		default:
			state = fmt.Sprintf("%d", l.Price)
		}
		name := l.Item.Title
		if l.Item.Kind == catalog.KindUpgrade {
			name = fmt.Sprintf("%s (level %d/%d)", l.Item.Title, l.Level, l.Max)
		}
		fmt.Fprintf(w, "%-16s %-34s %s\n", l.Item.ID, name, state)
	}
	fmt.Fprintf(w, "\nBalance: %d\n", s.game.State.Balance())
	return nil
}

// AchievementListing is one row of the achievements command.
type AchievementListing struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Group       catalog.Group `json:"group"`
	Earned      bool          `json:"earned"`
}

// NewAchievementsCommand creates the achievements command.
func NewAchievementsCommand(rootOpts *RootOptions) *cobra.Command {
	var earnedOnly bool

	cmd := &cobra.Command{
		Use:           "achievements",
		Short:         "List achievements",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				return listAchievements(s, earnedOnly)
			})
		},
	}

	cmd.Flags().BoolVar(&earnedOnly, "earned", false, "only list earned achievements")
	return cmd
}

func listAchievements(s *session, earnedOnly bool) error {
	var rows []AchievementListing
	for _, a := range s.game.Achievements.Catalog() {
		earned := s.game.Achievements.Has(a.ID)
		if earnedOnly && !earned {
			continue
		}
		rows = append(rows, AchievementListing{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			Group:       a.Group,
			Earned:      earned,
		})
	}
	if s.out.Format == "json" {
		if rows == nil {
			rows = []AchievementListing{}
		}
		return s.out.Success(rows)
	}

	for _, r := range rows {
		mark := " "
		if r.Earned {
			mark = "★"
		}
		fmt.Fprintf(s.out.Writer, "%s %-28s %s\n", mark, r.Title, r.Description)
	}
	return nil
}
