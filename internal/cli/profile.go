package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stride-app/stride/internal/app/engagement"
)

func init() {
	rootCmd.AddCommand(profileCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show XP, level and streak",
	Args:  cobra.NoArgs,
	RunE:  runProfile,
}

func runProfile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	owner, err := resolveUser(ctx, d.Store)
	if err != nil {
		return err
	}
	p, err := d.Store.GetProfile(ctx, owner)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Level:          %d\n", p.Level)
	fmt.Fprintf(w, "XP:             %d\n", p.XP)
	fmt.Fprintf(w, "To next level:  %d (%.1f%%)\n", engagement.XPToNextLevel(*p), engagement.ProgressPct(*p))
	fmt.Fprintf(w, "Streak:         %d\n", p.CurrentStreak)
	fmt.Fprintf(w, "Last completed: %s\n", formatDate(p.LastCompletionDate))
	return nil
}
