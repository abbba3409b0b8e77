// Package cli implements the Stride command-line interface using Cobra.
// Each subcommand maps to one planner or engagement operation.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stride",
	Short: "Stride: a daily planner that rewards finishing things",
	Long: `Stride is a daily planner with tasks, notes, focus items and a schedule.
Completing a task earns XP, keeps a daily streak going and levels you up.

Run 'stride serve' for the HTTP API, or use the task and profile
commands directly against the local store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var userFlag string

func init() {
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", os.Getenv("STRIDE_USER"),
		"User id or name to act as (default $STRIDE_USER)")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
