package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stride-app/stride/internal/domain"
)

func init() {
	userAddCmd.Flags().StringVar(&userAddID, "id", "", "User id (default: generated)")
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}

var userAddID string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a user with a fresh profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	u := domain.User{ID: strings.TrimSpace(userAddID), Name: strings.TrimSpace(args[0])}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := d.Store.CreateUser(ctx, u); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", u.Name, u.ID)
	return nil
}
