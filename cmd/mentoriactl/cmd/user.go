package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mentoria/mentoria-go/internal/repository"
)

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	deactivateCmd := &cobra.Command{
		Use:   "deactivate <email>",
		Short: "Soft-delete a user and evict their cached sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setActive(cmd, args[0], false)
		},
	}

	activateCmd := &cobra.Command{
		Use:   "activate <email>",
		Short: "Reactivate a soft-deleted user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setActive(cmd, args[0], true)
		},
	}

	userCmd.AddCommand(deactivateCmd, activateCmd)
	return userCmd
}

func setActive(cmd *cobra.Command, email string, active bool) error {
	e, err := openEnv(!active)
	if err != nil {
		return err
	}
	defer e.Close()

	email = strings.TrimSpace(email)
	id, err := repository.NewUserRepository(e.db).SetActive(cmd.Context(), email, active)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("no user with email %s", email)
		}
		return err
	}

	state := "activated"
	if !active {
		e.sessions().EvictUser(cmd.Context(), id)
		state = "deactivated"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "user %d %s\n", id, state)
	return nil
}
