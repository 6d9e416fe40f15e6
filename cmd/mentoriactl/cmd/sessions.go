package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mentoria/mentoria-go/internal/repository"
)

func newSessionsCmd() *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain login sessions",
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions that have already expired",
		Long: `Delete expired session rows. The server only rejects expired
sessions when they are presented, so run this periodically to keep the
table small.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := repository.NewSessionRepository(e.db).DeleteExpired(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d expired sessions deleted\n", n)
			return nil
		},
	}

	sessionsCmd.AddCommand(pruneCmd)
	return sessionsCmd
}
