package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mentoria/mentoria-go/internal/repository"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := repository.Migrate(e.db, e.cfg.Database.Driver); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the given number of migrations. Without --steps every
migration is rolled back, which drops all data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := repository.MigrateDown(e.db, e.cfg.Database.Driver, steps); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
			return nil
		},
	}
	downCmd.Flags().Int("steps", 0, "number of migrations to roll back (0 rolls back all)")

	migrateCmd.AddCommand(upCmd, downCmd)
	return migrateCmd
}
