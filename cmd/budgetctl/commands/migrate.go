package commands

import (
	"fmt"

	"github.com/rongwang/budget-server/internal/repository"
	"github.com/spf13/cobra"
)

var rollbackSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Long: `Apply every pending migration to the configured database.

The server applies migrations on start-up as well; this command is for
preparing a database ahead of a deploy.

Examples:
  budgetctl migrate up
  budgetctl migrate up --env-file prod.env`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := repository.RunMigrations(cfg.Database.GetDSN()); err != nil {
			return err
		}
		logger.Info("migrations applied", "database", cfg.Database.DBName)
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the most recent migrations",
	Long: `Revert the most recent migrations.

Examples:
  budgetctl migrate down
  budgetctl migrate down --steps 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if rollbackSteps < 1 {
			return fmt.Errorf("--steps must be at least 1, got %d", rollbackSteps)
		}
		if err := repository.RollbackMigrations(cfg.Database.GetDSN(), rollbackSteps); err != nil {
			return err
		}
		logger.Info("migrations reverted", "database", cfg.Database.DBName, "steps", rollbackSteps)
		fmt.Fprintf(cmd.OutOrStdout(), "Reverted %d migration(s)\n", rollbackSteps)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVarP(&rollbackSteps, "steps", "n", 1, "Number of migrations to revert")
}
