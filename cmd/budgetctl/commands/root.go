package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rongwang/budget-server/internal/config"
	"github.com/rongwang/budget-server/internal/utils"
	"github.com/spf13/cobra"
)

var (
	envFile  string
	logLevel string

	cfg    *config.Config
	logger *utils.Logger
)

var rootCmd = &cobra.Command{
	Use:   "budgetctl",
	Short: "Administrative tooling for the budget server",
	Long: `budgetctl runs maintenance tasks against the budget server's database.

It reads the same environment variables as the server (DB_HOST, DB_NAME,
JWT_SECRET, ...), optionally loaded from a .env file.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		cfg = config.LoadConfig()
		// The admin tool always talks to postgres
		cfg.DataBackend = config.BackendPostgres
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger = utils.NewLogger(logLevel).WithComponent("budgetctl")
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}
