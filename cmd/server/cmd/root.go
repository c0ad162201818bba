// Package cmd provides the complybook server and maintenance commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"complybook/internal/config"
	"complybook/internal/logging"
	service "complybook/internal/services/reconciliation"
)

var (
	envFile string
	debug   bool

	cfg    *config.Config
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "complybook",
	Short: "Bank reconciliation service",
	Long: `complybook serves the bank reconciliation API: sessions, statement
import, transaction matching and completion.

Run without a subcommand to start the HTTP server.

Example:
  complybook serve
  complybook migrate
  complybook import --session <id> --file january.csv`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, envLoaded, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if debug {
			loaded.LogLevel = "debug"
		}
		cfg = loaded
		logger = logging.New(cfg.LogLevel)
		if !envLoaded {
			logger.Info("no .env file found, relying on system env")
		}
		return cfg.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command. It is called once by main.main().
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(loadLedgerCmd)
}

// openService connects, migrates and builds the reconciliation service.
func openService() (*gorm.DB, *service.ReconciliationService, error) {
	db, err := config.InitDB(cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := config.Migrate(db); err != nil {
		return nil, nil, err
	}
	svc := service.NewReconciliationService(db, service.NewRepositories(db), cfg.Matching, logger)
	return db, svc, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("failed to close database", "error", err)
	}
}
