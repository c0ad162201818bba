package cmd

import (
	"github.com/spf13/cobra"

	"complybook/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.InitDB(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := config.Migrate(db); err != nil {
			return err
		}
		logger.Info("migration complete", "db", cfg.Database.Driver)
		return nil
	},
}
