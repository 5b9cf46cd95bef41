package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seochat/internal/bootstrap"
	"seochat/internal/config"
)

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Database.Driver == config.DriverMemory {
				return fmt.Errorf("nothing to migrate for the %q driver", cfg.Database.Driver)
			}
			db, err := bootstrap.OpenDatabase(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := bootstrap.Migrate(db); err != nil {
				return err
			}
			logger.Info("schema migrated")
			return nil
		},
	}
}
