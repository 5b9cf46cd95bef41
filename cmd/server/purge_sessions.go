package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seochat/internal/bootstrap"
)

func NewPurgeSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete expired session rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			app, err := bootstrap.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.Services.Sessions.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("expired sessions purged", zap.Int64("deleted", n))
			return nil
		},
	}
}
