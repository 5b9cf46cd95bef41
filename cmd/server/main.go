package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seochat/internal/config"
	"seochat/internal/observ"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "seochat",
	Short:         "Multi-tenant backend for the SEO chatbot widget",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(
		NewServeCommand(),
		NewMigrateCommand(),
		NewPurgeSessionsCommand(),
	)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the TOML config file (default $CONFIG_FILE or configs/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug,info,warn,error)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config failed: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err := observ.NewLogger(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger failed: %w", err)
	}
	return cfg, logger, nil
}
