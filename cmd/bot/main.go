package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"usersbox-bot/internal/config"
	"usersbox-bot/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "usersbox-bot",
		Short:        "Telegram search bot backed by the usersbox API",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("log-level", "", "Override BOT_LOG_LEVEL (debug|info|warn|error).")

	serve := newServeCmd()
	cmd.AddCommand(serve)
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSetWebhookCmd())
	cmd.AddCommand(newCheckProviderCmd())

	// Running without a subcommand serves the bot.
	cmd.RunE = serve.RunE
	return cmd
}

// bootstrap loads config and builds the process logger.
func bootstrap(cmd *cobra.Command, validate bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Production)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
