package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"usersbox-bot/internal/database"
	"usersbox-bot/internal/telegram"
	"usersbox-bot/internal/usersbox"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			// Connect migrates as part of opening the pool.
			db, err := database.Connect(&cfg.DB, log)
			if err != nil {
				return err
			}
			return database.Close(db)
		},
	}
}

func newSetWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-webhook",
		Short: "Register the webhook URL with Telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			url, _ := cmd.Flags().GetString("url")
			if url == "" {
				url = cfg.Telegram.WebhookURL
			}
			if url == "" {
				return errors.New("no webhook url: pass --url or set BOT_TELEGRAM_WEBHOOK_URL")
			}
			if cfg.Telegram.Token == "" {
				return errors.New("BOT_TELEGRAM_TOKEN is required")
			}

			tg, err := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIServer, nil, log)
			if err != nil {
				return err
			}
			if err := tg.SetWebhook(cmd.Context(), url, cfg.Telegram.WebhookSecret); err != nil {
				return err
			}
			info, err := tg.WebhookInfo(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "webhook: %s (pending updates: %d)\n", info.URL, info.PendingUpdateCount)
			return nil
		},
	}
	cmd.Flags().String("url", "", "Webhook URL (defaults to BOT_TELEGRAM_WEBHOOK_URL).")
	return cmd
}

func newCheckProviderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-provider",
		Short: "Call the usersbox getMe endpoint and print the application info",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if cfg.Usersbox.Token == "" {
				return errors.New("BOT_USERSBOX_TOKEN is required")
			}

			client := usersbox.NewClient(cfg.Usersbox.BaseURL, cfg.Usersbox.Token, cfg.Usersbox.Timeout, log)
			info, err := client.GetAppInfo(cmd.Context())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
