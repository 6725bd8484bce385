package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"usersbox-bot/internal/bot"
	"usersbox-bot/internal/database"
	"usersbox-bot/internal/dedupe"
	"usersbox-bot/internal/journal"
	"usersbox-bot/internal/ledger"
	"usersbox-bot/internal/server"
	"usersbox-bot/internal/telegram"
	"usersbox-bot/internal/usersbox"
	"usersbox-bot/internal/utils"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Telegram webhook and the operator API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(cmd, true)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			prefixes, err := utils.ParsePrefixes(cfg.HTTP.AllowedCIDRs)
			if err != nil {
				return fmt.Errorf("invalid BOT_HTTP_ALLOWED_CIDRS: %w", err)
			}

			db, err := database.Connect(&cfg.DB, log)
			if err != nil {
				return fmt.Errorf("could not connect to database: %w", err)
			}
			defer func() { _ = database.Close(db) }()
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}

			var rdb *redis.Client
			if cfg.Redis.Enabled {
				rdb, err = database.ConnectRedis(&cfg.Redis, log)
				if err != nil {
					return fmt.Errorf("could not connect to redis: %w", err)
				}
				defer func() { _ = rdb.Close() }()
			}

			apiClient := usersbox.NewClient(cfg.Usersbox.BaseURL, cfg.Usersbox.Token, cfg.Usersbox.Timeout, log)
			var provider bot.Provider = apiClient
			var guard server.UpdateGuard
			if rdb != nil {
				provider = usersbox.NewCachedClient(apiClient, rdb, cfg.Usersbox.SourcesTTL)
				guard = dedupe.NewGuard(rdb, dedupe.DefaultTTL)
			}

			quota := ledger.New(db, cfg.FreeAttempts, log)
			events := journal.New(db)

			tg, err := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIServer, events, log)
			if err != nil {
				return err
			}

			dispatcher := bot.New(quota, provider, tg, events, tg, log)

			srv := server.NewHTTPServer(&cfg.HTTP, log,
				server.NewWebhookController(dispatcher, events, guard, cfg.Telegram.WebhookSecret, prefixes, log),
				&server.APIController{
					Stats:         events,
					Provider:      provider,
					Registrar:     tg,
					WebhookURL:    cfg.Telegram.WebhookURL,
					WebhookSecret: cfg.Telegram.WebhookSecret,
					Log:           log.Named("api"),
				},
				&server.HealthController{DB: sqlDB, Log: log.Named("health")},
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				log.Info("shutting down http server")
				return srv.Shutdown(shutdownCtx)
			})

			if cfg.Telegram.WebhookURL != "" {
				if err := tg.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
					log.Error("webhook registration failed, continuing", zap.Error(err))
				}
			}

			log.Info("service started successfully")
			return g.Wait()
		},
	}
}
