package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/spacatty/subzone/internal/bot"
	"github.com/spacatty/subzone/internal/config"
	"github.com/spacatty/subzone/internal/database"
	"github.com/spacatty/subzone/internal/dns"
	"github.com/spacatty/subzone/internal/logging"
	"github.com/spacatty/subzone/internal/reconciler"
	"github.com/spacatty/subzone/internal/service"
	"github.com/spacatty/subzone/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("subzone", "info", "production").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.Init("subzone", cfg.LogLevel, cfg.AppEnv)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := dns.NewCloudflare(cfg.CloudflareAPIToken)
	if err := provider.VerifyToken(ctx); err != nil {
		log.Error("cloudflare token verification failed", "error", err)
		os.Exit(1)
	}

	users := store.NewUserStore(db)
	claims := store.NewClaimStore(db)
	activity := store.NewActivityStore(db)

	svc := service.New(users, claims, activity, provider, cfg.RecordTarget, cfg.RecordTTL, log)
	sessions := bot.NewSessionStore()

	if cfg.ReconcileEnabled {
		rec := reconciler.New(claims, provider, sessions, cfg.RecordTarget,
			cfg.ReconcileInterval, cfg.SessionIdleTimeout, log)
		rec.Start()
		defer rec.Stop()
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Error("failed to connect to telegram", "error", err)
		os.Exit(1)
	}

	b := bot.New(api, svc, sessions, cfg.AdminIDs, log)
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped", "error", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
}
