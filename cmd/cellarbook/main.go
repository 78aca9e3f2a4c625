package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cellarbook/frontend/purchasing"
	ttbreports "cellarbook/frontend/ttbReports"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/cache"
	"cellarbook/infrastructure/config"
	httpserver "cellarbook/infrastructure/http"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/ttb"
)

const sessionSweepInterval = 15 * time.Minute

func main() {
	configFile := flag.String("config", "", "path to a config file (yaml, toml or json)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger())

	if err := run(cfg); err != nil {
		slog.Error("cellarbook stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	db, err := sqlite.OpenDB(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sqlite.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		return err
	}

	rates, err := ttb.LoadRates(cfg.TTBRatesFile)
	if err != nil {
		return err
	}
	producer := ttb.Producer{Name: cfg.Producer.Name, Registry: cfg.Producer.Registry, EIN: cfg.Producer.EIN}

	server := httpserver.NewServer(cfg.Addr, db, cache.NewSessionCache(), cache.NewUserCache(), cache.NewPermissionCache(), audit.NewService(), httpserver.Options{
		SessionTTL: cfg.SessionTTL,
		TTB:        ttbreports.Settings{Rates: rates, Producer: producer},
		Buyer:      purchasing.Buyer{Name: cfg.Producer.Name, Registry: cfg.Producer.Registry},
	})
	if err := server.Start(); err != nil {
		return err
	}
	slog.Info("cellarbook listening", slog.String("addr", cfg.Addr), slog.String("db", cfg.SQLitePath))

	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return server.Stop()
		case now := <-ticker.C:
			server.SweepSessions(ctx, now.UTC())
		}
	}
}
