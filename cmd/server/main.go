package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/etltoolbox/internal/config"
	"github.com/JonMunkholm/etltoolbox/internal/core"
	"github.com/JonMunkholm/etltoolbox/internal/database"
	"github.com/JonMunkholm/etltoolbox/internal/logging"
	"github.com/JonMunkholm/etltoolbox/internal/sink"
	"github.com/JonMunkholm/etltoolbox/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, nil)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"clean_max_concurrent", cfg.Clean.MaxConcurrent,
		"sink_enabled", cfg.SinkEnabled(),
		"api_key_required", cfg.Security.RequireAPIKey,
	)

	profiles, err := core.LoadProfiles(cfg.Clean.ProfilesPath)
	if err != nil {
		slog.Error("failed to load profiles", "path", cfg.Clean.ProfilesPath, "error", err)
		os.Exit(1)
	}
	if _, err := profiles.Get(cfg.Clean.DefaultProfile); err != nil {
		slog.Error("default profile is not defined", "profile", cfg.Clean.DefaultProfile)
		os.Exit(1)
	}
	slog.Info("profiles loaded", "count", profiles.Count(), "names", profiles.Names())

	svcCfg := core.Config{
		MaxConcurrent: cfg.Clean.MaxConcurrent,
		MaxWait:       cfg.Clean.MaxWaitTime,
		Timeout:       cfg.Clean.Timeout,
		MaxFileSize:   cfg.Clean.MaxFileSize,
	}

	var pool *pgxpool.Pool
	if cfg.SinkEnabled() {
		pool, err = database.Open(context.Background(), cfg.Database)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		writer, err := sink.NewWriter(sink.Options{
			Table:       cfg.Sink.Table,
			CreateTable: cfg.Sink.CreateTable,
			BatchColumn: cfg.Sink.BatchColumn,
		})
		if err != nil {
			slog.Error("invalid sink configuration", "error", err)
			os.Exit(1)
		}
		svcCfg.DB = pool
		svcCfg.Sink = writer
	}

	service := core.NewService(profiles, svcCfg)
	server := web.NewServer(service, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if active := service.Limiter().Active(); active > 0 {
		slog.Info("waiting for cleans to complete", "active", active)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
