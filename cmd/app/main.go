package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"valuta_go/internal/app"
	"valuta_go/internal/infra/stream"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Background Asset Sync
	go bootstrap.SyncAssets(ctx)

	cfg := bootstrap.Config

	// 5. Refresh Scheduler
	bootstrap.Scheduler.Start(ctx, cfg.Rates.UpdateOnStart)
	defer bootstrap.Scheduler.Stop()
	slog.InfoContext(ctx, "✅ Refresh scheduler started",
		slog.Int("interval_minutes", cfg.Rates.UpdateIntervalMinutes))

	// 6. Live Rate Feed (optional)
	if cfg.API.Stream.Enabled && cfg.API.Stream.WSURL != "" {
		feedWorker := stream.NewWorker(cfg.API.Stream.WSURL, cfg.API.Stream.Pairs, bootstrap.Cache, bootstrap.Logger)
		if err := feedWorker.Connect(ctx); err != nil {
			slog.Error("Failed to connect rate feed", slog.Any("error", err))
		}
		defer feedWorker.Disconnect()
		slog.InfoContext(ctx, "✅ Rate feed started", slog.Int("pairs", len(cfg.API.Stream.Pairs)))
	}

	slog.InfoContext(ctx, "✨ Valuta Go fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}
