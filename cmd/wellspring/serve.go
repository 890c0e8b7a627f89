package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/wellspring/internal/api"
	"github.com/talgya/wellspring/internal/engine"
	"github.com/talgya/wellspring/internal/persistence"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation server and HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Storage ───────────────────────────────────────────────────────
	store, err := persistence.Open(ctx, persistence.Options{
		Driver:      cfg.Storage.Driver,
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	slog.Info("storage ready", "driver", cfg.Storage.Driver)

	// ── Sessions and cadence ──────────────────────────────────────────
	hub := engine.NewHub(store, engine.HubOptions{
		Seed:     cfg.Sim.Seed,
		EventTTL: cfg.Sim.EventTTL,
		IdleTTL:  cfg.Sim.SessionIdleTTL,
	})

	eng := engine.NewEngine()
	eng.Interval = cfg.Sim.TickInterval
	eng.AutosaveEvery = cfg.Sim.AutosaveEvery
	eng.OnTick = func(uint64) { hub.TickAll() }
	eng.OnAutosave = func(tick uint64) {
		saved := hub.SaveAll(ctx)
		evicted := hub.EvictIdle(ctx)
		slog.Debug("autosave", "tick", tick, "sessions", saved, "evicted", evicted)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Server.AdminKey == "" {
		slog.Warn("WELLSPRING_ADMIN_KEY not set, admin endpoints will be disabled")
	}
	apiServer := &api.Server{
		Hub:         hub,
		Eng:         eng,
		Store:       store,
		Port:        cfg.Server.Port,
		AdminKey:    cfg.Server.AdminKey,
		CORSOrigins: cfg.Server.CORSOrigins,
		RatePerSec:  cfg.RateLimit.PerSecond,
		RateBurst:   cfg.RateLimit.Burst,
	}
	apiServer.Start()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Server.Port)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	// Final save on shutdown, on a fresh context since ctx is already cancelled.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	slog.Info("final save...")
	saved := hub.SaveAll(shutdownCtx)
	slog.Info("sessions saved", "count", saved)

	fmt.Fprintln(os.Stdout, "Simulation stopped. Sessions saved.")
	return nil
}
