package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/peladahub/peladahub/internal/cashbox"
	"github.com/peladahub/peladahub/internal/config"
	"github.com/peladahub/peladahub/internal/database"
	server "github.com/peladahub/peladahub/internal/http"
	"github.com/peladahub/peladahub/internal/importer"
	"github.com/peladahub/peladahub/internal/league"
	"github.com/peladahub/peladahub/internal/metrics"
	"github.com/peladahub/peladahub/internal/recompute"
	"github.com/peladahub/peladahub/internal/standings"
)

func main() {
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()

	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	store := league.New(db)
	if err := store.SeedDefaultSettings(); err != nil {
		log.Fatalf("Failed to seed default settings: %s", err)
	}

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	engine := recompute.New(store)
	imp := importer.New(store, engine, metricsSvc)
	aggregator := standings.New(db)
	snapshots := standings.NewSnapshotStore(db)
	cashboxStore := cashbox.New(db, store)

	s := server.NewServer(
		store,
		engine,
		imp,
		aggregator,
		snapshots,
		cashboxStore,
		metricsSvc,
		metricsHandler,
		cfg,
	)

	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}
