// Package main is the entry point for the 3D cellular automaton server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MRamiBalles/CellularAutomata3D/internal/api"
	"github.com/MRamiBalles/CellularAutomata3D/internal/engine"
	"github.com/MRamiBalles/CellularAutomata3D/internal/events"
	"github.com/MRamiBalles/CellularAutomata3D/internal/infra/storage"
	"github.com/MRamiBalles/CellularAutomata3D/internal/network"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/config"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/logger"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/metrics"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/optimization"
)

func main() {
	log.Println("[AUTOMATA-SERVER] Initializing 3D cellular automaton server...")

	appLogger := logger.NewLogger()

	cfg, err := config.Load(os.Args[0], os.Args[1:], os.Getenv)
	if err != nil {
		appLogger.Error("Invalid configuration: " + err.Error())
		os.Exit(2)
	}
	tuning, err := cfg.Tuning()
	if err != nil {
		appLogger.Error("Invalid tuning profile: " + err.Error())
		os.Exit(2)
	}

	appLogger.Infof("Initializing SQLite database '%s'...", cfg.DBPath)
	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: " + err.Error())
		os.Exit(1)
	}
	defer db.Close()
	if cfg.DBPath != storage.MemoryPath {
		db.SetMaxOpenConns(tuning.DBMaxOpenConns)
		db.SetMaxIdleConns(tuning.DBMaxIdleConns)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	presetRepo := storage.NewSQLitePresetRepository(db)
	if err := storage.SeedBuiltInPresets(ctx, presetRepo); err != nil {
		appLogger.Error("Failed to seed built-in presets: " + err.Error())
		os.Exit(1)
	}
	runRepo := storage.NewSQLiteRunRepository(db)

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(tuning.EventLogCapacity, storage.NewRunRecorder(runRepo, appLogger, nil))

	appLogger.Info("Bootstrapping Engine...")
	eng := engine.NewEngine(eventLog, appLogger, tuning)
	ticker := engine.NewTicker(eng, appLogger, cfg.TickInterval)
	srv := api.NewServer(eng, presetRepo, runRepo, ticker, appLogger, nil)

	if err := startInitialRun(ctx, srv, cfg); err != nil {
		appLogger.Error("Failed to start initial run: " + err.Error())
		os.Exit(1)
	}
	go ticker.Start(ctx)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(eng, appLogger, tuning, nil)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	go watchTuning(ctx, ticker, appLogger)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[AUTOMATA-SERVER] HTTP API & WS Server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[AUTOMATA-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[AUTOMATA-SERVER] Shutting down...")
	ticker.Stop()
	if report, err := eng.Stop(); err == nil {
		appLogger.Infof("Final run stopped at generation %d", report.Generation)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warnf("HTTP shutdown: %v", err)
	}
	cancel()
}

func startInitialRun(ctx context.Context, srv *api.Server, cfg *config.Config) error {
	req := api.StartRequest{Preset: cfg.Preset, RunRequest: cfg.RunRequest()}
	_, err := srv.Start(ctx, req)
	return err
}

// watchTuning logs tuning advice derived from live metrics.
func watchTuning(ctx context.Context, ticker *engine.Ticker, log *logger.Logger) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			intervalMS := float64(ticker.Interval()) / float64(time.Millisecond)
			rec := optimization.Analyze(metrics.Get().Snapshot(), intervalMS)
			if len(rec.Notes) > 0 {
				log.Warn("Tuning advice: " + strings.Join(rec.Notes, "; "))
			}
		}
	}
}
