// Package cli provides the process bootstrap shared by cmd/ovdeclare and
// cmd/declaration-worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ovdeclare/internal/cache"
	"ovdeclare/internal/config"
	"ovdeclare/internal/core"
	"ovdeclare/internal/history"
	"ovdeclare/internal/history/files"
	"ovdeclare/internal/history/google"
	"ovdeclare/internal/log"
	"ovdeclare/internal/storage"
)

// SetupLogger builds the process logger at level and makes it the default.
func SetupLogger(level slog.Level) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = level
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// LoadStations reads the station lists or exits the process.
func LoadStations(logger *log.Logger, path string) core.Stations {
	st, err := config.LoadStations(path)
	if err != nil {
		logger.Error("Failed to load station lists", log.FieldError, err, "path", path)
		os.Exit(1)
	}
	logger.Info("Station lists loaded",
		"path", path,
		"checkpoints", len(st.Checkpoints),
		"trip_end_boundaries", len(st.TripEndBoundaries),
		"trip_start_boundaries", len(st.TripStartBoundaries))
	return st
}

// InitSQLite initializes a SQLite repository with the given path.
// Exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	if version, dirty, err := storage.SchemaVersion(dbPath); err != nil {
		logger.Warn("Could not read schema version", log.FieldError, err)
	} else {
		logger.Info("SQLite ready", "path", dbPath, "schema_version", version, "dirty", dirty)
	}
	return repo
}

// NewRowSource builds the configured history backend. The returned stop
// function ends background cache cleanup and must be called on exit.
func NewRowSource(ctx context.Context, logger *log.Logger, cfg *config.Config) (history.RowSource, func(), error) {
	switch cfg.HistoryBackend {
	case "files":
		logger.Info("Reading travel history from CSV files", log.FieldBackend, cfg.HistoryBackend, "dir", cfg.HistoryDir)
		return files.New(cfg.HistoryDir), func() {}, nil
	case "sheets":
		client, err := google.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, cfg.SheetsCacheTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("google sheets: %w", err)
		}
		logger.Info("Reading travel history from Google Sheets",
			log.FieldBackend, cfg.HistoryBackend,
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"cache_ttl", cfg.SheetsCacheTTL)

		if client.Cache() == nil {
			return client, func() {}, nil
		}
		cleanupCtx, cancel := context.WithCancel(ctx)
		mgr := cache.NewManager(logger)
		mgr.Register(client.Cache())
		mgr.Start(cleanupCtx, cfg.SheetsCacheTTL)
		return client, func() { cancel(); mgr.Wait() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
	}
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM. A second
// signal, or timeout after the first, forces the process to exit.
func ShutdownContext(logger *log.Logger, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 2)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
		case <-ctx.Done():
			return
		}
		cancel()

		select {
		case sig := <-sigChan:
			logger.Warn("Second signal received, exiting", "signal", sig.String())
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		os.Exit(1)
	}()

	return ctx, cancel
}
