// Package cli provides common CLI initialization utilities shared by
// cmd/budget and cmd/budget-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budget/internal/config"
	"budget/internal/log"
	"budget/internal/storage"
)

// Bootstrap prepares a budget process: it loads an optional .env file,
// reads the configuration, runs Validate and then each check in order, and
// installs the default logger at the configured level.
func Bootstrap(checks ...func(*config.Config) error) (*slog.Logger, *config.Config, error) {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := setupLogger(cfg.LogLevel)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("Ignoring unreadable .env file", "error", envErr)
	}

	checks = append([]func(*config.Config) error{(*config.Config).Validate}, checks...)
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return logger, nil, err
		}
	}

	logger.Debug("Configuration loaded",
		"backend", cfg.DataBackend,
		"currency", cfg.CurrencyCode,
		"timezone", cfg.Location().String())
	return logger, cfg, nil
}

func setupLogger(level string) *slog.Logger {
	logger := log.New(log.Config{Level: log.ParseLevel(level), Output: os.Stdout})
	log.SetDefault(logger)
	return logger.Logger
}

// OpenLedger opens the configured SQLite ledger, migrated to the latest
// schema, returning times in the configured zone.
func OpenLedger(logger *slog.Logger, cfg *config.Config) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, storage.WithLocation(cfg.Location()))
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", cfg.SQLiteDBPath, err)
	}
	logger.Info("Ledger opened",
		"path", cfg.SQLiteDBPath,
		"timezone", repo.Location().String())
	return repo, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when cleanup is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
