// Command budget serves the personal finance API and runs maintenance tasks
// against the configured ledger.
//
// Usage:
//
//	budget [serve]
//	budget backup
//	budget restore <file>
//	budget reset -yes
//	budget export-csv [-year Y -month M] [-o file]
//	budget zero-budget [-year Y -month M]
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	apphttp "budget/internal/http"
	"budget/internal/log"
	"budget/internal/services"
)

func main() {
	logger, cfg, err := cli.Bootstrap()
	if err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	name, args := "serve", os.Args[1:]
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}

	switch name {
	case "serve":
		err = runServe(logger, cfg)
	case "backup":
		err = runBackup(logger, cfg)
	case "restore":
		err = runRestore(logger, cfg, args)
	case "reset":
		err = runReset(logger, cfg, args)
	case "export-csv":
		err = runExportCSV(logger, cfg, args)
	case "zero-budget":
		err = runZeroBudget(logger, cfg, args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", "command", name, "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: budget <command> [flags]

commands:
  serve         run the HTTP API (default)
  backup        write a database backup to BACKUP_DIR
  restore FILE  replace the database with a backup
  reset         delete every record and recreate default accounts (needs -yes)
  export-csv    write transactions as CSV
  zero-budget   set a month's budget to zero`)
}

// app is the ledger opened for one command.
type app struct {
	backend   *backend.BackendResult
	ledger    *services.LedgerService
	dashboard *services.DashboardService
	backups   *services.BackupService
}

// openApp opens the configured backend. Change events are only published
// by the long-running server.
func openApp(ctx context.Context, logger *slog.Logger, cfg *config.Config, withEvents bool) (*app, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	if !withEvents {
		backendCfg.AMQPURL = ""
	}
	result, err := backend.NewFactory(logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	loc := cfg.Location()
	return &app{
		backend:   result,
		ledger:    services.NewLedgerService(result.Store, result.Publisher, cfg.CurrencyCode, loc),
		dashboard: services.NewDashboardService(result.Store, cfg.CurrencyCode, loc),
		backups:   services.NewBackupService(result.Backuper, cfg.BackupDir),
	}, nil
}

func (a *app) Close(logger *slog.Logger) {
	if a.backend.Cleanup == nil {
		return
	}
	if err := a.backend.Cleanup(); err != nil {
		logger.Error("Failed to close backend", "error", err)
	}
}

func runServe(logger *slog.Logger, cfg *config.Config) error {
	a, err := openApp(context.Background(), logger, cfg, true)
	if err != nil {
		return err
	}

	created, err := a.ledger.EnsureDefaultAccounts(context.Background())
	if err != nil {
		a.Close(logger)
		return fmt.Errorf("initialize accounts: %w", err)
	}
	if created > 0 {
		logger.Info("Created default accounts", "count", created)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:     a.ledger,
		Dashboard:  a.dashboard,
		Backups:    a.backups,
		Ready:      a.backend.Ping,
		WriteLimit: cfg.WriteRateLimit,
		Logger:     log.New(log.Config{Handler: logger.Handler(), Component: log.ComponentHTTP}),
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		metrics := srv.Metrics()
		logger.Info("Server stopped",
			"requests", metrics.TotalRequests,
			"avg_response_us", metrics.AverageResponseTime,
			"rate_limited", srv.RateLimitMetrics().Rejected)
		a.Close(logger)
	})

	logger.Info("Starting budget server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"currency", cfg.CurrencyCode,
		"events", a.backend.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.Close(logger)
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}

	cli.WaitForShutdown(ctx, done)
	return nil
}
