// Command budget-worker mirrors ledger transactions into a spreadsheet. It
// consumes change events from the broker and periodically resyncs the whole
// ledger to repair rows whose events were lost.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/log"
	"budget/internal/sheets"
	gsheet "budget/internal/sheets/google"
	memsheet "budget/internal/sheets/memory"
	"budget/internal/storage"
	"budget/internal/worker"
)

func main() {
	logger, cfg, err := cli.Bootstrap((*config.Config).ValidateWorker)
	if err != nil {
		logger.Error("Worker configuration validation failed", "error", err)
		os.Exit(1)
	}
	if err := run(logger, cfg); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg *config.Config) error {
	logger = logger.With(log.FieldComponent, log.ComponentWorker)
	logger.Info("Starting budget-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := cli.OpenLedger(logger, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	exporter, err := newExporter(ctx, logger.With(log.FieldComponent, log.ComponentSheets), cfg)
	if err != nil {
		return err
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(repo, exporter)
	resync := worker.NewResyncProcessor(exportWorker, worker.ResyncProcessorConfig{
		Interval: cfg.ResyncInterval,
		OnStart:  true,
	})

	janitor := cache.NewJanitor(time.Minute, exportWorker.AccountNames())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return janitor.Run(gctx)
	})
	g.Go(func() error {
		err := amqpClient.ConsumeMessages(gctx, exportWorker.HandleSyncMessage, exportWorker.HandleDeleteMessage)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		if err := resync.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return resync.Stop(stopCtx)
	})

	err = g.Wait()
	logger.Info("Worker stopped", "resyncs", resync.Runs())
	return err
}

// newExporter returns the Google Sheets mirror, or an in-memory exporter
// that only logs when no spreadsheet is configured.
func newExporter(ctx context.Context, logger *slog.Logger, cfg *config.Config) (sheets.TransactionExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring into memory only")
		return memsheet.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return client, nil
}

var _ worker.Ledger = (*storage.SQLiteRepository)(nil)
