package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"budget/internal/config"
	"budget/internal/export"
	"budget/internal/storage"
	"budget/internal/store"
)

func runBackup(logger *slog.Logger, cfg *config.Config) error {
	ctx := context.Background()
	a, err := openApp(ctx, logger, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close(logger)

	info, err := a.backups.Create(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Backup written to %s (%s)\n", info.Path, humanize.Bytes(uint64(max(info.Size, 0))))
	return nil
}

func runRestore(logger *slog.Logger, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("restore needs exactly one backup file")
	}
	if cfg.DataBackend != "sqlite" {
		return fmt.Errorf("restore is only supported by the sqlite backend, not %q", cfg.DataBackend)
	}
	if err := storage.Restore(args[0], cfg.SQLiteDBPath); err != nil {
		return fmt.Errorf("restore %s: %w", args[0], err)
	}
	logger.Info("Database restored", "backup", args[0], "db_path", cfg.SQLiteDBPath)
	return nil
}

func runReset(logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "confirm deleting every record")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("reset deletes every record; rerun with -yes to confirm")
	}

	ctx := context.Background()
	a, err := openApp(ctx, logger, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close(logger)

	if err := a.ledger.ResetAll(ctx); err != nil {
		return err
	}
	fmt.Println("Ledger reset to defaults")
	return nil
}

// monthFlags registers -year and -month defaulting to the current month.
func monthFlags(fs *flag.FlagSet, now time.Time) (year, month *int) {
	year = fs.Int("year", now.Year(), "year")
	month = fs.Int("month", int(now.Month()), "month (1-12)")
	return year, month
}

func validMonth(year, month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("invalid month %d", month)
	}
	if year < 1 || year > 9999 {
		return fmt.Errorf("invalid year %d", year)
	}
	return nil
}

func runExportCSV(logger *slog.Logger, cfg *config.Config, args []string) error {
	now := time.Now().In(cfg.Location())
	fs := flag.NewFlagSet("export-csv", flag.ContinueOnError)
	out := fs.String("o", export.Filename(now), "output file, - for stdout")
	year := fs.Int("year", 0, "only export this year (with -month)")
	month := fs.Int("month", 0, "only export this month")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openApp(ctx, logger, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close(logger)

	var filter store.TransactionFilter
	if *month != 0 {
		if *year == 0 {
			*year = now.Year()
		}
		if err := validMonth(*year, *month); err != nil {
			return err
		}
		filter = a.ledger.MonthFilter(*year, time.Month(*month))
	}

	txs, err := a.ledger.ListTransactions(ctx, filter)
	if err != nil {
		return err
	}
	accounts, err := a.ledger.ListAccounts(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	if err := export.WriteCSV(w, export.RowsFor(txs, accounts)); err != nil {
		return err
	}
	if *out != "-" {
		logger.Info("Transactions exported", "file", *out, "count", len(txs))
	}
	return nil
}

func runZeroBudget(logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("zero-budget", flag.ContinueOnError)
	year, month := monthFlags(fs, time.Now().In(cfg.Location()))
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validMonth(*year, *month); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openApp(ctx, logger, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close(logger)

	b, err := a.ledger.ZeroBudget(ctx, *year, time.Month(*month))
	if err != nil {
		return fmt.Errorf("zero budget %d-%02d: %w", *year, *month, err)
	}
	fmt.Printf("Budget for %d-%s set to zero\n", b.Year, b.Month)
	return nil
}
