package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/sheets"
	"budget/internal/store"
)

// Ledger is the read side of the store the worker mirrors from.
type Ledger interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error)
	GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error)
	ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
}

const (
	accountNameCacheSize = 128
	accountNameTTL       = 5 * time.Minute
)

// ExportWorker mirrors ledger transactions to an external exporter.
type ExportWorker struct {
	ledger   Ledger
	exporter sheets.TransactionExporter
	names    *cache.LRU[uuid.UUID, string]
}

func NewExportWorker(ledger Ledger, exporter sheets.TransactionExporter) *ExportWorker {
	return &ExportWorker{
		ledger:   ledger,
		exporter: exporter,
		names:    cache.NewLRU[uuid.UUID, string](accountNameCacheSize, accountNameTTL),
	}
}

// AccountNames is the cache of account names used when building rows.
// Renamed accounts show their new name once the entry expires.
func (w *ExportWorker) AccountNames() *cache.LRU[uuid.UUID, string] {
	return w.names
}

// HandleSyncMessage upserts the row of the transaction named by msg. A
// transaction deleted before the message arrived has nothing to export.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"timestamp", msg.Timestamp)

	tx, err := w.ledger.GetTransaction(ctx, msg.ID)
	if errors.Is(err, store.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction no longer exists, nothing to export", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	account, err := w.accountName(ctx, tx.AccountID)
	if err != nil {
		return err
	}

	if err := w.exporter.UpsertRow(ctx, sheets.RowFor(tx, account)); err != nil {
		return fmt.Errorf("upsert row: %w", err)
	}

	slog.InfoContext(ctx, "Successfully exported transaction",
		"id", tx.ID,
		"title", tx.Title,
		"amount", core.FormatAmount(tx.Amount))
	return nil
}

// HandleDeleteMessage removes the row of the transaction named by msg.
func (w *ExportWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	slog.InfoContext(ctx, "Processing delete message",
		"id", msg.ID,
		"timestamp", msg.Timestamp)

	if err := w.exporter.DeleteRow(ctx, msg.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to delete exported transaction",
			"id", msg.ID,
			"error", err)
		return fmt.Errorf("delete row: %w", err)
	}

	slog.InfoContext(ctx, "Successfully deleted exported transaction", "id", msg.ID)
	return nil
}

// ResyncAll upserts every transaction. It recovers rows missed while the
// broker or the worker was down. Rows of transactions deleted meanwhile are
// left to their delete messages.
func (w *ExportWorker) ResyncAll(ctx context.Context) (int, error) {
	txs, err := w.ledger.ListTransactions(ctx, store.TransactionFilter{})
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	accounts, err := w.ledger.ListAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}
	names := make(map[uuid.UUID]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
		w.names.Set(a.ID, a.Name)
	}

	synced := 0
	var errs []error
	for i := len(txs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		tx := txs[i]
		var account string
		if tx.AccountID != nil {
			account = names[*tx.AccountID]
		}
		if err := w.exporter.UpsertRow(ctx, sheets.RowFor(tx, account)); err != nil {
			slog.ErrorContext(ctx, "Failed to resync transaction", "id", tx.ID, "error", err)
			errs = append(errs, fmt.Errorf("transaction %s: %w", tx.ID, err))
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Resync completed",
		"total", len(txs),
		"synced", synced,
		"errors", len(errs))
	return synced, errors.Join(errs...)
}

func (w *ExportWorker) accountName(ctx context.Context, id *uuid.UUID) (string, error) {
	if id == nil {
		return "", nil
	}
	if name, ok := w.names.Get(*id); ok {
		return name, nil
	}
	a, err := w.ledger.GetAccount(ctx, *id)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get account: %w", err)
	}
	w.names.Set(a.ID, a.Name)
	return a.Name, nil
}
