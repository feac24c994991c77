package sheets

import (
	"context"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
)

// Columns is the header row of the mirrored transactions sheet. Column A
// holds the transaction id and identifies the row.
var Columns = []string{"ID", "Date", "Title", "Amount", "Type", "Category", "Account", "Notes"}

// Row is one mirrored transaction.
type Row struct {
	ID       uuid.UUID
	Date     time.Time
	Title    string
	Amount   string
	Type     string
	Category string
	Account  string
	Notes    string
}

// RowFor builds the mirrored row of a transaction. account is the linked
// account name, empty when the transaction is unlinked.
func RowFor(tx core.Transaction, account string) Row {
	return Row{
		ID:       tx.ID,
		Date:     tx.Date,
		Title:    tx.Title,
		Amount:   core.FormatAmount(tx.Amount),
		Type:     string(tx.Type),
		Category: tx.CategoryOrDefault(),
		Account:  account,
		Notes:    tx.Notes,
	}
}

// Values returns the cells of the row in Columns order.
func (r Row) Values() []any {
	return []any{
		r.ID.String(),
		r.Date.Format(time.DateOnly),
		r.Title,
		r.Amount,
		r.Type,
		r.Category,
		r.Account,
		r.Notes,
	}
}

// Ports for outbound adapters.
type (
	// TransactionExporter keeps an external copy of the ledger, one row per
	// transaction.
	TransactionExporter interface {
		// UpsertRow replaces the row with the same id or appends a new one.
		UpsertRow(ctx context.Context, row Row) error
		// DeleteRow removes the row with the given id. A missing row is not an error.
		DeleteRow(ctx context.Context, id uuid.UUID) error
	}
)
