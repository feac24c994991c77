// Package store defines the persistence ports the services depend on.
// Implementations live in internal/store/memory and internal/storage.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// TransactionFilter narrows a transaction listing. Zero values match all.
// From is inclusive, To exclusive.
type TransactionFilter struct {
	From      time.Time
	To        time.Time
	Type      core.TransactionType
	AccountID *uuid.UUID
}

// Matches reports whether tx passes the filter.
func (f TransactionFilter) Matches(tx core.Transaction) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !tx.Date.Before(f.To) {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.AccountID != nil && (tx.AccountID == nil || *tx.AccountID != *f.AccountID) {
		return false
	}
	return true
}

type (
	AccountStore interface {
		// CreateAccount fails with core.ErrDuplicateAccountName when the
		// name matches an existing account case-insensitively.
		CreateAccount(ctx context.Context, a core.Account) error
		UpdateAccount(ctx context.Context, a core.Account) error
		GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error)
		FindAccountByName(ctx context.Context, name string) (core.Account, error)
		// ListAccounts returns accounts ordered by name.
		ListAccounts(ctx context.Context) ([]core.Account, error)
		CountAccounts(ctx context.Context) (int, error)
		// DeleteAccount removes the account and clears the reference held by
		// its goals and transactions. Those records are kept.
		DeleteAccount(ctx context.Context, id uuid.UUID) error
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) error
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error)
		// ListTransactions returns matches newest first.
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		DeleteTransaction(ctx context.Context, id uuid.UUID) error
		// DeleteTransactions removes every match in one batch and returns
		// the ids removed.
		DeleteTransactions(ctx context.Context, f TransactionFilter) ([]uuid.UUID, error)
	}

	BudgetStore interface {
		// UpsertBudget writes the budget for its (month, year), keeping the
		// id of an existing row. It returns the stored record.
		UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		GetBudget(ctx context.Context, year, month int) (core.Budget, error)
		// ListBudgets returns budgets newest month first.
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		DeleteBudget(ctx context.Context, year, month int) error
	}

	GoalStore interface {
		CreateGoal(ctx context.Context, g core.SavingsGoal) error
		UpdateGoal(ctx context.Context, g core.SavingsGoal) error
		GetGoal(ctx context.Context, id uuid.UUID) (core.SavingsGoal, error)
		// ListGoals returns goals newest first.
		ListGoals(ctx context.Context) ([]core.SavingsGoal, error)
		DeleteGoal(ctx context.Context, id uuid.UUID) error
	}

	SettingsStore interface {
		// LoadSettings returns ErrNotFound before the first save.
		LoadSettings(ctx context.Context) (core.Settings, error)
		SaveSettings(ctx context.Context, s core.Settings) error
	}

	// Store is the full ledger persistence contract.
	Store interface {
		AccountStore
		TransactionStore
		BudgetStore
		GoalStore
		SettingsStore
		// Reset deletes every record and the saved settings.
		Reset(ctx context.Context) error
		Close() error
	}
)
