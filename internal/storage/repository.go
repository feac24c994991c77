package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"budget/internal/core"
	"budget/internal/store"
)

// timeLayout is fixed width so stored text sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	path    string
	loc     *time.Location
}

// Option configures a SQLiteRepository.
type Option func(*SQLiteRepository)

// WithLocation sets the zone stored times are returned in. Times are kept
// in UTC on disk; without this option they come back in time.Local.
func WithLocation(loc *time.Location) Option {
	return func(r *SQLiteRepository) {
		if loc != nil {
			r.loc = loc
		}
	}
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	r := &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    dbPath,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Location returns the zone stored times are returned in.
func (r *SQLiteRepository) Location() *time.Location {
	return r.loc
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file backing the repository.
func (r *SQLiteRepository) Path() string {
	return r.path
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t.In(loc), nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString, loc *time.Location) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func parseNullID(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse stored id %q: %w", ns.String, err)
	}
	return &id, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// notFound maps sql.ErrNoRows to store.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func affected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func accountToRow(a core.Account) AccountRow {
	return AccountRow{
		ID:           a.ID.String(),
		Name:         a.Name,
		NameKey:      core.NormalizeAccountName(a.Name),
		Type:         string(a.Type),
		Balance:      a.Balance,
		IsDebt:       a.IsDebt,
		InterestRate: a.InterestRate,
		DueDate:      nullTime(a.DueDate),
		Icon:         a.Icon,
		Notes:        a.Notes,
	}
}

func accountFromRow(row AccountRow, loc *time.Location) (core.Account, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse account id: %w", err)
	}
	due, err := parseNullTime(row.DueDate, loc)
	if err != nil {
		return core.Account{}, err
	}
	return core.Account{
		ID:           id,
		Name:         row.Name,
		Type:         core.AccountType(row.Type),
		Balance:      row.Balance,
		IsDebt:       row.IsDebt,
		InterestRate: row.InterestRate,
		DueDate:      due,
		Icon:         row.Icon,
		Notes:        row.Notes,
	}, nil
}

// ensureNameFree returns core.ErrDuplicateAccountName when an account other
// than id already uses name.
func (r *SQLiteRepository) ensureNameFree(ctx context.Context, name string, id uuid.UUID) error {
	row, err := r.queries.GetAccountByNameKey(ctx, core.NormalizeAccountName(name))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("check account name: %w", err)
	case row.ID != id.String():
		return core.ErrDuplicateAccountName
	}
	return nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	if err := r.ensureNameFree(ctx, a.Name, a.ID); err != nil {
		return err
	}
	if err := r.queries.CreateAccount(ctx, accountToRow(a)); err != nil {
		if isUniqueViolation(err) {
			return core.ErrDuplicateAccountName
		}
		return fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account saved to SQLite", "id", a.ID, "name", a.Name, "type", a.Type)
	return nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	if err := r.ensureNameFree(ctx, a.Name, a.ID); err != nil {
		return err
	}
	err := affected(r.queries.UpdateAccount(ctx, accountToRow(a)))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return err
	case isUniqueViolation(err):
		return core.ErrDuplicateAccountName
	}
	return fmt.Errorf("update account: %w", err)
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, id.String())
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", notFound(err))
	}
	return accountFromRow(row, r.loc)
}

func (r *SQLiteRepository) FindAccountByName(ctx context.Context, name string) (core.Account, error) {
	row, err := r.queries.GetAccountByNameKey(ctx, core.NormalizeAccountName(name))
	if err != nil {
		return core.Account{}, fmt.Errorf("find account by name: %w", notFound(err))
	}
	return accountFromRow(row, r.loc)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, 0, len(rows))
	for _, row := range rows {
		a, err := accountFromRow(row, r.loc)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *SQLiteRepository) CountAccounts(ctx context.Context) (int, error) {
	n, err := r.queries.CountAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return int(n), nil
}

// DeleteAccount removes the account and unlinks its goals and transactions
// in a single SQL transaction.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := affected(q.DeleteAccount(ctx, id.String())); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete account: %w", err)
	}
	if err := q.UnlinkTransactions(ctx, id.String()); err != nil {
		return fmt.Errorf("unlink transactions: %w", err)
	}
	if err := q.UnlinkGoals(ctx, id.String()); err != nil {
		return fmt.Errorf("unlink goals: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit account delete: %w", err)
	}

	slog.InfoContext(ctx, "Account deleted from SQLite", "id", id)
	return nil
}

func transactionToRow(t core.Transaction) TransactionRow {
	return TransactionRow{
		ID:        t.ID.String(),
		Title:     t.Title,
		Amount:    t.Amount,
		Category:  t.Category,
		Date:      formatTime(t.Date),
		CreatedAt: formatTime(t.CreatedAt),
		Type:      string(t.Type),
		Notes:     t.Notes,
		AccountID: nullID(t.AccountID),
	}
}

func transactionFromRow(row TransactionRow, loc *time.Location) (core.Transaction, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction id: %w", err)
	}
	date, err := parseTime(row.Date, loc)
	if err != nil {
		return core.Transaction{}, err
	}
	created, err := parseTime(row.CreatedAt, loc)
	if err != nil {
		return core.Transaction{}, err
	}
	accountID, err := parseNullID(row.AccountID)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:        id,
		Title:     row.Title,
		Amount:    row.Amount,
		Category:  row.Category,
		Date:      date,
		CreatedAt: created,
		Type:      core.TransactionType(row.Type),
		Notes:     row.Notes,
		AccountID: accountID,
	}, nil
}

func filterParams(f store.TransactionFilter) TransactionFilterParams {
	var p TransactionFilterParams
	if !f.From.IsZero() {
		p.From = formatTime(f.From)
	}
	if !f.To.IsZero() {
		p.To = formatTime(f.To)
	}
	p.Type = string(f.Type)
	if f.AccountID != nil {
		p.AccountID = f.AccountID.String()
	}
	return p
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if err := r.queries.CreateTransaction(ctx, transactionToRow(t)); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"title", t.Title,
		"amount", t.Amount.StringFixed(2),
		"type", t.Type,
		"date", t.Date.Format("2006-01-02"))
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := affected(r.queries.UpdateTransaction(ctx, transactionToRow(t))); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", notFound(err))
	}
	return transactionFromRow(row, r.loc)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, filterParams(f))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row, r.loc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if err := affected(r.queries.DeleteTransaction(ctx, id.String())); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, f store.TransactionFilter) ([]uuid.UUID, error) {
	raw, err := r.queries.DeleteTransactionsReturningID(ctx, filterParams(f))
	if err != nil {
		return nil, fmt.Errorf("delete transactions: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse deleted transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	slog.InfoContext(ctx, "Transactions batch deleted from SQLite", "count", len(ids))
	return ids, nil
}

func budgetFromRow(row BudgetRow) (core.Budget, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("parse budget id: %w", err)
	}
	sources, err := core.DecodeIncomeSources(row.IncomeSources)
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{
		ID:            id,
		Amount:        row.Amount,
		Month:         row.Month,
		Year:          int(row.Year),
		Notes:         row.Notes,
		IncomeSources: sources,
	}, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	sources, err := core.EncodeIncomeSources(b.IncomeSources)
	if err != nil {
		return core.Budget{}, err
	}
	row, err := r.queries.UpsertBudget(ctx, BudgetRow{
		ID:            b.ID.String(),
		Amount:        b.Amount,
		Month:         b.Month,
		Year:          int64(b.Year),
		Notes:         b.Notes,
		IncomeSources: sources,
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved to SQLite",
		"id", row.ID,
		"year", row.Year,
		"month", row.Month,
		"amount", row.Amount.StringFixed(2),
		"income_sources", len(b.IncomeSources))

	return budgetFromRow(row)
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, year, month int) (core.Budget, error) {
	row, err := r.queries.GetBudget(ctx, int64(year), core.FormatMonth(month))
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", notFound(err))
	}
	return budgetFromRow(row)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		b, err := budgetFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, year, month int) error {
	if err := affected(r.queries.DeleteBudget(ctx, int64(year), core.FormatMonth(month))); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func goalToRow(g core.SavingsGoal) GoalRow {
	return GoalRow{
		ID:            g.ID.String(),
		Name:          g.Name,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		CreatedAt:     formatTime(g.CreatedAt),
		Deadline:      nullTime(g.Deadline),
		Notes:         g.Notes,
		AccountID:     nullID(g.AccountID),
	}
}

func goalFromRow(row GoalRow, loc *time.Location) (core.SavingsGoal, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("parse goal id: %w", err)
	}
	created, err := parseTime(row.CreatedAt, loc)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	deadline, err := parseNullTime(row.Deadline, loc)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	accountID, err := parseNullID(row.AccountID)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return core.SavingsGoal{
		ID:            id,
		Name:          row.Name,
		TargetAmount:  row.TargetAmount,
		CurrentAmount: row.CurrentAmount,
		CreatedAt:     created,
		Deadline:      deadline,
		Notes:         row.Notes,
		AccountID:     accountID,
	}, nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.SavingsGoal) error {
	if err := r.queries.CreateGoal(ctx, goalToRow(g)); err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	slog.InfoContext(ctx, "Savings goal saved to SQLite", "id", g.ID, "name", g.Name, "target", g.TargetAmount.StringFixed(2))
	return nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.SavingsGoal) error {
	if err := affected(r.queries.UpdateGoal(ctx, goalToRow(g))); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id uuid.UUID) (core.SavingsGoal, error) {
	row, err := r.queries.GetGoal(ctx, id.String())
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", notFound(err))
	}
	return goalFromRow(row, r.loc)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	rows, err := r.queries.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.SavingsGoal, 0, len(rows))
	for _, row := range rows {
		g, err := goalFromRow(row, r.loc)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id uuid.UUID) error {
	if err := affected(r.queries.DeleteGoal(ctx, id.String())); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadSettings(ctx context.Context) (core.Settings, error) {
	data, err := r.queries.GetSettings(ctx)
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", notFound(err))
	}
	var s core.Settings
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return core.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if s.LastBudgetUpdate != nil {
		t := s.LastBudgetUpdate.In(r.loc)
		s.LastBudgetUpdate = &t
	}
	return s, nil
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := r.queries.UpsertSettings(ctx, string(data)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Reset deletes all ledger data and settings in one SQL transaction.
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.queries.WithTx(tx).ResetAll(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	slog.WarnContext(ctx, "All ledger data deleted", "path", r.path)
	return nil
}
