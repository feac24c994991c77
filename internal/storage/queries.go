package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the tables. Times are fixed-width UTC text, see formatTime.

type AccountRow struct {
	ID           string
	Name         string
	NameKey      string
	Type         string
	Balance      decimal.Decimal
	IsDebt       bool
	InterestRate decimal.Decimal
	DueDate      sql.NullString
	Icon         string
	Notes        string
}

type TransactionRow struct {
	ID        string
	Title     string
	Amount    decimal.Decimal
	Category  string
	Date      string
	CreatedAt string
	Type      string
	Notes     string
	AccountID sql.NullString
}

type BudgetRow struct {
	ID            string
	Amount        decimal.Decimal
	Month         string
	Year          int64
	Notes         string
	IncomeSources string
}

type GoalRow struct {
	ID            string
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	CreatedAt     string
	Deadline      sql.NullString
	Notes         string
	AccountID     sql.NullString
}

const accountColumns = `id, name, name_key, type, balance, is_debt, interest_rate, due_date, icon, notes`

func scanAccount(row interface{ Scan(...any) error }) (AccountRow, error) {
	var a AccountRow
	err := row.Scan(&a.ID, &a.Name, &a.NameKey, &a.Type, &a.Balance, &a.IsDebt, &a.InterestRate, &a.DueDate, &a.Icon, &a.Notes)
	return a, err
}

const createAccount = `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, a AccountRow) error {
	_, err := q.db.ExecContext(ctx, createAccount,
		a.ID, a.Name, a.NameKey, a.Type, a.Balance, a.IsDebt, a.InterestRate, a.DueDate, a.Icon, a.Notes)
	return err
}

const updateAccount = `UPDATE accounts
SET name = ?, name_key = ?, type = ?, balance = ?, is_debt = ?, interest_rate = ?, due_date = ?, icon = ?, notes = ?
WHERE id = ?`

func (q *Queries) UpdateAccount(ctx context.Context, a AccountRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateAccount,
		a.Name, a.NameKey, a.Type, a.Balance, a.IsDebt, a.InterestRate, a.DueDate, a.Icon, a.Notes, a.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id string) (AccountRow, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
}

const getAccountByNameKey = `SELECT ` + accountColumns + ` FROM accounts WHERE name_key = ?`

func (q *Queries) GetAccountByNameKey(ctx context.Context, key string) (AccountRow, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccountByNameKey, key))
}

const listAccounts = `SELECT ` + accountColumns + ` FROM accounts ORDER BY name_key`

func (q *Queries) ListAccounts(ctx context.Context) ([]AccountRow, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AccountRow
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const countAccounts = `SELECT COUNT(*) FROM accounts`

func (q *Queries) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAccounts).Scan(&n)
	return n, err
}

const deleteAccount = `DELETE FROM accounts WHERE id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const unlinkTransactions = `UPDATE transactions SET account_id = NULL WHERE account_id = ?`

func (q *Queries) UnlinkTransactions(ctx context.Context, accountID string) error {
	_, err := q.db.ExecContext(ctx, unlinkTransactions, accountID)
	return err
}

const unlinkGoals = `UPDATE savings_goals SET account_id = NULL WHERE account_id = ?`

func (q *Queries) UnlinkGoals(ctx context.Context, accountID string) error {
	_, err := q.db.ExecContext(ctx, unlinkGoals, accountID)
	return err
}

const transactionColumns = `id, title, amount, category, date, created_at, type, notes, account_id`

func scanTransaction(row interface{ Scan(...any) error }) (TransactionRow, error) {
	var t TransactionRow
	err := row.Scan(&t.ID, &t.Title, &t.Amount, &t.Category, &t.Date, &t.CreatedAt, &t.Type, &t.Notes, &t.AccountID)
	return t, err
}

const createTransaction = `INSERT INTO transactions (` + transactionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t TransactionRow) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.Title, t.Amount, t.Category, t.Date, t.CreatedAt, t.Type, t.Notes, t.AccountID)
	return err
}

const updateTransaction = `UPDATE transactions
SET title = ?, amount = ?, category = ?, date = ?, type = ?, notes = ?, account_id = ?
WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, t TransactionRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		t.Title, t.Amount, t.Category, t.Date, t.Type, t.Notes, t.AccountID, t.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

// TransactionFilterParams holds optional conditions; empty strings are ignored.
type TransactionFilterParams struct {
	From      string
	To        string
	Type      string
	AccountID string
}

func (p TransactionFilterParams) where() (string, []any) {
	var conds []string
	var args []any
	if p.From != "" {
		conds = append(conds, "date >= ?")
		args = append(args, p.From)
	}
	if p.To != "" {
		conds = append(conds, "date < ?")
		args = append(args, p.To)
	}
	if p.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, p.Type)
	}
	if p.AccountID != "" {
		conds = append(conds, "account_id = ?")
		args = append(args, p.AccountID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q *Queries) ListTransactions(ctx context.Context, p TransactionFilterParams) ([]TransactionRow, error) {
	where, args := p.where()
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions`+where+` ORDER BY date DESC, created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (q *Queries) DeleteTransactionsReturningID(ctx context.Context, p TransactionFilterParams) ([]string, error) {
	where, args := p.where()
	rows, err := q.db.QueryContext(ctx, `DELETE FROM transactions`+where+` RETURNING id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const budgetColumns = `id, amount, month, year, notes, income_sources`

func scanBudget(row interface{ Scan(...any) error }) (BudgetRow, error) {
	var b BudgetRow
	err := row.Scan(&b.ID, &b.Amount, &b.Month, &b.Year, &b.Notes, &b.IncomeSources)
	return b, err
}

const upsertBudget = `INSERT INTO budgets (` + budgetColumns + `) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (year, month) DO UPDATE SET
    amount = excluded.amount,
    notes = excluded.notes,
    income_sources = excluded.income_sources
RETURNING ` + budgetColumns

func (q *Queries) UpsertBudget(ctx context.Context, b BudgetRow) (BudgetRow, error) {
	return scanBudget(q.db.QueryRowContext(ctx, upsertBudget, b.ID, b.Amount, b.Month, b.Year, b.Notes, b.IncomeSources))
}

const getBudget = `SELECT ` + budgetColumns + ` FROM budgets WHERE year = ? AND month = ?`

func (q *Queries) GetBudget(ctx context.Context, year int64, month string) (BudgetRow, error) {
	return scanBudget(q.db.QueryRowContext(ctx, getBudget, year, month))
}

const listBudgets = `SELECT ` + budgetColumns + ` FROM budgets ORDER BY year DESC, month DESC`

func (q *Queries) ListBudgets(ctx context.Context) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetRow
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const deleteBudget = `DELETE FROM budgets WHERE year = ? AND month = ?`

func (q *Queries) DeleteBudget(ctx context.Context, year int64, month string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudget, year, month)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const goalColumns = `id, name, target_amount, current_amount, created_at, deadline, notes, account_id`

func scanGoal(row interface{ Scan(...any) error }) (GoalRow, error) {
	var g GoalRow
	err := row.Scan(&g.ID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.CreatedAt, &g.Deadline, &g.Notes, &g.AccountID)
	return g, err
}

const createGoal = `INSERT INTO savings_goals (` + goalColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateGoal(ctx context.Context, g GoalRow) error {
	_, err := q.db.ExecContext(ctx, createGoal,
		g.ID, g.Name, g.TargetAmount, g.CurrentAmount, g.CreatedAt, g.Deadline, g.Notes, g.AccountID)
	return err
}

const updateGoal = `UPDATE savings_goals
SET name = ?, target_amount = ?, current_amount = ?, deadline = ?, notes = ?, account_id = ?
WHERE id = ?`

func (q *Queries) UpdateGoal(ctx context.Context, g GoalRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateGoal,
		g.Name, g.TargetAmount, g.CurrentAmount, g.Deadline, g.Notes, g.AccountID, g.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getGoal = `SELECT ` + goalColumns + ` FROM savings_goals WHERE id = ?`

func (q *Queries) GetGoal(ctx context.Context, id string) (GoalRow, error) {
	return scanGoal(q.db.QueryRowContext(ctx, getGoal, id))
}

const listGoals = `SELECT ` + goalColumns + ` FROM savings_goals ORDER BY created_at DESC`

func (q *Queries) ListGoals(ctx context.Context) ([]GoalRow, error) {
	rows, err := q.db.QueryContext(ctx, listGoals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GoalRow
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

const deleteGoal = `DELETE FROM savings_goals WHERE id = ?`

func (q *Queries) DeleteGoal(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGoal, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getSettings = `SELECT data FROM settings WHERE id = 1`

func (q *Queries) GetSettings(ctx context.Context) (string, error) {
	var data string
	err := q.db.QueryRowContext(ctx, getSettings).Scan(&data)
	return data, err
}

const upsertSettings = `INSERT INTO settings (id, data) VALUES (1, ?)
ON CONFLICT (id) DO UPDATE SET data = excluded.data`

func (q *Queries) UpsertSettings(ctx context.Context, data string) error {
	_, err := q.db.ExecContext(ctx, upsertSettings, data)
	return err
}

// ResetAll empties every ledger table.
func (q *Queries) ResetAll(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM transactions`,
		`DELETE FROM savings_goals`,
		`DELETE FROM budgets`,
		`DELETE FROM accounts`,
		`DELETE FROM settings`,
	} {
		if _, err := q.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
