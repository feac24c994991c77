package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/finance"
	"budget/internal/store"
)

// EventPublisher announces transaction changes to downstream consumers.
type EventPublisher interface {
	PublishTransactionSync(ctx context.Context, id uuid.UUID) error
	PublishTransactionDelete(ctx context.Context, id uuid.UUID) error
}

var (
	ErrNoDueDate       = fmt.Errorf("%w: account has no due date", core.ErrValidation)
	ErrUnknownAccount  = fmt.Errorf("%w: linked account does not exist", core.ErrValidation)
	ErrNotDebtAccount  = fmt.Errorf("%w: account is not a debt account", core.ErrValidation)
	ErrUnknownCurrency = fmt.Errorf("%w: currency code is required", core.ErrValidation)
)

type defaultAccount struct {
	name  string
	typ   core.AccountType
	icon  string
	notes string
}

// Seeded on first run when the ledger has no accounts.
var firstRunAccounts = []defaultAccount{
	{name: "My Savings", typ: core.Savings, icon: "banknote.fill"},
	{name: "My Investments", typ: core.Investment, icon: "chart.line.uptrend.xyaxis"},
}

// Recreated by a full reset.
var resetAccounts = []defaultAccount{
	{name: "My Checking", typ: core.Checking, icon: "creditcard.fill", notes: "Primary checking account"},
	{name: "My Savings", typ: core.Savings, icon: "banknote.fill", notes: "Savings account"},
	{name: "My Investments", typ: core.Investment, icon: "chart.line.uptrend.xyaxis", notes: "Investment portfolio"},
}

// LedgerService validates and persists ledger records and announces
// transaction changes.
type LedgerService struct {
	store     store.Store
	publisher EventPublisher
	currency  string
	now       func() time.Time
}

// NewLedgerService wires the service. publisher may be nil, in which case no
// events are sent.
func NewLedgerService(st store.Store, publisher EventPublisher, currency string, loc *time.Location) *LedgerService {
	if loc == nil {
		loc = time.Local
	}
	return &LedgerService{
		store:     st,
		publisher: publisher,
		currency:  currency,
		now:       func() time.Time { return time.Now().In(loc) },
	}
}

// Now is the service clock in the configured time zone.
func (s *LedgerService) Now() time.Time {
	return s.now()
}

// Accounts

func (s *LedgerService) ensureUniqueName(ctx context.Context, name string, id uuid.UUID) error {
	existing, err := s.store.FindAccountByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check account name: %w", err)
	}
	if existing.ID != id {
		return core.ErrDuplicateAccountName
	}
	return nil
}

func prepareAccount(a core.Account) core.Account {
	a.Name = strings.TrimSpace(a.Name)
	a.Notes = strings.TrimSpace(a.Notes)
	a.IsDebt = a.Type.IsDebt()
	return a
}

func (s *LedgerService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a = prepareAccount(a)
	a.ID = uuid.New()
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.ensureUniqueName(ctx, a.Name, a.ID); err != nil {
		return core.Account{}, err
	}
	if err := s.store.CreateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func (s *LedgerService) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a = prepareAccount(a)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.ensureUniqueName(ctx, a.Name, a.ID); err != nil {
		return core.Account{}, err
	}
	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	return a, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// DeleteAccount removes an account. Linked goals and transactions stay and
// lose their link.
func (s *LedgerService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// AdvanceDueDate moves a debt account's due date one month forward.
func (s *LedgerService) AdvanceDueDate(ctx context.Context, id uuid.UUID) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	if !a.IsDebt {
		return core.Account{}, ErrNotDebtAccount
	}
	if a.DueDate != nil {
		local := a.DueDate.In(s.now().Location())
		a.DueDate = &local
	}
	next := a.NextDueDate()
	if next == nil {
		return core.Account{}, ErrNoDueDate
	}
	a.DueDate = next
	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	slog.InfoContext(ctx, "Due date advanced", "account_id", a.ID, "due_date", next.Format("2006-01-02"))
	return a, nil
}

// EnsureDefaultAccounts seeds the first-run accounts when the ledger has
// none, and returns how many were created.
func (s *LedgerService) EnsureDefaultAccounts(ctx context.Context) (int, error) {
	n, err := s.store.CountAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	if n > 0 {
		slog.DebugContext(ctx, "Accounts already exist, skipping initial account creation", "count", n)
		return 0, nil
	}

	created, err := s.createDefaults(ctx, firstRunAccounts)
	if err != nil {
		return created, err
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return created, err
	}
	settings.HasInitializedAccounts = true
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return created, fmt.Errorf("save settings: %w", err)
	}
	slog.InfoContext(ctx, "Initial accounts created", "count", created)
	return created, nil
}

func (s *LedgerService) createDefaults(ctx context.Context, defaults []defaultAccount) (int, error) {
	created := 0
	for _, d := range defaults {
		_, err := s.store.FindAccountByName(ctx, d.name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return created, fmt.Errorf("check account %q: %w", d.name, err)
		}
		a := core.Account{
			ID:           uuid.New(),
			Name:         d.name,
			Type:         d.typ,
			Balance:      decimal.Zero,
			InterestRate: decimal.Zero,
			Icon:         d.icon,
			Notes:        d.notes,
		}
		if err := s.store.CreateAccount(ctx, a); err != nil {
			return created, fmt.Errorf("create account %q: %w", d.name, err)
		}
		created++
	}
	return created, nil
}

// ResetAll deletes every record, restores default settings and recreates
// the default accounts with zero balances.
func (s *LedgerService) ResetAll(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	if _, err := s.createDefaults(ctx, resetAccounts); err != nil {
		return err
	}
	settings := core.DefaultSettings(s.currency)
	settings.HasInitializedAccounts = true
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	slog.WarnContext(ctx, "Ledger reset to defaults")
	return nil
}

// Transactions

func (s *LedgerService) checkAccountLink(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.store.GetAccount(ctx, *id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownAccount
		}
		return fmt.Errorf("get account: %w", err)
	}
	return nil
}

func prepareTransaction(tx core.Transaction) core.Transaction {
	tx.Title = strings.TrimSpace(tx.Title)
	tx.Notes = strings.TrimSpace(tx.Notes)
	tx.Category = tx.CategoryOrDefault()
	return tx
}

func (s *LedgerService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx = prepareTransaction(tx)
	tx.ID = uuid.New()
	tx.CreatedAt = s.now()
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkAccountLink(ctx, tx.AccountID); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.publishSync(ctx, tx.ID)
	return tx, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	existing, err := s.store.GetTransaction(ctx, tx.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	tx = prepareTransaction(tx)
	tx.CreatedAt = existing.CreatedAt
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkAccountLink(ctx, tx.AccountID); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.publishSync(ctx, tx.ID)
	return tx, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions returns matching transactions, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// MonthFilter selects the transactions dated inside one calendar month in
// the service's time zone.
func (s *LedgerService) MonthFilter(year int, month time.Month) store.TransactionFilter {
	from, to := finance.MonthBounds(year, month, s.now().Location())
	return store.TransactionFilter{From: from, To: to}
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publishDelete(ctx, id)
	return nil
}

// DeleteTransactions removes every transaction matching f and returns how
// many were deleted.
func (s *LedgerService) DeleteTransactions(ctx context.Context, f store.TransactionFilter) (int, error) {
	ids, err := s.store.DeleteTransactions(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	for _, id := range ids {
		s.publishDelete(ctx, id)
	}
	return len(ids), nil
}

func (s *LedgerService) publishSync(ctx context.Context, id uuid.UUID) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
}

func (s *LedgerService) publishDelete(ctx context.Context, id uuid.UUID) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
}

// Budgets

func prepareBudget(b core.Budget) core.Budget {
	b.Notes = strings.TrimSpace(b.Notes)
	sources := make([]core.IncomeSource, 0, len(b.IncomeSources))
	for _, src := range b.IncomeSources {
		src.Name = strings.TrimSpace(src.Name)
		if src.ID == uuid.Nil {
			src.ID = uuid.New()
		}
		sources = append(sources, src)
	}
	b.IncomeSources = sources
	return b
}

// SaveBudget creates or replaces the budget of b's month. At most one budget
// exists per (year, month); an existing budget keeps its id.
func (s *LedgerService) SaveBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b = prepareBudget(b)
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	stored, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.touchBudgetUpdate(ctx)
	return stored, nil
}

func (s *LedgerService) touchBudgetUpdate(ctx context.Context) {
	settings, err := s.Settings(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load settings", "error", err)
		return
	}
	now := s.now()
	settings.LastBudgetUpdate = &now
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		slog.WarnContext(ctx, "Failed to record budget update", "error", err)
	}
}

// GetBudget returns the budget for the month, or nil when none exists.
func (s *LedgerService) GetBudget(ctx context.Context, year int, month time.Month) (*core.Budget, error) {
	b, err := s.store.GetBudget(ctx, year, int(month))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &b, nil
}

func (s *LedgerService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	budgets, err := s.store.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, year int, month time.Month) error {
	if err := s.store.DeleteBudget(ctx, year, int(month)); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func (s *LedgerService) budgetOrEmpty(ctx context.Context, year int, month time.Month) (core.Budget, error) {
	existing, err := s.GetBudget(ctx, year, month)
	if err != nil {
		return core.Budget{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	return core.Budget{
		ID:            uuid.New(),
		Amount:        decimal.Zero,
		Month:         core.FormatMonth(int(month)),
		Year:          year,
		IncomeSources: []core.IncomeSource{},
	}, nil
}

// AddIncomeSource appends src to the month's budget, creating a zero budget
// when the month has none.
func (s *LedgerService) AddIncomeSource(ctx context.Context, year int, month time.Month, src core.IncomeSource) (core.Budget, error) {
	src.Name = strings.TrimSpace(src.Name)
	src.ID = uuid.New()
	if err := src.Validate(); err != nil {
		return core.Budget{}, err
	}
	b, err := s.budgetOrEmpty(ctx, year, month)
	if err != nil {
		return core.Budget{}, err
	}
	b.IncomeSources = append(b.IncomeSources, src)
	return s.SaveBudget(ctx, b)
}

// RemoveIncomeSource drops one income source from the month's budget.
func (s *LedgerService) RemoveIncomeSource(ctx context.Context, year int, month time.Month, id uuid.UUID) (core.Budget, error) {
	existing, err := s.GetBudget(ctx, year, month)
	if err != nil {
		return core.Budget{}, err
	}
	if existing == nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", store.ErrNotFound)
	}
	b := *existing
	kept := make([]core.IncomeSource, 0, len(b.IncomeSources))
	for _, src := range b.IncomeSources {
		if src.ID != id {
			kept = append(kept, src)
		}
	}
	if len(kept) == len(b.IncomeSources) {
		return core.Budget{}, fmt.Errorf("income source %s: %w", id, store.ErrNotFound)
	}
	b.IncomeSources = kept
	return s.SaveBudget(ctx, b)
}

// ZeroBudget sets the month's budget ceiling to zero and notes when it
// happened. Income sources are kept.
func (s *LedgerService) ZeroBudget(ctx context.Context, year int, month time.Month) (core.Budget, error) {
	existing, err := s.GetBudget(ctx, year, month)
	if err != nil {
		return core.Budget{}, err
	}
	if existing == nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", store.ErrNotFound)
	}
	b := *existing
	old := b.Amount
	b.Amount = decimal.Zero
	note := "Budget reset to 0 on " + s.now().Format("Jan 2, 2006 at 15:04")
	if b.Notes == "" {
		b.Notes = note
	} else {
		b.Notes += "\n\n" + note
	}
	stored, err := s.SaveBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	slog.InfoContext(ctx, "Budget set to zero", "year", year, "month", int(month), "previous", old.StringFixed(2))
	return stored, nil
}

// Goals

func prepareGoal(g core.SavingsGoal) core.SavingsGoal {
	g.Name = strings.TrimSpace(g.Name)
	g.Notes = strings.TrimSpace(g.Notes)
	return g
}

func (s *LedgerService) CreateGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	g = prepareGoal(g)
	g.ID = uuid.New()
	g.CreatedAt = s.now()
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	if err := s.checkAccountLink(ctx, g.AccountID); err != nil {
		return core.SavingsGoal{}, err
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (s *LedgerService) UpdateGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	existing, err := s.store.GetGoal(ctx, g.ID)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", err)
	}
	g = prepareGoal(g)
	g.CreatedAt = existing.CreatedAt
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	if err := s.checkAccountLink(ctx, g.AccountID); err != nil {
		return core.SavingsGoal{}, err
	}
	if err := s.store.UpdateGoal(ctx, g); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

// UpdateGoalAmount sets the saved amount. Negative amounts and amounts above
// the target are rejected.
func (s *LedgerService) UpdateGoalAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (core.SavingsGoal, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", err)
	}
	if err := g.ValidateAmountUpdate(amount); err != nil {
		return core.SavingsGoal{}, err
	}
	g.CurrentAmount = amount.Round(2)
	if err := s.store.UpdateGoal(ctx, g); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

func (s *LedgerService) GetGoal(ctx context.Context, id uuid.UUID) (core.SavingsGoal, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (s *LedgerService) ListGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (s *LedgerService) DeleteGoal(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteGoal(ctx, id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

// Settings

// Settings returns the stored settings, or the defaults before the first save.
func (s *LedgerService) Settings(ctx context.Context) (core.Settings, error) {
	settings, err := s.store.LoadSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return core.DefaultSettings(s.currency), nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

func (s *LedgerService) SaveSettings(ctx context.Context, settings core.Settings) (core.Settings, error) {
	settings.CurrencyCode = strings.ToUpper(strings.TrimSpace(settings.CurrencyCode))
	if settings.CurrencyCode == "" {
		return core.Settings{}, ErrUnknownCurrency
	}
	if err := settings.Validate(); err != nil {
		return core.Settings{}, err
	}
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return settings, nil
}
