package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/storage"
	"budget/internal/store"
	"budget/internal/store/memory"
)

type fakePublisher struct {
	mu      sync.Mutex
	synced  []uuid.UUID
	deleted []uuid.UUID
	err     error
}

func (p *fakePublisher) PublishTransactionSync(_ context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.synced = append(p.synced, id)
	return p.err
}

func (p *fakePublisher) PublishTransactionDelete(_ context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
	return p.err
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newLedger(t *testing.T) (*LedgerService, *memory.Store, *fakePublisher) {
	t.Helper()
	st := memory.New()
	pub := &fakePublisher{}
	svc := NewLedgerService(st, pub, "USD", time.UTC)
	svc.now = func() time.Time { return testNow }
	return svc, st, pub
}

func TestLedgerService_CreateAccount(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)

	if _, err := svc.CreateAccount(ctx, core.Account{Name: "  Visa  ", Type: core.CreditCard, Balance: dec("100"), InterestRate: dec("20")}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	tests := []struct {
		name    string
		account core.Account
		wantErr error
	}{
		{"duplicate name ignores case and spaces", core.Account{Name: "visa ", Type: core.Checking}, core.ErrDuplicateAccountName},
		{"empty name", core.Account{Name: "   ", Type: core.Checking}, core.ErrEmptyName},
		{"unknown type", core.Account{Name: "X", Type: "wallet"}, core.ErrInvalidAccountType},
		{"interest on asset", core.Account{Name: "Y", Type: core.Savings, InterestRate: dec("2")}, core.ErrDebtFieldsOnAsset},
		{"rate above 100", core.Account{Name: "Z", Type: core.Loan, InterestRate: dec("101")}, core.ErrInvalidInterestRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAccount(ctx, tt.account)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateAccount() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("error %v should match ErrValidation", err)
			}
		})
	}

	accounts, _ := svc.ListAccounts(ctx)
	if len(accounts) != 1 || accounts[0].Name != "Visa" || !accounts[0].IsDebt {
		t.Errorf("accounts = %+v", accounts)
	}
}

func TestLedgerService_UpdateAccountKeepsOwnName(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)
	a, err := svc.CreateAccount(ctx, core.Account{Name: "Checking", Type: core.Checking})
	if err != nil {
		t.Fatal(err)
	}
	a.Name = "CHECKING"
	a.Balance = dec("50")
	got, err := svc.UpdateAccount(ctx, a)
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if got.Name != "CHECKING" || !got.Balance.Equal(dec("50")) {
		t.Errorf("updated = %+v", got)
	}
}

func TestLedgerService_AdvanceDueDate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)
	due := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	card, err := svc.CreateAccount(ctx, core.Account{Name: "Card", Type: core.CreditCard, DueDate: &due})
	if err != nil {
		t.Fatal(err)
	}
	noDue, _ := svc.CreateAccount(ctx, core.Account{Name: "Loan", Type: core.Loan})
	savings, _ := svc.CreateAccount(ctx, core.Account{Name: "Savings", Type: core.Savings})

	got, err := svc.AdvanceDueDate(ctx, card.ID)
	if err != nil {
		t.Fatalf("AdvanceDueDate: %v", err)
	}
	want := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	if got.DueDate == nil || !got.DueDate.Equal(want) {
		t.Errorf("due date = %v, want %v", got.DueDate, want)
	}

	if _, err := svc.AdvanceDueDate(ctx, noDue.ID); !errors.Is(err, ErrNoDueDate) {
		t.Errorf("no due date: got %v", err)
	}
	if _, err := svc.AdvanceDueDate(ctx, savings.ID); !errors.Is(err, ErrNotDebtAccount) {
		t.Errorf("asset account: got %v", err)
	}
	if _, err := svc.AdvanceDueDate(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing account: got %v", err)
	}
}

func TestLedgerService_AdvanceDueDateInLedgerZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	tests := []struct {
		name     string
		storeLoc *time.Location
	}{
		{"store returns UTC", time.UTC},
		{"store returns ledger zone", tokyo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"), storage.WithLocation(tt.storeLoc))
			if err != nil {
				t.Fatal(err)
			}
			defer repo.Close()

			svc := NewLedgerService(repo, nil, "USD", tokyo)
			svc.now = func() time.Time { return time.Date(2025, 1, 20, 9, 0, 0, 0, tokyo) }

			due := time.Date(2025, 1, 31, 0, 0, 0, 0, tokyo)
			card, err := svc.CreateAccount(ctx, core.Account{Name: "Card", Type: core.CreditCard, DueDate: &due})
			if err != nil {
				t.Fatalf("CreateAccount: %v", err)
			}

			got, err := svc.AdvanceDueDate(ctx, card.ID)
			if err != nil {
				t.Fatalf("AdvanceDueDate: %v", err)
			}
			want := time.Date(2025, 2, 28, 0, 0, 0, 0, tokyo)
			if got.DueDate == nil || !got.DueDate.Equal(want) {
				t.Errorf("due date = %v, want %v", got.DueDate, want)
			}

			stored, err := svc.GetAccount(ctx, card.ID)
			if err != nil {
				t.Fatalf("GetAccount: %v", err)
			}
			if stored.DueDate == nil || stored.DueDate.In(tokyo).Format(time.DateOnly) != "2025-02-28" {
				t.Errorf("stored due date = %v, want 2025-02-28 in Tokyo", stored.DueDate)
			}
		})
	}
}

func TestLedgerService_TransactionsPublishEvents(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newLedger(t)

	tx, err := svc.CreateTransaction(ctx, core.Transaction{
		Title:  " Groceries ",
		Amount: dec("45.50"),
		Type:   core.Expense,
		Date:   testNow,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.Title != "Groceries" || tx.Category != core.UncategorizedCategory || !tx.CreatedAt.Equal(testNow) {
		t.Errorf("created = %+v", tx)
	}

	tx.Amount = dec("50")
	tx.CreatedAt = time.Time{}
	updated, err := svc.UpdateTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if !updated.CreatedAt.Equal(testNow) {
		t.Errorf("UpdateTransaction should keep CreatedAt, got %v", updated.CreatedAt)
	}

	if err := svc.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatal(err)
	}
	if len(pub.synced) != 2 || len(pub.deleted) != 1 || pub.deleted[0] != tx.ID {
		t.Errorf("events synced=%v deleted=%v", pub.synced, pub.deleted)
	}
}

func TestLedgerService_TransactionValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newLedger(t)
	missing := uuid.New()

	tests := []struct {
		name    string
		tx      core.Transaction
		wantErr error
	}{
		{"zero amount", core.Transaction{Title: "a", Amount: decimal.Zero, Type: core.Expense, Date: testNow}, core.ErrInvalidAmount},
		{"empty title", core.Transaction{Title: " ", Amount: dec("1"), Type: core.Expense, Date: testNow}, core.ErrEmptyTitle},
		{"bad type", core.Transaction{Title: "a", Amount: dec("1"), Type: "transfer", Date: testNow}, core.ErrInvalidTransactionType},
		{"unknown account", core.Transaction{Title: "a", Amount: dec("1"), Type: core.Income, Date: testNow, AccountID: &missing}, ErrUnknownAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateTransaction(ctx, tt.tx); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if len(pub.synced) != 0 {
		t.Errorf("rejected transactions must not publish, got %d events", len(pub.synced))
	}
}

func TestLedgerService_PublisherFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc, st, pub := newLedger(t)
	pub.err = errors.New("broker down")

	tx, err := svc.CreateTransaction(ctx, core.Transaction{Title: "Rent", Amount: dec("900"), Type: core.Expense, Date: testNow})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err := st.GetTransaction(ctx, tx.ID); err != nil {
		t.Errorf("transaction should be stored: %v", err)
	}
}

func TestLedgerService_DeleteMonthTransactions(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newLedger(t)
	for _, d := range []time.Time{
		time.Date(2025, 5, 31, 23, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 23, 59, 0, 0, time.UTC),
	} {
		if _, err := svc.CreateTransaction(ctx, core.Transaction{Title: "t", Amount: dec("1"), Type: core.Expense, Date: d}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := svc.DeleteTransactions(ctx, svc.MonthFilter(2025, time.June))
	if err != nil || n != 2 {
		t.Fatalf("DeleteTransactions = %d, %v", n, err)
	}
	if len(pub.deleted) != 2 {
		t.Errorf("delete events = %d, want 2", len(pub.deleted))
	}
	rest, _ := svc.ListTransactions(ctx, store.TransactionFilter{})
	if len(rest) != 1 || rest[0].Date.Month() != time.May {
		t.Errorf("remaining = %+v", rest)
	}
}

func TestLedgerService_Budgets(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)

	b, err := svc.GetBudget(ctx, 2025, time.June)
	if err != nil || b != nil {
		t.Fatalf("GetBudget before save = %v, %v", b, err)
	}

	saved, err := svc.SaveBudget(ctx, core.Budget{Amount: dec("2000"), Month: "06", Year: 2025})
	if err != nil {
		t.Fatalf("SaveBudget: %v", err)
	}
	again, err := svc.SaveBudget(ctx, core.Budget{Amount: dec("2100"), Month: "06", Year: 2025})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != saved.ID {
		t.Errorf("second save should update the same budget: %s != %s", again.ID, saved.ID)
	}

	withIncome, err := svc.AddIncomeSource(ctx, 2025, time.June, core.IncomeSource{Name: "Salary", Amount: dec("3000"), Frequency: core.Monthly})
	if err != nil {
		t.Fatalf("AddIncomeSource: %v", err)
	}
	if len(withIncome.IncomeSources) != 1 || !withIncome.Amount.Equal(dec("2100")) {
		t.Fatalf("budget = %+v", withIncome)
	}
	srcID := withIncome.IncomeSources[0].ID

	if _, err := svc.RemoveIncomeSource(ctx, 2025, time.June, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("remove unknown source: %v", err)
	}
	removed, err := svc.RemoveIncomeSource(ctx, 2025, time.June, srcID)
	if err != nil || len(removed.IncomeSources) != 0 {
		t.Errorf("RemoveIncomeSource = %+v, %v", removed, err)
	}

	settings, _ := svc.Settings(ctx)
	if settings.LastBudgetUpdate == nil || !settings.LastBudgetUpdate.Equal(testNow) {
		t.Errorf("LastBudgetUpdate = %v", settings.LastBudgetUpdate)
	}

	if _, err := svc.SaveBudget(ctx, core.Budget{Amount: dec("1"), Month: "13", Year: 2025}); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("invalid month: %v", err)
	}
}

func TestLedgerService_AddIncomeSourceCreatesBudget(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)
	b, err := svc.AddIncomeSource(ctx, 2025, time.July, core.IncomeSource{Name: "Side", Amount: dec("100"), Frequency: core.Weekly})
	if err != nil {
		t.Fatal(err)
	}
	if !b.Amount.IsZero() || b.Month != "07" || len(b.IncomeSources) != 1 {
		t.Errorf("budget = %+v", b)
	}
}

func TestLedgerService_ZeroBudget(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)
	if _, err := svc.ZeroBudget(ctx, 2025, time.June); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ZeroBudget without budget = %v", err)
	}
	if _, err := svc.SaveBudget(ctx, core.Budget{Amount: dec("1500"), Month: "06", Year: 2025, Notes: "June"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddIncomeSource(ctx, 2025, time.June, core.IncomeSource{Name: "Salary", Amount: dec("3000"), Frequency: core.Monthly}); err != nil {
		t.Fatal(err)
	}
	b, err := svc.ZeroBudget(ctx, 2025, time.June)
	if err != nil {
		t.Fatal(err)
	}
	if !b.Amount.IsZero() || b.Notes != "June\n\nBudget reset to 0 on Jun 15, 2025 at 12:00" {
		t.Errorf("zeroed budget = %+v", b)
	}
	if len(b.IncomeSources) != 1 || b.IncomeSources[0].Name != "Salary" {
		t.Errorf("income sources after reset = %+v", b.IncomeSources)
	}
}

func TestLedgerService_Goals(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)

	g, err := svc.CreateGoal(ctx, core.SavingsGoal{Name: "Car", TargetAmount: dec("25000"), CurrentAmount: dec("15000")})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if !g.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v", g.CreatedAt)
	}

	tests := []struct {
		name    string
		amount  string
		wantErr error
	}{
		{"negative", "-1", core.ErrInvalidAmount},
		{"above target", "25000.01", core.ErrCurrentExceedsTarget},
		{"equal to target", "25000", nil},
		{"zero", "0", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.UpdateGoalAmount(ctx, g.ID, dec(tt.amount))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("UpdateGoalAmount(%s) error = %v, want %v", tt.amount, err, tt.wantErr)
			}
			if err == nil && !got.CurrentAmount.Equal(dec(tt.amount)) {
				t.Errorf("CurrentAmount = %s", got.CurrentAmount)
			}
		})
	}

	if _, err := svc.CreateGoal(ctx, core.SavingsGoal{Name: "Bad", TargetAmount: decimal.Zero}); !errors.Is(err, core.ErrInvalidTarget) {
		t.Errorf("zero target: %v", err)
	}
}

func TestLedgerService_EnsureDefaultAccounts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)

	n, err := svc.EnsureDefaultAccounts(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first run created %d, %v", n, err)
	}
	accounts, _ := svc.ListAccounts(ctx)
	if len(accounts) != 2 || accounts[0].Name != "My Investments" || accounts[1].Name != "My Savings" {
		t.Errorf("accounts = %+v", accounts)
	}
	settings, _ := svc.Settings(ctx)
	if !settings.HasInitializedAccounts {
		t.Error("HasInitializedAccounts should be set")
	}

	n, err = svc.EnsureDefaultAccounts(ctx)
	if err != nil || n != 0 {
		t.Errorf("second run created %d, %v", n, err)
	}
}

func TestLedgerService_ResetAll(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)
	if _, err := svc.CreateAccount(ctx, core.Account{Name: "Old", Type: core.Checking, Balance: dec("10")}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateTransaction(ctx, core.Transaction{Title: "t", Amount: dec("1"), Type: core.Expense, Date: testNow}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveSettings(ctx, core.Settings{CurrencyCode: "eur", StartDayOfMonth: 5, SelectedTransactionFilter: core.FilterAll, PrivacyMode: true}); err != nil {
		t.Fatal(err)
	}

	if err := svc.ResetAll(ctx); err != nil {
		t.Fatalf("ResetAll: %v", err)
	}

	accounts, _ := svc.ListAccounts(ctx)
	names := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if !a.Balance.IsZero() {
			t.Errorf("%s balance = %s, want 0", a.Name, a.Balance)
		}
		names = append(names, a.Name)
	}
	if len(names) != 3 || names[0] != "My Checking" || names[1] != "My Investments" || names[2] != "My Savings" {
		t.Errorf("accounts after reset = %v", names)
	}
	txs, _ := svc.ListTransactions(ctx, store.TransactionFilter{})
	if len(txs) != 0 {
		t.Errorf("transactions after reset = %d", len(txs))
	}
	settings, _ := svc.Settings(ctx)
	if settings.CurrencyCode != "USD" || settings.PrivacyMode || !settings.HasInitializedAccounts || settings.SelectedTransactionFilter != core.FilterThisMonth {
		t.Errorf("settings after reset = %+v", settings)
	}
}

func TestLedgerService_Settings(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)

	got, err := svc.Settings(ctx)
	if err != nil || got.CurrencyCode != "USD" || got.StartDayOfMonth != 1 {
		t.Fatalf("defaults = %+v, %v", got, err)
	}

	tests := []struct {
		name     string
		settings core.Settings
		wantErr  bool
	}{
		{"valid lower-case currency", core.Settings{CurrencyCode: "gbp", StartDayOfMonth: 1, SelectedTransactionFilter: core.FilterAll}, false},
		{"empty currency", core.Settings{StartDayOfMonth: 1, SelectedTransactionFilter: core.FilterAll}, true},
		{"start day 29", core.Settings{CurrencyCode: "USD", StartDayOfMonth: 29, SelectedTransactionFilter: core.FilterAll}, true},
		{"unknown filter", core.Settings{CurrencyCode: "USD", StartDayOfMonth: 1, SelectedTransactionFilter: "yesterday"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveSettings(ctx, tt.settings)
			if (err != nil) != tt.wantErr {
				t.Errorf("SaveSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, core.ErrValidation) {
				t.Errorf("error %v should match ErrValidation", err)
			}
		})
	}
	got, _ = svc.Settings(ctx)
	if got.CurrencyCode != "GBP" {
		t.Errorf("currency = %q, want GBP", got.CurrencyCode)
	}
}
