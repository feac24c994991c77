// Package storetest holds behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/store"
)

// Run exercises s against the store contract. newStore must return an
// empty store for each call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("delete account keeps linked records", func(t *testing.T) { testDeleteAccountClearsLinks(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("budgets", func(t *testing.T) { testBudgets(t, newStore(t)) })
	t.Run("goals", func(t *testing.T) { testGoals(t, newStore(t)) })
	t.Run("settings", func(t *testing.T) { testSettings(t, newStore(t)) })
	t.Run("reset", func(t *testing.T) { testReset(t, newStore(t)) })
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()
	due := day(2025, 7, 1)
	card := core.Account{ID: uuid.New(), Name: "Visa", Type: core.CreditCard, IsDebt: true, Balance: dec("300.25"), InterestRate: dec("19.9"), DueDate: &due, Icon: "creditcard", Notes: "main card"}
	checking := core.Account{ID: uuid.New(), Name: "checking", Type: core.Checking, Balance: dec("-12.50")}

	for _, a := range []core.Account{card, checking} {
		if err := s.CreateAccount(ctx, a); err != nil {
			t.Fatalf("CreateAccount(%s): %v", a.Name, err)
		}
	}

	dup := core.Account{ID: uuid.New(), Name: "VISA", Type: core.Checking}
	if err := s.CreateAccount(ctx, dup); !errors.Is(err, core.ErrDuplicateAccountName) {
		t.Fatalf("duplicate name: got %v", err)
	}

	got, err := s.GetAccount(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Name != "Visa" || !got.Balance.Equal(card.Balance) || !got.IsDebt || !got.InterestRate.Equal(card.InterestRate) {
		t.Errorf("GetAccount = %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, due)
	}

	byName, err := s.FindAccountByName(ctx, "  CHECKING ")
	if err != nil || byName.ID != checking.ID {
		t.Errorf("FindAccountByName = %+v, %v", byName, err)
	}
	if _, err := s.FindAccountByName(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("FindAccountByName(nope) = %v", err)
	}

	list, err := s.ListAccounts(ctx)
	if err != nil || len(list) != 2 || list[0].ID != checking.ID {
		t.Fatalf("ListAccounts = %+v, %v", list, err)
	}
	if n, err := s.CountAccounts(ctx); err != nil || n != 2 {
		t.Errorf("CountAccounts = %d, %v", n, err)
	}

	checking.Name = "Visa"
	if err := s.UpdateAccount(ctx, checking); !errors.Is(err, core.ErrDuplicateAccountName) {
		t.Errorf("rename onto existing name: got %v", err)
	}
	checking.Name = "Checking"
	checking.Balance = dec("100")
	if err := s.UpdateAccount(ctx, checking); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if got, _ := s.GetAccount(ctx, checking.ID); !got.Balance.Equal(dec("100")) || got.Name != "Checking" {
		t.Errorf("after update = %+v", got)
	}

	if err := s.UpdateAccount(ctx, core.Account{ID: uuid.New(), Name: "ghost", Type: core.Savings}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateAccount(missing) = %v", err)
	}
	if _, err := s.GetAccount(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetAccount(missing) = %v", err)
	}
}

func testDeleteAccountClearsLinks(t *testing.T, s store.Store) {
	ctx := context.Background()
	acc := core.Account{ID: uuid.New(), Name: "Savings", Type: core.Savings}
	if err := s.CreateAccount(ctx, acc); err != nil {
		t.Fatal(err)
	}
	tx := core.Transaction{ID: uuid.New(), Title: "Deposit", Amount: dec("10"), Type: core.Income, Date: day(2025, 6, 1), CreatedAt: day(2025, 6, 1), AccountID: &acc.ID}
	goal := core.SavingsGoal{ID: uuid.New(), Name: "Trip", TargetAmount: dec("500"), CurrentAmount: decimal.Zero, CreatedAt: day(2025, 6, 1), AccountID: &acc.ID}
	if err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateGoal(ctx, goal); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteAccount(ctx, acc.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	gotTx, err := s.GetTransaction(ctx, tx.ID)
	if err != nil || gotTx.AccountID != nil {
		t.Errorf("transaction after account delete = %+v, %v", gotTx, err)
	}
	gotGoal, err := s.GetGoal(ctx, goal.ID)
	if err != nil || gotGoal.AccountID != nil {
		t.Errorf("goal after account delete = %+v, %v", gotGoal, err)
	}
	if err := s.DeleteAccount(ctx, acc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete = %v", err)
	}
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	mk := func(title string, date time.Time, typ core.TransactionType) core.Transaction {
		return core.Transaction{ID: uuid.New(), Title: title, Amount: dec("10.01"), Category: "Food", Type: typ, Date: date, CreatedAt: date, Notes: "n"}
	}
	may := mk("may", day(2025, 5, 31), core.Expense)
	juneStart := mk("june start", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), core.Expense)
	juneMid := mk("june mid", day(2025, 6, 15), core.Income)
	july := mk("july", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), core.Expense)
	for _, tx := range []core.Transaction{may, juneStart, juneMid, july} {
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction(%s): %v", tx.Title, err)
		}
	}

	june := store.TransactionFilter{From: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}
	got, err := s.ListTransactions(ctx, june)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != juneMid.ID || got[1].ID != juneStart.ID {
		t.Fatalf("June transactions = %+v", got)
	}
	if !got[0].Amount.Equal(dec("10.01")) || got[0].Type != core.Income || got[0].Notes != "n" {
		t.Errorf("round trip = %+v", got[0])
	}

	all, _ := s.ListTransactions(ctx, store.TransactionFilter{})
	if len(all) != 4 || all[0].ID != july.ID {
		t.Errorf("all transactions = %d, first %s", len(all), all[0].Title)
	}
	expenses, _ := s.ListTransactions(ctx, store.TransactionFilter{Type: core.Expense})
	if len(expenses) != 3 {
		t.Errorf("expenses = %d, want 3", len(expenses))
	}

	juneMid.Title = "renamed"
	if err := s.UpdateTransaction(ctx, juneMid); err != nil {
		t.Fatal(err)
	}
	if tx, _ := s.GetTransaction(ctx, juneMid.ID); tx.Title != "renamed" {
		t.Errorf("title after update = %q", tx.Title)
	}

	ids, err := s.DeleteTransactions(ctx, june)
	if err != nil || len(ids) != 2 {
		t.Fatalf("DeleteTransactions = %v, %v", ids, err)
	}
	rest, _ := s.ListTransactions(ctx, store.TransactionFilter{})
	if len(rest) != 2 {
		t.Errorf("remaining = %d, want 2", len(rest))
	}

	if err := s.DeleteTransaction(ctx, may.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetTransaction(ctx, may.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTransaction after delete = %v", err)
	}
	if err := s.DeleteTransaction(ctx, may.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteTransaction twice = %v", err)
	}
}

func testBudgets(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := core.Budget{
		ID:     uuid.New(),
		Amount: dec("1500"),
		Month:  "06",
		Year:   2025,
		Notes:  "June",
		IncomeSources: []core.IncomeSource{
			core.NewIncomeSource("Salary", dec("2000"), core.Monthly),
		},
	}
	stored, err := s.UpsertBudget(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ID != first.ID {
		t.Errorf("first upsert id = %s, want %s", stored.ID, first.ID)
	}

	second := core.Budget{ID: uuid.New(), Amount: dec("1700"), Month: "06", Year: 2025}
	stored, err = s.UpsertBudget(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ID != first.ID {
		t.Errorf("upsert should keep the existing id, got %s", stored.ID)
	}

	got, err := s.GetBudget(ctx, 2025, 6)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Amount.Equal(dec("1700")) || len(got.IncomeSources) != 0 || got.ID != first.ID {
		t.Errorf("GetBudget = %+v", got)
	}

	if _, err := s.UpsertBudget(ctx, core.Budget{ID: uuid.New(), Amount: dec("900"), Month: "12", Year: 2024, IncomeSources: first.IncomeSources}); err != nil {
		t.Fatal(err)
	}
	list, err := s.ListBudgets(ctx)
	if err != nil || len(list) != 2 || list[0].Year != 2025 || list[1].Month != "12" {
		t.Fatalf("ListBudgets = %+v, %v", list, err)
	}
	if len(list[1].IncomeSources) != 1 || list[1].IncomeSources[0].Frequency != core.Monthly {
		t.Errorf("income sources = %+v", list[1].IncomeSources)
	}

	if _, err := s.GetBudget(ctx, 2025, 7); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetBudget(missing) = %v", err)
	}
	if err := s.DeleteBudget(ctx, 2025, 6); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteBudget(ctx, 2025, 6); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteBudget twice = %v", err)
	}
}

func testGoals(t *testing.T, s store.Store) {
	ctx := context.Background()
	deadline := day(2026, 1, 1)
	older := core.SavingsGoal{ID: uuid.New(), Name: "Car", TargetAmount: dec("25000"), CurrentAmount: dec("15000"), CreatedAt: day(2025, 1, 1), Deadline: &deadline}
	newer := core.SavingsGoal{ID: uuid.New(), Name: "Trip", TargetAmount: dec("800"), CurrentAmount: decimal.Zero, CreatedAt: day(2025, 3, 1)}
	for _, g := range []core.SavingsGoal{older, newer} {
		if err := s.CreateGoal(ctx, g); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.ListGoals(ctx)
	if err != nil || len(list) != 2 || list[0].ID != newer.ID {
		t.Fatalf("ListGoals = %+v, %v", list, err)
	}
	got, _ := s.GetGoal(ctx, older.ID)
	if got.Deadline == nil || !got.Deadline.Equal(deadline) || !got.CurrentAmount.Equal(dec("15000")) {
		t.Errorf("GetGoal = %+v", got)
	}

	older.CurrentAmount = dec("16000")
	if err := s.UpdateGoal(ctx, older); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.GetGoal(ctx, older.ID); !got.CurrentAmount.Equal(dec("16000")) {
		t.Errorf("CurrentAmount after update = %s", got.CurrentAmount)
	}
	if err := s.DeleteGoal(ctx, older.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateGoal(ctx, older); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateGoal(deleted) = %v", err)
	}
}

func testSettings(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.LoadSettings(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("LoadSettings before save = %v", err)
	}
	updated := day(2025, 6, 1)
	want := core.DefaultSettings("EUR")
	want.PrivacyMode = true
	want.SelectedTab = 2
	want.LastBudgetUpdate = &updated
	if err := s.SaveSettings(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrencyCode != "EUR" || !got.PrivacyMode || got.SelectedTab != 2 || got.LastBudgetUpdate == nil || !got.LastBudgetUpdate.Equal(updated) {
		t.Errorf("LoadSettings = %+v", got)
	}
}

func testReset(t *testing.T, s store.Store) {
	ctx := context.Background()
	_ = s.CreateAccount(ctx, core.Account{ID: uuid.New(), Name: "A", Type: core.Checking})
	_ = s.CreateTransaction(ctx, core.Transaction{ID: uuid.New(), Title: "t", Amount: dec("1"), Type: core.Expense, Date: day(2025, 1, 1), CreatedAt: day(2025, 1, 1)})
	_ = s.CreateGoal(ctx, core.SavingsGoal{ID: uuid.New(), Name: "g", TargetAmount: dec("1"), CreatedAt: day(2025, 1, 1)})
	_, _ = s.UpsertBudget(ctx, core.Budget{ID: uuid.New(), Amount: dec("1"), Month: "01", Year: 2025})
	_ = s.SaveSettings(ctx, core.DefaultSettings("USD"))

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n, _ := s.CountAccounts(ctx); n != 0 {
		t.Errorf("accounts after reset = %d", n)
	}
	if txs, _ := s.ListTransactions(ctx, store.TransactionFilter{}); len(txs) != 0 {
		t.Errorf("transactions after reset = %d", len(txs))
	}
	if goals, _ := s.ListGoals(ctx); len(goals) != 0 {
		t.Errorf("goals after reset = %d", len(goals))
	}
	if budgets, _ := s.ListBudgets(ctx); len(budgets) != 0 {
		t.Errorf("budgets after reset = %d", len(budgets))
	}
	if _, err := s.LoadSettings(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("settings after reset = %v", err)
	}
}
