package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
	"budget/internal/finance"
	"budget/internal/store/memory"
)

func seedDashboard(t *testing.T) (*DashboardService, core.Account) {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	savings := core.Account{ID: uuid.New(), Name: "Savings", Type: core.Savings, Balance: dec("5000")}
	due := testNow.AddDate(0, 0, 3)
	card := core.Account{ID: uuid.New(), Name: "Card", Type: core.CreditCard, IsDebt: true, Balance: dec("1000"), InterestRate: dec("12"), DueDate: &due}
	for _, a := range []core.Account{savings, card} {
		if err := st.CreateAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := st.UpsertBudget(ctx, core.Budget{
		ID:            uuid.New(),
		Amount:        dec("1000"),
		Month:         "06",
		Year:          2025,
		IncomeSources: []core.IncomeSource{core.NewIncomeSource("Salary", dec("3000"), core.Monthly)},
	}); err != nil {
		t.Fatal(err)
	}

	txs := []core.Transaction{
		{Title: "Old rent", Amount: dec("200"), Category: "Housing", Type: core.Expense, Date: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{Title: "Groceries", Amount: dec("750"), Category: "Food", Type: core.Expense, Date: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)},
		{Title: "Bus", Amount: dec("100"), Category: "Transportation", Type: core.Expense, Date: time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)},
		{Title: "Paycheck", Amount: dec("3000"), Category: "Income", Type: core.Income, Date: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)},
	}
	for _, tx := range txs {
		tx.ID = uuid.New()
		tx.CreatedAt = tx.Date
		if err := st.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	goals := []core.SavingsGoal{
		{ID: uuid.New(), Name: "Car", TargetAmount: dec("25000"), CurrentAmount: dec("15000"), CreatedAt: testNow.AddDate(0, -2, 0), AccountID: &savings.ID},
		{ID: uuid.New(), Name: "Emergency", TargetAmount: dec("10000"), CurrentAmount: dec("10000"), CreatedAt: testNow.AddDate(0, -1, 0)},
	}
	for _, g := range goals {
		if err := st.CreateGoal(ctx, g); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewDashboardService(st, "USD", time.UTC)
	svc.now = func() time.Time { return testNow }
	return svc, card
}

func TestDashboardService_Dashboard(t *testing.T) {
	svc, card := seedDashboard(t)

	d, err := svc.Dashboard(context.Background(), 2025, time.June)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	s := d.Summary
	if !s.HasBudget || !s.TotalSpent.Equal(dec("850")) || s.TopCategory != "Food" || s.TransactionCount != 3 {
		t.Errorf("summary = %+v", s)
	}
	if s.Progress != finance.LevelWarning {
		t.Errorf("progress = %q, want warning", s.Progress)
	}
	if s.RemainingMode != finance.RemainingIncome || s.RemainingBudget == nil || !s.RemainingBudget.Equal(dec("2000")) {
		t.Errorf("remaining = %v (%s)", s.RemainingBudget, s.RemainingMode)
	}
	if !s.IncomeTransactions.Equal(dec("3000")) {
		t.Errorf("income transactions = %s", s.IncomeTransactions)
	}

	nw := d.NetWorth
	if !nw.TotalNetWorth.Equal(dec("4000")) || !nw.MonthlyInterest.Equal(dec("10")) {
		t.Errorf("net worth = %+v", nw)
	}
	if !nw.HasPriorEstimate || nw.PriorNetWorth == nil || !nw.PriorNetWorth.Equal(dec("4200")) {
		t.Errorf("prior estimate = %+v", nw)
	}

	var cardView *AccountView
	for i := range d.Accounts {
		if d.Accounts[i].ID == card.ID {
			cardView = &d.Accounts[i]
		}
	}
	if cardView == nil || cardView.DaysUntilDue == nil || *cardView.DaysUntilDue != 3 || cardView.IsPastDue {
		t.Errorf("card view = %+v", cardView)
	}

	if len(d.Goals) != 2 || d.Goals[0].Goal.Name != "Emergency" || !d.Goals[0].IsComplete {
		t.Errorf("goals = %+v", d.Goals)
	}
	if len(d.RecentTransactions) != 4 || d.RecentTransactions[0].Title != "Bus" {
		t.Errorf("recent = %+v", d.RecentTransactions)
	}
	if len(d.Trends.Weekly) != 7 || len(d.Trends.Monthly) != TrendMonths {
		t.Errorf("trend lengths = %d, %d", len(d.Trends.Weekly), len(d.Trends.Monthly))
	}
	if last := d.Trends.Monthly[TrendMonths-1]; last.Label != "Jun" || !last.Amount.Equal(dec("850")) {
		t.Errorf("current month trend = %+v", last)
	}
}

func TestDashboardService_MonthWithoutBudget(t *testing.T) {
	svc, _ := seedDashboard(t)
	s, err := svc.MonthSummary(context.Background(), 2025, time.March)
	if err != nil {
		t.Fatal(err)
	}
	if s.HasBudget || s.RemainingBudget != nil || s.UsagePercent != nil || s.Progress != "" {
		t.Errorf("summary without budget = %+v", s)
	}
	if !s.TotalSpent.Equal(dec("200")) || s.DaysElapsed != 31 {
		t.Errorf("march spend = %s over %d days", s.TotalSpent, s.DaysElapsed)
	}
}

func TestDashboardService_Goals(t *testing.T) {
	svc, _ := seedDashboard(t)

	tests := []struct {
		name             string
		includeCompleted bool
		wantNames        []string
	}{
		{"all goals by progress", true, []string{"Emergency", "Car"}},
		{"open goals only", false, []string{"Car"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := svc.Goals(context.Background(), tt.includeCompleted, finance.SortByProgress)
			if err != nil {
				t.Fatal(err)
			}
			if len(report.Goals) != len(tt.wantNames) {
				t.Fatalf("got %d goals, want %d", len(report.Goals), len(tt.wantNames))
			}
			for i, name := range tt.wantNames {
				if report.Goals[i].Goal.Name != name {
					t.Errorf("goal %d = %s, want %s", i, report.Goals[i].Goal.Name, name)
				}
			}
			if len(report.Groups["Savings"]) != 1 {
				t.Errorf("groups = %v", report.Groups)
			}
		})
	}
}

func TestDashboardService_Trends(t *testing.T) {
	svc, _ := seedDashboard(t)
	trends, err := svc.Trends(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(trends.Weekly) != 7 || trends.Weekly[6].Label != testNow.Format("Mon") {
		t.Errorf("weekly = %+v", trends.Weekly)
	}
	if !trends.Weekly[5].Amount.Equal(dec("100")) {
		t.Errorf("yesterday spend = %s, want 100", trends.Weekly[5].Amount)
	}
	if !trends.Monthly[2].Amount.Equal(dec("200")) {
		t.Errorf("march spend = %s, want 200", trends.Monthly[2].Amount)
	}
}

func TestDashboardService_NetWorthWithoutHistory(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	if err := st.CreateAccount(ctx, core.Account{ID: uuid.New(), Name: "A", Type: core.Checking, Balance: dec("-50")}); err != nil {
		t.Fatal(err)
	}
	svc := NewDashboardService(st, "USD", time.UTC)
	svc.now = func() time.Time { return testNow }
	nw, err := svc.NetWorth(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !nw.TotalAssets.IsZero() || nw.HasPriorEstimate || nw.PriorNetWorth != nil {
		t.Errorf("net worth = %+v", nw)
	}
}
