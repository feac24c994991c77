package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expense(title, amount, category string, date time.Time) core.Transaction {
	return core.Transaction{Title: title, Amount: dec(amount), Category: category, Type: core.Expense, Date: date}
}

func income(title, amount string, date time.Time) core.Transaction {
	return core.Transaction{Title: title, Amount: dec(amount), Category: "Income", Type: core.Income, Date: date}
}

func TestTotalMonthlyIncome(t *testing.T) {
	tests := []struct {
		name    string
		sources []core.IncomeSource
		want    string
	}{
		{"empty", nil, "0"},
		{
			name: "salary and freelance",
			sources: []core.IncomeSource{
				{Name: "Salary", Amount: dec("2000"), Frequency: core.Monthly},
				{Name: "Freelance", Amount: dec("500"), Frequency: core.Biweekly},
			},
			want: "3085",
		},
		{
			name:    "weekly",
			sources: []core.IncomeSource{{Name: "Tips", Amount: dec("100"), Frequency: core.Weekly}},
			want:    "433",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalMonthlyIncome(tt.sources); !got.Equal(dec(tt.want)) {
				t.Errorf("TotalMonthlyIncome() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProgressLevelFor(t *testing.T) {
	tests := []struct {
		spent, budget string
		want          ProgressLevel
		ok            bool
	}{
		{"0", "100", LevelNominal, true},
		{"74.99", "100", LevelNominal, true},
		{"75", "100", LevelWarning, true},
		{"99.99", "100", LevelWarning, true},
		{"100", "100", LevelOverLimit, true},
		{"250", "100", LevelOverLimit, true},
		{"10", "0", "", false},
		{"10", "-5", "", false},
	}
	for _, tt := range tests {
		got, ok := ProgressLevelFor(dec(tt.spent), dec(tt.budget))
		if got != tt.want || ok != tt.ok {
			t.Errorf("ProgressLevelFor(%s, %s) = %q, %v; want %q, %v", tt.spent, tt.budget, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSummarizeMonthCeilingMode(t *testing.T) {
	now := time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC)
	budget := &core.Budget{Amount: dec("1500"), Month: "06", Year: 2025}
	txs := []core.Transaction{
		expense("Groceries", "45.67", "Food", time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)),
		expense("Rent", "900.00", "Housing", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		expense("Last month", "80", "Food", time.Date(2025, 5, 31, 23, 59, 0, 0, time.UTC)),
		expense("Next month", "80", "Food", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),
		income("Paycheck", "2000", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)),
	}

	s := SummarizeMonth(budget, txs, 2025, time.June, now)

	if !s.TotalSpent.Equal(dec("945.67")) {
		t.Errorf("TotalSpent = %s, want 945.67", s.TotalSpent)
	}
	if s.RemainingMode != RemainingCeiling || s.RemainingBudget == nil || !s.RemainingBudget.Equal(dec("554.33")) {
		t.Errorf("RemainingBudget = %v (%s), want 554.33 ceiling", s.RemainingBudget, s.RemainingMode)
	}
	if len(s.Categories) != 2 || s.Categories[0].Category != "Housing" || s.Categories[1].Category != "Food" {
		t.Fatalf("Categories = %+v", s.Categories)
	}
	if !s.Categories[0].Amount.Equal(dec("900")) || !s.Categories[1].Amount.Equal(dec("45.67")) {
		t.Errorf("category amounts = %s, %s", s.Categories[0].Amount, s.Categories[1].Amount)
	}
	if !s.IncomeTransactions.Equal(dec("2000")) {
		t.Errorf("IncomeTransactions = %s, want 2000", s.IncomeTransactions)
	}
	if !s.TotalMonthlyIncome.IsZero() {
		t.Errorf("TotalMonthlyIncome = %s, want 0 without income sources", s.TotalMonthlyIncome)
	}
	if s.TransactionCount != 3 {
		t.Errorf("TransactionCount = %d, want 3", s.TransactionCount)
	}
	if s.DaysElapsed != 20 {
		t.Errorf("DaysElapsed = %d, want 20", s.DaysElapsed)
	}
	if !s.DailyAverage.Equal(dec("47.28")) {
		t.Errorf("DailyAverage = %s, want 47.28", s.DailyAverage)
	}
	if s.Progress != LevelNominal {
		t.Errorf("Progress = %q, want nominal", s.Progress)
	}
	if s.TopCategory != "Housing" {
		t.Errorf("TopCategory = %q", s.TopCategory)
	}
}

func TestSummarizeMonthIncomeMode(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	budget := &core.Budget{
		Amount: dec("2500"),
		Month:  "06",
		Year:   2025,
		IncomeSources: []core.IncomeSource{
			{Name: "Salary", Amount: dec("2000"), Frequency: core.Monthly},
			{Name: "Freelance", Amount: dec("500"), Frequency: core.Biweekly},
		},
	}
	s := SummarizeMonth(budget, nil, 2025, time.June, now)
	if !s.TotalMonthlyIncome.Equal(dec("3085")) {
		t.Errorf("TotalMonthlyIncome = %s", s.TotalMonthlyIncome)
	}
	if s.RemainingMode != RemainingIncome || !s.RemainingBudget.Equal(dec("585")) {
		t.Errorf("RemainingBudget = %s (%s), want 585 income", s.RemainingBudget, s.RemainingMode)
	}
	if len(s.IncomeLines) != 2 || !s.IncomeLines[1].MonthlyAmount.Equal(dec("1085")) {
		t.Errorf("IncomeLines = %+v", s.IncomeLines)
	}
}

func TestSummarizeMonthWithoutBudget(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{expense("Coffee", "3.50", "", time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))}

	s := SummarizeMonth(nil, txs, 2025, time.June, now)

	if s.HasBudget || s.BudgetAmount != nil || s.RemainingBudget != nil || s.UsagePercent != nil || s.Progress != "" {
		t.Errorf("budget-relative fields should be unset: %+v", s)
	}
	if len(s.Categories) != 1 || s.Categories[0].Category != core.UncategorizedCategory {
		t.Errorf("Categories = %+v", s.Categories)
	}
	if s.Categories[0].EstimatedBudget != nil {
		t.Error("EstimatedBudget should be nil without a budget")
	}
}

func TestSummarizeMonthZeroBudget(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	budget := &core.Budget{Amount: decimal.Zero, Month: "06", Year: 2025}
	txs := []core.Transaction{expense("Coffee", "3.50", "Food", time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))}

	s := SummarizeMonth(budget, txs, 2025, time.June, now)

	if s.UsagePercent != nil || s.Progress != "" {
		t.Errorf("usage must be undefined for a zero budget, got %v %q", s.UsagePercent, s.Progress)
	}
	if !s.RemainingBudget.Equal(dec("-3.50")) {
		t.Errorf("RemainingBudget = %s, want -3.50", s.RemainingBudget)
	}
}

func TestCategoryTotalsMatchTotalSpent(t *testing.T) {
	now := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	day := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense("a", "10.10", "Food", day),
		expense("b", "0.20", "", day),
		expense("c", "33.33", "Travel", day),
		expense("d", "0.01", "Food", day),
		expense("e", "5", "  ", day),
		income("f", "99", day),
	}
	s := SummarizeMonth(&core.Budget{Amount: dec("100"), Month: "03", Year: 2025}, txs, 2025, time.March, now)

	sum := decimal.Zero
	for _, c := range s.Categories {
		sum = sum.Add(c.Amount)
	}
	if !sum.Equal(s.TotalSpent) {
		t.Errorf("sum of categories %s != total spent %s", sum, s.TotalSpent)
	}
	if !s.TotalSpent.Equal(dec("48.64")) {
		t.Errorf("TotalSpent = %s", s.TotalSpent)
	}
}

func TestCategoryBudget(t *testing.T) {
	cats := []CategorySpending{
		{Category: "Housing", Amount: dec("750")},
		{Category: "Food", Amount: dec("250")},
	}
	got, ok := CategoryBudget(cats, "Food", dec("2000"))
	if !ok || !got.Equal(dec("500")) {
		t.Errorf("CategoryBudget(Food) = %s, %v; want 500", got, ok)
	}
	if _, ok := CategoryBudget(cats, "Travel", dec("2000")); ok {
		t.Error("unknown category should not be allocated")
	}
	if _, ok := CategoryBudget(cats, "Food", decimal.Zero); ok {
		t.Error("zero total should not be allocated")
	}
}

func TestDaysElapsed(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		year  int
		month time.Month
		now   time.Time
		want  int
	}{
		{"current month", 2025, time.June, now, 9},
		{"first day", 2025, time.June, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), 1},
		{"past month", 2025, time.February, now, 28},
		{"future month", 2025, time.August, now, 1},
		{"after spring forward", 2025, time.March, time.Date(2025, 3, 15, 0, 30, 0, 0, newYork), 14},
		{"after fall back", 2025, time.November, time.Date(2025, 11, 3, 23, 30, 0, 0, newYork), 2},
		{"start of last day", 2025, time.March, time.Date(2025, 3, 31, 0, 0, 0, 0, newYork), 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysElapsed(tt.year, tt.month, tt.now); got != tt.want {
				t.Errorf("DaysElapsed() = %d, want %d", got, tt.want)
			}
		})
	}
}
