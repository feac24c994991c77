package finance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// ProgressLevel tiers budget usage for display.
type ProgressLevel string

const (
	LevelNominal   ProgressLevel = "nominal"
	LevelWarning   ProgressLevel = "warning"
	LevelOverLimit ProgressLevel = "over_limit"
)

// RemainingMode tells how RemainingBudget was derived.
type RemainingMode string

const (
	// RemainingIncome is total income minus the budget ceiling.
	RemainingIncome RemainingMode = "income"
	// RemainingCeiling is the budget ceiling minus what was spent.
	RemainingCeiling RemainingMode = "ceiling"
)

var (
	warningRatio   = decimal.RequireFromString("0.75")
	overLimitRatio = decimal.NewFromInt(1)
	hundred        = decimal.NewFromInt(100)
)

// CategorySpending is the expense total for one category in a month.
type CategorySpending struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	// Share is the percentage of the month's total spend.
	Share decimal.Decimal `json:"share_percent"`
	// EstimatedBudget splits the budget ceiling proportionally to spend.
	EstimatedBudget *decimal.Decimal `json:"estimated_budget,omitempty"`
}

// MonthSummary holds every figure shown for one month. Budget-relative
// fields are nil when the month has no budget.
type MonthSummary struct {
	Year  int `json:"year"`
	Month int `json:"month"`

	HasBudget          bool             `json:"has_budget"`
	BudgetAmount       *decimal.Decimal `json:"budget_amount,omitempty"`
	BudgetNotes        string           `json:"budget_notes,omitempty"`
	TotalMonthlyIncome decimal.Decimal  `json:"total_monthly_income"`
	IncomeLines        []IncomeLine     `json:"income_sources"`

	TotalSpent decimal.Decimal `json:"total_spent"`
	// IncomeTransactions is informational; income is measured from sources.
	IncomeTransactions decimal.Decimal    `json:"income_transactions"`
	Categories         []CategorySpending `json:"categories"`
	TopCategory        string             `json:"top_category,omitempty"`
	TransactionCount   int                `json:"transaction_count"`

	RemainingBudget *decimal.Decimal `json:"remaining_budget,omitempty"`
	RemainingMode   RemainingMode    `json:"remaining_mode,omitempty"`
	UsagePercent    *decimal.Decimal `json:"usage_percent,omitempty"`
	Progress        ProgressLevel    `json:"progress,omitempty"`

	DailyAverage         decimal.Decimal `json:"daily_average"`
	DaysElapsed          int             `json:"days_elapsed"`
	DaysInMonth          int             `json:"days_in_month"`
	MonthProgressPercent decimal.Decimal `json:"month_progress_percent"`
}

// ProgressLevelFor tiers spent against the budget ceiling. ok is false when
// the ceiling is not positive and usage is undefined.
func ProgressLevelFor(spent, budget decimal.Decimal) (level ProgressLevel, ok bool) {
	if !budget.IsPositive() {
		return "", false
	}
	ratio := spent.Div(budget)
	switch {
	case ratio.GreaterThanOrEqual(overLimitRatio):
		return LevelOverLimit, true
	case ratio.GreaterThanOrEqual(warningRatio):
		return LevelWarning, true
	default:
		return LevelNominal, true
	}
}

// UsagePercent is spent as a percentage of the ceiling, rounded to cents.
// ok is false when the ceiling is not positive.
func UsagePercent(spent, budget decimal.Decimal) (decimal.Decimal, bool) {
	if !budget.IsPositive() {
		return decimal.Zero, false
	}
	return spent.Div(budget).Mul(hundred).Round(2), true
}

// SpendingByCategory groups expense transactions by category, largest
// first. Ties are ordered by name so output is stable.
func SpendingByCategory(txs []core.Transaction) []CategorySpending {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		c := tx.CategoryOrDefault()
		totals[c] = totals[c].Add(tx.Amount)
	}

	out := make([]CategorySpending, 0, len(totals))
	for c, amount := range totals {
		out = append(out, CategorySpending{Category: c, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// CategoryBudget allocates total proportionally to the category's share of
// spending. ok is false when the category has no spend or total is not positive.
func CategoryBudget(categories []CategorySpending, category string, total decimal.Decimal) (decimal.Decimal, bool) {
	if !total.IsPositive() {
		return decimal.Zero, false
	}
	spent := decimal.Zero
	var amount decimal.Decimal
	found := false
	for _, c := range categories {
		spent = spent.Add(c.Amount)
		if c.Category == category {
			amount = c.Amount
			found = true
		}
	}
	if !found || !spent.IsPositive() {
		return decimal.Zero, false
	}
	return total.Mul(amount).Div(spent).Round(2), true
}

// SummarizeMonth aggregates the month's budget and transactions. Transactions
// outside [start of month, start of next month) in now's location are ignored,
// so callers may pass a wider snapshot.
func SummarizeMonth(budget *core.Budget, txs []core.Transaction, year int, month time.Month, now time.Time) MonthSummary {
	start, end := MonthBounds(year, month, now.Location())

	var inMonth []core.Transaction
	s := MonthSummary{
		Year:               year,
		Month:              int(month),
		TotalSpent:         decimal.Zero,
		IncomeTransactions: decimal.Zero,
		TotalMonthlyIncome: decimal.Zero,
		IncomeLines:        []IncomeLine{},
	}
	for _, tx := range txs {
		if !InRange(tx.Date, start, end) {
			continue
		}
		inMonth = append(inMonth, tx)
		switch tx.Type {
		case core.Expense:
			s.TotalSpent = s.TotalSpent.Add(tx.Amount)
		case core.Income:
			s.IncomeTransactions = s.IncomeTransactions.Add(tx.Amount)
		}
	}
	s.TransactionCount = len(inMonth)
	s.Categories = SpendingByCategory(inMonth)
	if len(s.Categories) > 0 {
		s.TopCategory = s.Categories[0].Category
	}
	for i := range s.Categories {
		if s.TotalSpent.IsPositive() {
			s.Categories[i].Share = s.Categories[i].Amount.Div(s.TotalSpent).Mul(hundred).Round(2)
		}
	}

	s.DaysElapsed = DaysElapsed(year, month, now)
	s.DaysInMonth = core.DaysInMonth(year, month, now.Location())
	s.DailyAverage = s.TotalSpent.Div(decimal.NewFromInt(int64(s.DaysElapsed))).Round(2)
	s.MonthProgressPercent = decimal.NewFromInt(int64(s.DaysElapsed)).
		Div(decimal.NewFromInt(int64(s.DaysInMonth))).Mul(hundred).Round(2)

	if budget == nil {
		return s
	}

	s.HasBudget = true
	amount := budget.Amount
	s.BudgetAmount = &amount
	s.BudgetNotes = budget.Notes
	s.IncomeLines = IncomeLines(budget.IncomeSources)
	s.TotalMonthlyIncome = TotalMonthlyIncome(budget.IncomeSources)

	var remaining decimal.Decimal
	if len(budget.IncomeSources) > 0 {
		remaining = s.TotalMonthlyIncome.Sub(amount)
		s.RemainingMode = RemainingIncome
	} else {
		remaining = amount.Sub(s.TotalSpent)
		s.RemainingMode = RemainingCeiling
	}
	s.RemainingBudget = &remaining

	if pct, ok := UsagePercent(s.TotalSpent, amount); ok {
		s.UsagePercent = &pct
	}
	if level, ok := ProgressLevelFor(s.TotalSpent, amount); ok {
		s.Progress = level
	}
	for i := range s.Categories {
		if est, ok := CategoryBudget(s.Categories, s.Categories[i].Category, amount); ok {
			s.Categories[i].EstimatedBudget = &est
		}
	}
	return s
}
