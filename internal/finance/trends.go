package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// SpendingPoint is the expense total of one day or one month.
type SpendingPoint struct {
	Label  string          `json:"label"`
	Start  time.Time       `json:"start"`
	Amount decimal.Decimal `json:"amount"`
}

// WeeklySpending returns expense totals for the seven days ending today,
// oldest first, labelled with the weekday abbreviation.
func WeeklySpending(txs []core.Transaction, now time.Time) []SpendingPoint {
	today := core.StartOfDay(now)
	points := make([]SpendingPoint, 7)
	for i := range points {
		day := today.AddDate(0, 0, i-6)
		points[i] = SpendingPoint{Label: day.Format("Mon"), Start: day, Amount: decimal.Zero}
	}
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		for i := range points {
			if InRange(tx.Date, points[i].Start, points[i].Start.AddDate(0, 0, 1)) {
				points[i].Amount = points[i].Amount.Add(tx.Amount)
				break
			}
		}
	}
	return points
}

// MonthlySpending returns expense totals for the last n months including the
// current one, oldest first, labelled with the month abbreviation.
func MonthlySpending(txs []core.Transaction, now time.Time, n int) []SpendingPoint {
	if n < 1 {
		return []SpendingPoint{}
	}
	current, _ := MonthBounds(now.Year(), now.Month(), now.Location())
	points := make([]SpendingPoint, n)
	for i := range points {
		start := current.AddDate(0, i-(n-1), 0)
		points[i] = SpendingPoint{Label: start.Format("Jan"), Start: start, Amount: decimal.Zero}
	}
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		for i := range points {
			if InRange(tx.Date, points[i].Start, points[i].Start.AddDate(0, 1, 0)) {
				points[i].Amount = points[i].Amount.Add(tx.Amount)
				break
			}
		}
	}
	return points
}

// TrendWindowStart is the earliest date any trend or summary for now needs.
func TrendWindowStart(now time.Time, months int) time.Time {
	current, _ := MonthBounds(now.Year(), now.Month(), now.Location())
	start := current.AddDate(0, -(months - 1), 0)
	if week := core.StartOfDay(now).AddDate(0, 0, -6); week.Before(start) {
		return week
	}
	return start
}
