// Package finance turns a snapshot of ledger records into the figures shown
// on the dashboard. Every function is pure: callers pass the records and the
// reference time, nothing is cached or stored.
package finance

import (
	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// IncomeLine is one income source with its monthly-equivalent value.
type IncomeLine struct {
	core.IncomeSource
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
}

// MonthlyIncome normalizes a single source to a per-month figure.
func MonthlyIncome(src core.IncomeSource) decimal.Decimal {
	return src.Amount.Mul(src.Frequency.Multiplier())
}

// TotalMonthlyIncome sums the monthly equivalents. An empty list yields zero.
func TotalMonthlyIncome(sources []core.IncomeSource) decimal.Decimal {
	total := decimal.Zero
	for _, src := range sources {
		total = total.Add(MonthlyIncome(src))
	}
	return total
}

// IncomeLines returns each source next to its monthly equivalent.
func IncomeLines(sources []core.IncomeSource) []IncomeLine {
	lines := make([]IncomeLine, 0, len(sources))
	for _, src := range sources {
		lines = append(lines, IncomeLine{IncomeSource: src, MonthlyAmount: MonthlyIncome(src)})
	}
	return lines
}
