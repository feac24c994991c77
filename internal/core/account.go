package core

import (
	"time"

	"github.com/shopspring/decimal"
)

var monthsPerYear = decimal.NewFromInt(12)

// MonthlyInterestAmount projects one month of interest on a debt balance.
// It is never applied to the stored balance.
func (a Account) MonthlyInterestAmount() decimal.Decimal {
	if !a.IsDebt || !a.InterestRate.IsPositive() {
		return decimal.Zero
	}
	return a.Balance.Mul(a.InterestRate).Div(decimal.NewFromInt(100)).Div(monthsPerYear).Round(2)
}

// SignedBalance is the balance as it contributes to net worth: debts count negative.
func (a Account) SignedBalance() decimal.Decimal {
	if a.IsDebt {
		return a.Balance.Neg()
	}
	return a.Balance
}

// DaysUntilDue returns calendar days from now to the due date, negative when
// the due date has passed. Nil when the account has no due date.
func (a Account) DaysUntilDue(now time.Time) *int {
	if a.DueDate == nil {
		return nil
	}
	d := DaysBetween(now, *a.DueDate)
	return &d
}

func (a Account) IsPastDue(now time.Time) bool {
	d := a.DaysUntilDue(now)
	return d != nil && *d < 0
}

// NextDueDate returns the due date moved forward one month, clamped to the
// last day of the target month. Nil when the account has no due date.
func (a Account) NextDueDate() *time.Time {
	if a.DueDate == nil {
		return nil
	}
	next := AddMonths(*a.DueDate, 1)
	return &next
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from one date to another, ignoring the
// time of day. The result is negative when to is before from.
func DaysBetween(from, to time.Time) int {
	to = to.In(from.Location())
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// AddMonths adds n calendar months, clamping the day so Jan 31 + 1 month is
// the last day of February rather than early March.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := DaysInMonth(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
