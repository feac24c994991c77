package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// Thresholds below which the prior-period estimate is withheld.
const (
	minHistoryTransactions = 3
	minHistoryAgeDays      = 30
)

var minHistoryVolume = decimal.NewFromInt(10)

// NetWorth is the current position across accounts plus an optional
// estimate for the end of the previous month.
type NetWorth struct {
	TotalAssets   decimal.Decimal `json:"total_assets"`
	TotalDebt     decimal.Decimal `json:"total_debt"`
	TotalNetWorth decimal.Decimal `json:"total_net_worth"`
	// MonthlyInterest projects one month of interest across debt accounts.
	MonthlyInterest decimal.Decimal `json:"monthly_interest"`

	HasPriorEstimate bool             `json:"has_prior_estimate"`
	PriorNetWorth    *decimal.Decimal `json:"prior_net_worth,omitempty"`
	Change           *decimal.Decimal `json:"change,omitempty"`
	// ChangePercent is nil when the prior estimate is zero.
	ChangePercent *decimal.Decimal `json:"change_percent,omitempty"`
}

// EstimateNetWorth sums asset and debt balances and, when the transaction
// history is deep enough, approximates last month's net worth from
// transaction deltas.
func EstimateNetWorth(accounts []core.Account, txs []core.Transaction, now time.Time) NetWorth {
	nw := NetWorth{
		TotalAssets:     decimal.Zero,
		TotalDebt:       decimal.Zero,
		MonthlyInterest: decimal.Zero,
	}
	for _, a := range accounts {
		if a.IsDebt {
			nw.TotalDebt = nw.TotalDebt.Add(a.Balance)
			nw.MonthlyInterest = nw.MonthlyInterest.Add(a.MonthlyInterestAmount())
			continue
		}
		nw.TotalAssets = nw.TotalAssets.Add(decimal.Max(a.Balance, decimal.Zero))
	}
	nw.TotalNetWorth = nw.TotalAssets.Sub(nw.TotalDebt)

	if !HasSufficientHistory(txs, now) {
		return nw
	}

	monthStart, _ := MonthBounds(now.Year(), now.Month(), now.Location())
	net := decimal.Zero
	for _, tx := range txs {
		if !tx.Date.Before(monthStart) {
			continue
		}
		switch tx.Type {
		case core.Income:
			net = net.Add(tx.Amount)
		case core.Expense:
			net = net.Sub(tx.Amount)
		}
	}

	prior := nw.TotalNetWorth.Sub(net)
	change := nw.TotalNetWorth.Sub(prior)
	nw.HasPriorEstimate = true
	nw.PriorNetWorth = &prior
	nw.Change = &change
	if !prior.IsZero() {
		pct := change.Div(prior.Abs()).Mul(hundred).Round(2)
		nw.ChangePercent = &pct
	}
	return nw
}

// HasSufficientHistory reports whether there are enough transactions, old
// enough and large enough, to compare against a previous period.
func HasSufficientHistory(txs []core.Transaction, now time.Time) bool {
	if len(txs) < minHistoryTransactions {
		return false
	}
	oldest := txs[0].Date
	volume := decimal.Zero
	for _, tx := range txs {
		if tx.Date.Before(oldest) {
			oldest = tx.Date
		}
		volume = volume.Add(tx.Amount)
	}
	if oldest.After(now.AddDate(0, 0, -minHistoryAgeDays)) {
		return false
	}
	return volume.GreaterThanOrEqual(minHistoryVolume)
}
