package core

import (
	"fmt"
	"strings"
	"time"
)

// Transaction list filters remembered between sessions.
const (
	FilterThisMonth = "this_month"
	FilterLastMonth = "last_month"
	FilterAll       = "all"
)

// Settings holds the app-wide flags persisted next to the ledger.
type Settings struct {
	CurrencyCode              string     `json:"currency_code"`
	StartDayOfMonth           int        `json:"start_day_of_month"`
	HasInitializedAccounts    bool       `json:"has_initialized_accounts"`
	SelectedTransactionFilter string     `json:"selected_transaction_filter"`
	LastBudgetUpdate          *time.Time `json:"last_budget_update,omitempty"`
	SelectedTab               int        `json:"selected_tab"`
	PrivacyMode               bool       `json:"privacy_mode"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings(currency string) Settings {
	if currency == "" {
		currency = "USD"
	}
	return Settings{
		CurrencyCode:              currency,
		StartDayOfMonth:           1,
		SelectedTransactionFilter: FilterThisMonth,
	}
}

func (s Settings) Validate() error {
	if len(s.CurrencyCode) != 3 || strings.ToUpper(s.CurrencyCode) != s.CurrencyCode {
		return fmt.Errorf("%w: currency code must be three upper-case letters", ErrValidation)
	}
	if s.StartDayOfMonth < 1 || s.StartDayOfMonth > 28 {
		return fmt.Errorf("%w: start day of month must be between 1 and 28", ErrValidation)
	}
	switch s.SelectedTransactionFilter {
	case FilterThisMonth, FilterLastMonth, FilterAll:
	default:
		return fmt.Errorf("%w: unknown transaction filter %q", ErrValidation, s.SelectedTransactionFilter)
	}
	if s.SelectedTab < 0 {
		return fmt.Errorf("%w: selected tab must not be negative", ErrValidation)
	}
	return nil
}
