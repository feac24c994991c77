package http

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// privacyMask replaces headline amounts while privacy mode is on.
const privacyMask = "••••••"

// formatMoney renders an amount with thousands separators and the currency
// code, e.g. "USD 1,234.50" or "USD -12.00".
func formatMoney(d decimal.Decimal, currency string) string {
	f, _ := d.Round(2).Float64()
	return currency + " " + humanize.FormatFloat("#,###.##", f)
}

// moneyOrMask formats d unless privacy mode hides it.
func moneyOrMask(d decimal.Decimal, currency string, private bool) string {
	if private {
		return privacyMask
	}
	return formatMoney(d, currency)
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
