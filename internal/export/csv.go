// Package export renders ledger transactions as CSV.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
)

// Header is the first line of every export.
const Header = "Date,Title,Amount,Category,Account,Notes"

// Row is one exported transaction.
type Row struct {
	Date     time.Time
	Title    string
	Amount   string
	Category string
	Account  string
	Notes    string
}

// RowsFor builds export rows in the order given. Transactions linked to an
// account that no longer exists get an empty account column.
func RowsFor(txs []core.Transaction, accounts []core.Account) []Row {
	names := make(map[uuid.UUID]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		var account string
		if tx.AccountID != nil {
			account = names[*tx.AccountID]
		}
		rows = append(rows, Row{
			Date:     tx.Date,
			Title:    tx.Title,
			Amount:   core.FormatAmount(tx.Amount),
			Category: tx.Category,
			Account:  account,
			Notes:    tx.Notes,
		})
	}
	return rows
}

// WriteCSV writes the header and rows. Text columns are always quoted and
// embedded quotes are doubled; date and amount are written bare.
func WriteCSV(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		line := strings.Join([]string{
			r.Date.Format("2006-01-02"),
			quote(r.Title),
			r.Amount,
			quote(r.Category),
			quote(r.Account),
			quote(r.Notes),
		}, ",")
		if _, err := bw.WriteString("\n" + line); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	if err := bw.WriteByte('\n'); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	return bw.Flush()
}

// Filename is the suggested download name for an export made at now.
func Filename(now time.Time) string {
	return "transactions_" + now.Format("2006-01-02") + ".csv"
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
