package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func TestWriteCSV(t *testing.T) {
	checking := core.Account{ID: uuid.New(), Name: "Checking"}
	gone := uuid.New()
	txs := []core.Transaction{
		{
			Title:     `Dinner at "Luigi's"`,
			Amount:    decimal.RequireFromString("42.5"),
			Category:  "Food",
			Date:      time.Date(2025, 6, 3, 19, 0, 0, 0, time.UTC),
			Notes:     "with, commas",
			AccountID: &checking.ID,
		},
		{
			Title:     "Salary",
			Amount:    decimal.RequireFromString("2500"),
			Category:  "Income",
			Date:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
			AccountID: &gone,
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, RowsFor(txs, []core.Account{checking})); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := "Date,Title,Amount,Category,Account,Notes\n" +
		`2025-06-03,"Dinner at ""Luigi's""",42.50,"Food","Checking","with, commas"` + "\n" +
		`2025-06-01,"Salary",2500.00,"Income","",""` + "\n"
	if got := buf.String(); got != want {
		t.Errorf("csv mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteCSVUsesLocalDay(t *testing.T) {
	tests := []struct {
		zone string
		date func(*time.Location) time.Time
		want string
	}{
		{"Asia/Tokyo", func(loc *time.Location) time.Time { return time.Date(2025, 6, 1, 0, 30, 0, 0, loc) }, "2025-06-01"},
		{"America/New_York", func(loc *time.Location) time.Time { return time.Date(2025, 5, 31, 23, 45, 0, 0, loc) }, "2025-05-31"},
		{"America/New_York", func(loc *time.Location) time.Time { return time.Date(2025, 12, 31, 22, 0, 0, 0, loc) }, "2025-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.zone+" "+tt.want, func(t *testing.T) {
			loc, err := time.LoadLocation(tt.zone)
			if err != nil {
				t.Skipf("time zone data unavailable: %v", err)
			}
			tx := core.Transaction{Title: "Late", Amount: decimal.NewFromInt(5), Category: "Food", Date: tt.date(loc)}

			var buf bytes.Buffer
			if err := WriteCSV(&buf, RowsFor([]core.Transaction{tx}, nil)); err != nil {
				t.Fatalf("WriteCSV: %v", err)
			}
			lines := strings.Split(buf.String(), "\n")
			if len(lines) < 2 || !strings.HasPrefix(lines[1], tt.want+",") {
				t.Errorf("csv = %q, want date %s", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != Header+"\n" {
		t.Errorf("empty export = %q", got)
	}
}

func TestFilename(t *testing.T) {
	got := Filename(time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC))
	if got != "transactions_2025-06-15.csv" {
		t.Errorf("Filename = %q", got)
	}
}
