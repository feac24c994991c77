package finance

import (
	"testing"
	"time"

	"budget/internal/core"
)

func TestWeeklySpending(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC) // Tuesday
	txs := []core.Transaction{
		expense("today", "10", "Food", time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)),
		expense("six days ago", "4", "Food", time.Date(2025, 6, 4, 23, 0, 0, 0, time.UTC)),
		expense("too old", "99", "Food", time.Date(2025, 6, 3, 23, 59, 0, 0, time.UTC)),
		income("ignored", "500", time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)),
	}

	points := WeeklySpending(txs, now)
	if len(points) != 7 {
		t.Fatalf("len = %d, want 7", len(points))
	}
	if points[6].Label != "Tue" || !points[6].Amount.Equal(dec("10")) {
		t.Errorf("today = %+v", points[6])
	}
	if points[0].Label != "Wed" || !points[0].Amount.Equal(dec("4")) {
		t.Errorf("first day = %+v", points[0])
	}
}

func TestMonthlySpending(t *testing.T) {
	now := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense("feb", "20", "Food", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
		expense("dec", "30", "Food", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)),
		expense("sep", "40", "Food", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)),
		expense("aug", "50", "Food", time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC)),
	}

	points := MonthlySpending(txs, now, 6)
	if len(points) != 6 {
		t.Fatalf("len = %d, want 6", len(points))
	}
	want := []struct {
		label  string
		amount string
	}{
		{"Sep", "40"}, {"Oct", "0"}, {"Nov", "0"}, {"Dec", "30"}, {"Jan", "0"}, {"Feb", "20"},
	}
	for i, w := range want {
		if points[i].Label != w.label || !points[i].Amount.Equal(dec(w.amount)) {
			t.Errorf("points[%d] = %s %s, want %s %s", i, points[i].Label, points[i].Amount, w.label, w.amount)
		}
	}

	if got := MonthlySpending(txs, now, 0); len(got) != 0 {
		t.Errorf("n=0 should yield no points, got %d", len(got))
	}
}

func TestTrendWindowStart(t *testing.T) {
	now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	if got := TrendWindowStart(now, 6); !got.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("TrendWindowStart(6) = %s", got)
	}
	if got := TrendWindowStart(now, 1); !got.Equal(time.Date(2025, 5, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("TrendWindowStart(1) = %s", got)
	}
}
