package finance

import (
	"time"

	"budget/internal/core"
)

// MonthBounds returns the first instant of the month and the first instant
// of the following month. The range is half-open: [start, end).
func MonthBounds(year int, month time.Month, loc *time.Location) (start, end time.Time) {
	start = time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// InRange reports whether t falls in [from, to).
func InRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// DaysElapsed is the day count used for daily averages. For the month that
// contains now it is the number of calendar days since the month started,
// never less than one. Past months count every day; future months count one.
func DaysElapsed(year int, month time.Month, now time.Time) int {
	start, end := MonthBounds(year, month, now.Location())
	switch {
	case !now.Before(end):
		return core.DaysInMonth(year, month, now.Location())
	case now.Before(start):
		return 1
	}
	days := core.DaysBetween(start, now)
	if days < 1 {
		days = 1
	}
	return days
}
