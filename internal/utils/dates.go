// Package utils provides small shared helpers used across modules.
package utils

import (
	"fmt"
	"time"
)

// DateLayout is the canonical YYYY-MM-DD format used for all calendar dates.
const DateLayout = "2006-01-02"

// DateToUnix converts a YYYY-MM-DD date string to a Unix timestamp at midnight UTC.
func DateToUnix(date string) (int64, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", date, err)
	}
	return t.Unix(), nil
}

// EndOfDayUnix converts a YYYY-MM-DD date string to a Unix timestamp at 23:59:59 UTC.
// Used for inclusive upper bounds on date-range queries.
func EndOfDayUnix(date string) (int64, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", date, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC).Unix(), nil
}

// UnixToDate converts a Unix timestamp to a YYYY-MM-DD date string in UTC.
func UnixToDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(DateLayout)
}

// Today returns the current UTC date as YYYY-MM-DD.
func Today() string {
	return time.Now().UTC().Format(DateLayout)
}

// NextDate returns the calendar day after the given YYYY-MM-DD date.
// The input must already be validated; invalid input returns the zero date.
func NextDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format(DateLayout)
}

// PrevDate returns the calendar day before the given YYYY-MM-DD date.
func PrevDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(DateLayout)
}

// DateRange returns every calendar day from start to end inclusive, in order.
// Returns nil if either date is invalid or start is after end.
func DateRange(start, end string) []string {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil
	}
	if s.After(e) {
		return nil
	}

	var days []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DateLayout))
	}
	return days
}

// AddMonthsClamped adds n months (negative to subtract) to a date, clamping the
// day-of-month to the last valid day of the target month. time.AddDate would
// normalize Jan 31 - 1 month to March 2/3; calendar period arithmetic must not.
func AddMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, t.Location())
}
