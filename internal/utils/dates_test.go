package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateToUnix(t *testing.T) {
	ts, err := DateToUnix("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).Unix(), ts)

	_, err = DateToUnix("15/03/2024")
	assert.Error(t, err)

	_, err = DateToUnix("")
	assert.Error(t, err)
}

func TestEndOfDayUnix(t *testing.T) {
	start, err := DateToUnix("2024-03-15")
	require.NoError(t, err)
	end, err := EndOfDayUnix("2024-03-15")
	require.NoError(t, err)

	assert.Equal(t, int64(86399), end-start)
}

func TestUnixToDateRoundTrip(t *testing.T) {
	ts, err := DateToUnix("2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", UnixToDate(ts))

	// End-of-day timestamps still map back to the same calendar date.
	eod, err := EndOfDayUnix("2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", UnixToDate(eod))
}

func TestNextAndPrevDate(t *testing.T) {
	assert.Equal(t, "2024-03-01", NextDate("2024-02-29"))
	assert.Equal(t, "2024-02-29", PrevDate("2024-03-01"))
	assert.Equal(t, "2024-01-01", NextDate("2023-12-31"))
	assert.Equal(t, "", NextDate("not-a-date"))
	assert.Equal(t, "", PrevDate("not-a-date"))
}

func TestDateRange(t *testing.T) {
	days := DateRange("2024-02-27", "2024-03-02")
	assert.Equal(t, []string{
		"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02",
	}, days)

	assert.Equal(t, []string{"2024-05-01"}, DateRange("2024-05-01", "2024-05-01"))
	assert.Nil(t, DateRange("2024-05-02", "2024-05-01"))
	assert.Nil(t, DateRange("bad", "2024-05-01"))
}

func TestAddMonthsClamped(t *testing.T) {
	parse := func(s string) time.Time {
		ts, err := time.Parse(DateLayout, s)
		require.NoError(t, err)
		return ts
	}

	// Day-of-month clamps to the target month's last day instead of
	// normalizing into the following month.
	assert.Equal(t, "2024-02-29", AddMonthsClamped(parse("2024-03-31"), -1).Format(DateLayout))
	assert.Equal(t, "2023-02-28", AddMonthsClamped(parse("2023-03-31"), -1).Format(DateLayout))
	assert.Equal(t, "2024-04-30", AddMonthsClamped(parse("2024-05-31"), -1).Format(DateLayout))

	// Plain cases are unaffected.
	assert.Equal(t, "2024-02-15", AddMonthsClamped(parse("2024-03-15"), -1).Format(DateLayout))
	assert.Equal(t, "2023-03-15", AddMonthsClamped(parse("2024-03-15"), -12).Format(DateLayout))
	assert.Equal(t, "2024-06-30", AddMonthsClamped(parse("2024-05-31"), 1).Format(DateLayout))
}
