// Package returns computes period-bounded performance figures from the daily
// snapshot series and the raw transaction flows: time-weighted return (whole
// portfolio and invested-only), money-weighted return (XIRR), and a full PnL
// breakdown. All figures are fractions (0.025 = 2.5%), never percentages.
package returns

import (
	"fmt"
	"time"

	"github.com/quantfolio/quantfolio/internal/utils"
)

// periodMonths maps the month-based symbolic period codes.
var periodMonths = map[string]int{
	"1m": 1,
	"3m": 3,
	"6m": 6,
	"1y": 12,
	"3y": 36,
	"5y": 60,
}

// ResolvePeriod maps a symbolic period code to a start date against the given
// end date. Month arithmetic clamps the day-of-month (Mar 31 minus one month
// is Feb 28/29, never an overflow into March). "itd" resolves to the
// portfolio's first transaction date; inception may be nil when the portfolio
// has no transactions, which makes "itd" unresolvable.
func ResolvePeriod(code, endDate string, inception *string) (string, error) {
	end, err := time.Parse(utils.DateLayout, endDate)
	if err != nil {
		return "", fmt.Errorf("invalid end date %q: %w", endDate, err)
	}

	if months, ok := periodMonths[code]; ok {
		return utils.AddMonthsClamped(end, -months).Format(utils.DateLayout), nil
	}

	switch code {
	case "ytd":
		return time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC).Format(utils.DateLayout), nil
	case "itd":
		if inception == nil {
			return "", fmt.Errorf("period %q requires at least one transaction", code)
		}
		return *inception, nil
	}
	return "", fmt.Errorf("unknown period code %q", code)
}
