package formulas

import "math"

// SharpeRatio calculates the annualized Sharpe ratio from daily returns and an
// annual risk-free rate. Zero volatility yields 0.
func SharpeRatio(dailyReturns []float64, riskFreeRate float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}

	vol := AnnualizedVolatility(dailyReturns)
	if vol == 0 {
		return 0
	}

	annualizedReturn := Mean(dailyReturns) * TradingDaysPerYear
	return (annualizedReturn - riskFreeRate) / vol
}

// MaxDrawdown calculates the largest peak-to-trough decline of a value series
// as a positive fraction (0.2 = a 20% drawdown). Zero for flat or rising
// series.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	maxDD := 0.0
	peak := values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
			continue
		}
		if peak > 0 {
			dd := (peak - v) / peak
			maxDD = math.Max(maxDD, dd)
		}
	}
	return maxDD
}
