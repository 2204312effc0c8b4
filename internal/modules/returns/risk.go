package returns

import (
	"github.com/quantfolio/quantfolio/pkg/formulas"
)

// RiskResult summarizes the risk profile of a portfolio's value series over a
// window.
type RiskResult struct {
	PortfolioID          string  `json:"portfolio_id" msgpack:"portfolio_id"`
	StartDate            string  `json:"start_date" msgpack:"start_date"`
	EndDate              string  `json:"end_date" msgpack:"end_date"`
	AnnualizedVolatility float64 `json:"annualized_volatility" msgpack:"annualized_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio" msgpack:"sharpe_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown" msgpack:"max_drawdown"`
	Days                 int     `json:"days" msgpack:"days"`
}

// CalculateRisk computes volatility, Sharpe ratio, and maximum drawdown from
// the daily snapshot total-value series. The series includes cash, so these
// figures describe the whole portfolio, flows and all; they are descriptive
// statistics, not flow-neutralized performance.
func (s *Service) CalculateRisk(portfolioID, startDate, endDate string, riskFreeRate float64) (*RiskResult, error) {
	series, err := s.snapshots.GetRange(portfolioID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(series))
	for i := range series {
		values[i] = series[i].TotalValue
	}
	dailyReturns := formulas.DailyReturns(values)

	return &RiskResult{
		PortfolioID:          portfolioID,
		StartDate:            startDate,
		EndDate:              endDate,
		AnnualizedVolatility: formulas.AnnualizedVolatility(dailyReturns),
		SharpeRatio:          formulas.SharpeRatio(dailyReturns, riskFreeRate),
		MaxDrawdown:          formulas.MaxDrawdown(values),
		Days:                 len(series),
	}, nil
}
