// Package valuation materializes the daily portfolio snapshot series: one row
// per (portfolio, date) with total value, cash, per-asset-class market values,
// and the day's signed external flow, all in the portfolio's base currency.
package valuation

import (
	"github.com/quantfolio/quantfolio/internal/domain"
)

// Snapshot is one materialized valuation day.
type Snapshot struct {
	PortfolioID    string  `json:"portfolio_id"`
	Date           string  `json:"date"`
	TotalValue     float64 `json:"total_value"`
	Cash           float64 `json:"cash"`
	EquityValue    float64 `json:"equity_value"`
	FundValue      float64 `json:"fund_value"`
	BondValue      float64 `json:"bond_value"`
	CryptoValue    float64 `json:"crypto_value"`
	CommodityValue float64 `json:"commodity_value"`
	NetFlow        float64 `json:"net_flow"`
	CreatedAt      int64   `json:"created_at"`
}

// AddClassValue accumulates a holding's market value into its asset class
// bucket. Unknown classes fold into equity rather than being lost.
func (s *Snapshot) AddClassValue(class domain.AssetClass, value float64) {
	switch class {
	case domain.AssetClassFund:
		s.FundValue += value
	case domain.AssetClassBond:
		s.BondValue += value
	case domain.AssetClassCrypto:
		s.CryptoValue += value
	case domain.AssetClassCommodity:
		s.CommodityValue += value
	default:
		s.EquityValue += value
	}
}

// ClassValue returns the bucket for one asset class.
func (s *Snapshot) ClassValue(class domain.AssetClass) float64 {
	switch class {
	case domain.AssetClassEquity:
		return s.EquityValue
	case domain.AssetClassFund:
		return s.FundValue
	case domain.AssetClassBond:
		return s.BondValue
	case domain.AssetClassCrypto:
		return s.CryptoValue
	case domain.AssetClassCommodity:
		return s.CommodityValue
	}
	return 0
}

// HoldingsValue returns the sum of all asset class buckets.
func (s *Snapshot) HoldingsValue() float64 {
	total := 0.0
	for _, class := range domain.AssetClasses {
		total += s.ClassValue(class)
	}
	return total
}

// Allocation returns each asset class's share of the holdings value as a
// fraction, omitting empty buckets. A portfolio holding only cash has no
// allocation.
func (s *Snapshot) Allocation() map[domain.AssetClass]float64 {
	total := s.HoldingsValue()
	if total <= 0 {
		return nil
	}

	weights := make(map[domain.AssetClass]float64)
	for _, class := range domain.AssetClasses {
		if value := s.ClassValue(class); value > 0 {
			weights[class] = value / total
		}
	}
	return weights
}
