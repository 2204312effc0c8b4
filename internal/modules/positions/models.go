// Package positions maintains per-(account, holding) quantity and cost basis.
// Position rows are derived state owned exclusively by the Ledger; every other
// component treats them as read-only.
package positions

import "time"

// Position is one row per (account, holding): quantity and weighted-average
// cost per unit in both the instrument currency and the portfolio base
// currency. A fully closed position has no cost memory.
type Position struct {
	AccountID    string    `json:"account_id"`
	HoldingID    string    `json:"holding_id"`
	Quantity     float64   `json:"quantity"`
	AvgCost      float64   `json:"avg_cost"`      // per unit, instrument currency
	AvgCostBase  float64   `json:"avg_cost_base"` // per unit, portfolio base currency
	CostCurrency string    `json:"cost_currency"`
	LastUpdated  time.Time `json:"last_updated"`
}

// TotalCost returns the position's total cost in instrument currency.
func (p *Position) TotalCost() float64 {
	return p.Quantity * p.AvgCost
}

// TotalCostBase returns the position's total cost in base currency.
func (p *Position) TotalCostBase() float64 {
	return p.Quantity * p.AvgCostBase
}
