// Package reference provides the portfolio, account, and holding reference
// data consumed by the ledger, materializer, and returns calculator.
package reference

import (
	"time"

	"github.com/quantfolio/quantfolio/internal/domain"
)

// Portfolio groups accounts under a single base currency.
type Portfolio struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	BaseCurrency domain.Currency `json:"base_currency"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Account belongs to exactly one portfolio.
type Account struct {
	ID          string    `json:"id"`
	PortfolioID string    `json:"portfolio_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Holding is an investable instrument with a natural trading currency and an
// asset class used for valuation breakdowns.
type Holding struct {
	ID         string            `json:"id"`
	Symbol     string            `json:"symbol"`
	Name       string            `json:"name"`
	AssetClass domain.AssetClass `json:"asset_class"`
	Currency   domain.Currency   `json:"currency"`
	CreatedAt  time.Time         `json:"created_at"`
}
