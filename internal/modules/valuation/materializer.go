package valuation

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/modules/positions"
	"github.com/quantfolio/quantfolio/internal/modules/reference"
	"github.com/quantfolio/quantfolio/internal/modules/transactions"
)

// TransactionSource provides the transaction history needed for as-of-date
// position reconstruction.
type TransactionSource interface {
	ListForPortfolioUpTo(portfolioID, date string) ([]transactions.Transaction, error)
}

// MarketLookup resolves as-of prices and FX rates with carry-forward. A nil
// result means the series has no data at or before the date.
type MarketLookup interface {
	CloseAsOf(holdingID, date string) (*float64, error)
	RateAsOf(base, quote, date string) (*float64, error)
}

// HoldingCatalog resolves holding metadata (currency, asset class).
type HoldingCatalog interface {
	HoldingsByID() (map[string]reference.Holding, error)
}

// Materializer computes single-day valuation snapshots. It reconstructs
// positions by replaying the transaction history up to the target date, so a
// snapshot never depends on the live positions table and can be regenerated
// for any historical date.
type Materializer struct {
	txs      TransactionSource
	market   MarketLookup
	holdings HoldingCatalog
	log      zerolog.Logger
}

// NewMaterializer creates a new materializer.
func NewMaterializer(
	txs TransactionSource,
	market MarketLookup,
	holdings HoldingCatalog,
	log zerolog.Logger,
) *Materializer {
	return &Materializer{
		txs:      txs,
		market:   market,
		holdings: holdings,
		log:      log.With().Str("component", "materializer").Logger(),
	}
}

// MaterializeDay builds the snapshot for one date. priorCash is the cash
// balance at the end of the previous day; the day's cash chains from it plus
// the day's transaction cash effects.
//
// Holdings whose price or FX rate has never been observed up to the date are
// skipped with a warning and contribute zero, so a late-arriving price feed
// degrades the snapshot instead of blocking it.
func (m *Materializer) MaterializeDay(portfolioID, baseCurrency, date string, priorCash float64) (*Snapshot, error) {
	history, err := m.txs.ListForPortfolioUpTo(portfolioID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction history: %w", err)
	}

	snapshot := &Snapshot{
		PortfolioID: portfolioID,
		Date:        date,
		Cash:        priorCash,
	}

	for i := range history {
		tx := &history[i]
		if tx.Date() != date {
			continue
		}
		snapshot.Cash += tx.CashEffect()
		snapshot.NetFlow += tx.ExternalFlow()
	}

	states := positions.ReplayStates(history)
	if len(states) > 0 {
		holdingMeta, err := m.holdings.HoldingsByID()
		if err != nil {
			return nil, fmt.Errorf("failed to load holdings: %w", err)
		}

		for key, state := range states {
			if state.Quantity <= 0 {
				continue
			}

			holding, ok := holdingMeta[key.HoldingID]
			if !ok {
				m.log.Warn().
					Str("holding_id", key.HoldingID).
					Str("date", date).
					Msg("Unknown holding referenced by ledger, skipping")
				continue
			}

			value, ok, err := m.holdingValue(holding, state.Quantity, baseCurrency, date)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			snapshot.AddClassValue(holding.AssetClass, value)
		}
	}

	snapshot.TotalValue = snapshot.Cash + snapshot.HoldingsValue()
	return snapshot, nil
}

// holdingValue resolves one position's market value in base currency. The
// second return is false when price or FX data is missing for the date.
func (m *Materializer) holdingValue(holding reference.Holding, quantity float64, baseCurrency, date string) (float64, bool, error) {
	close, err := m.market.CloseAsOf(holding.ID, date)
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve price for %s: %w", holding.ID, err)
	}
	if close == nil {
		m.log.Warn().
			Str("holding_id", holding.ID).
			Str("date", date).
			Msg("No price at or before date, holding excluded from snapshot")
		return 0, false, nil
	}

	currency := string(holding.Currency)
	rate, err := m.market.RateAsOf(currency, baseCurrency, date)
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve fx rate %s/%s: %w", currency, baseCurrency, err)
	}
	if rate == nil {
		m.log.Warn().
			Str("holding_id", holding.ID).
			Str("pair", currency+"/"+baseCurrency).
			Str("date", date).
			Msg("No fx rate at or before date, holding excluded from snapshot")
		return 0, false, nil
	}

	return quantity * (*close) * (*rate), true, nil
}
