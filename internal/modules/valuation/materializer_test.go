package valuation

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/domain"
	"github.com/quantfolio/quantfolio/internal/modules/reference"
	"github.com/quantfolio/quantfolio/internal/modules/transactions"
	"github.com/quantfolio/quantfolio/internal/utils"
)

type mockTxSource struct {
	txs []transactions.Transaction
}

func (m *mockTxSource) ListForPortfolioUpTo(portfolioID, date string) ([]transactions.Transaction, error) {
	var out []transactions.Transaction
	for _, tx := range m.txs {
		if tx.PortfolioID == portfolioID && tx.Date() <= date {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *mockTxSource) EarliestDate(portfolioID string) (*string, error) {
	var earliest *string
	for _, tx := range m.txs {
		if tx.PortfolioID != portfolioID {
			continue
		}
		date := tx.Date()
		if earliest == nil || date < *earliest {
			earliest = &date
		}
	}
	return earliest, nil
}

type mockMarket struct {
	closes map[string]float64 // holding -> constant close
	rates  map[string]float64 // "BASE/QUOTE" -> constant rate
}

func (m *mockMarket) CloseAsOf(holdingID, date string) (*float64, error) {
	if v, ok := m.closes[holdingID]; ok {
		return &v, nil
	}
	return nil, nil
}

func (m *mockMarket) RateAsOf(base, quote, date string) (*float64, error) {
	if base == quote {
		one := 1.0
		return &one, nil
	}
	if v, ok := m.rates[base+"/"+quote]; ok {
		return &v, nil
	}
	return nil, nil
}

type mockCatalog struct {
	holdings map[string]reference.Holding
}

func (m *mockCatalog) HoldingsByID() (map[string]reference.Holding, error) {
	return m.holdings, nil
}

func txOn(kind transactions.Kind, date, holdingID string, qty, price, fxRate float64) transactions.Transaction {
	executedAt, _ := time.Parse(utils.DateLayout, date)
	return transactions.Transaction{
		PortfolioID: "p1",
		AccountID:   "a1",
		HoldingID:   holdingID,
		Kind:        kind,
		Quantity:    qty,
		Price:       price,
		Currency:    "EUR",
		FxRate:      fxRate,
		ExecutedAt:  executedAt,
	}
}

func equityHolding(id string, currency domain.Currency) reference.Holding {
	return reference.Holding{ID: id, Symbol: id, Name: id, AssetClass: domain.AssetClassEquity, Currency: currency}
}

func TestMaterializeDayCashAndFlow(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	txs := &mockTxSource{txs: []transactions.Transaction{
		txOn(transactions.KindDeposit, "2024-03-10", "", 1000, 1, 1),
		txOn(transactions.KindBuy, "2024-03-11", "h1", 5, 100, 1),
	}}
	market := &mockMarket{closes: map[string]float64{"h1": 100}}
	catalog := &mockCatalog{holdings: map[string]reference.Holding{
		"h1": equityHolding("h1", domain.CurrencyEUR),
	}}
	m := NewMaterializer(txs, market, catalog, logger)

	day1, err := m.MaterializeDay("p1", "EUR", "2024-03-10", 0)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, day1.Cash)
	assert.Equal(t, 1000.0, day1.NetFlow)
	assert.Equal(t, 1000.0, day1.TotalValue)

	// Day two chains cash from day one; the buy converts cash to equity.
	day2, err := m.MaterializeDay("p1", "EUR", "2024-03-11", day1.Cash)
	require.NoError(t, err)
	assert.Equal(t, 500.0, day2.Cash)
	assert.Equal(t, 0.0, day2.NetFlow)
	assert.Equal(t, 500.0, day2.EquityValue)
	assert.Equal(t, 1000.0, day2.TotalValue)
}

func TestMaterializeDayConvertsForeignHoldings(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	txs := &mockTxSource{txs: []transactions.Transaction{
		txOn(transactions.KindBuy, "2024-03-11", "h1", 10, 50, 0.9),
	}}
	market := &mockMarket{
		closes: map[string]float64{"h1": 60},
		rates:  map[string]float64{"USD/EUR": 0.9},
	}
	catalog := &mockCatalog{holdings: map[string]reference.Holding{
		"h1": equityHolding("h1", domain.CurrencyUSD),
	}}
	m := NewMaterializer(txs, market, catalog, logger)

	s, err := m.MaterializeDay("p1", "EUR", "2024-03-11", 1000)
	require.NoError(t, err)
	// 10 x 60 USD x 0.9 = 540 EUR.
	assert.InDelta(t, 540, s.EquityValue, 1e-9)
}

func TestMaterializeDaySkipsMissingMarketData(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	txs := &mockTxSource{txs: []transactions.Transaction{
		txOn(transactions.KindBuy, "2024-03-11", "h1", 5, 100, 1),
		txOn(transactions.KindBuy, "2024-03-11", "h2", 5, 100, 1),
	}}
	// h2 has no price series at all; h1 is valued normally.
	market := &mockMarket{closes: map[string]float64{"h1": 100}}
	catalog := &mockCatalog{holdings: map[string]reference.Holding{
		"h1": equityHolding("h1", domain.CurrencyEUR),
		"h2": equityHolding("h2", domain.CurrencyEUR),
	}}
	m := NewMaterializer(txs, market, catalog, logger)

	s, err := m.MaterializeDay("p1", "EUR", "2024-03-11", 0)
	require.NoError(t, err)
	assert.Equal(t, 500.0, s.EquityValue)

	// A holding in a currency with no fx series is skipped the same way.
	txs.txs = []transactions.Transaction{
		txOn(transactions.KindBuy, "2024-03-11", "h3", 5, 100, 1),
	}
	market.closes["h3"] = 100
	catalog.holdings["h3"] = equityHolding("h3", domain.CurrencyCHF)

	s, err = m.MaterializeDay("p1", "EUR", "2024-03-11", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.EquityValue)
}

func TestMaterializeDayAssetClassBuckets(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	fund := reference.Holding{ID: "f1", AssetClass: domain.AssetClassFund, Currency: domain.CurrencyEUR}
	txs := &mockTxSource{txs: []transactions.Transaction{
		txOn(transactions.KindBuy, "2024-03-11", "h1", 5, 100, 1),
		txOn(transactions.KindBuy, "2024-03-11", "f1", 2, 250, 1),
	}}
	market := &mockMarket{closes: map[string]float64{"h1": 100, "f1": 250}}
	catalog := &mockCatalog{holdings: map[string]reference.Holding{
		"h1": equityHolding("h1", domain.CurrencyEUR),
		"f1": fund,
	}}
	m := NewMaterializer(txs, market, catalog, logger)

	s, err := m.MaterializeDay("p1", "EUR", "2024-03-11", 0)
	require.NoError(t, err)
	assert.Equal(t, 500.0, s.EquityValue)
	assert.Equal(t, 500.0, s.FundValue)
	assert.Equal(t, 1000.0, s.HoldingsValue())
}

func TestMaterializeDayIgnoresSoldOutPositions(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	txs := &mockTxSource{txs: []transactions.Transaction{
		txOn(transactions.KindBuy, "2024-03-10", "h1", 5, 100, 1),
		txOn(transactions.KindSell, "2024-03-11", "h1", 5, 110, 1),
	}}
	market := &mockMarket{closes: map[string]float64{"h1": 110}}
	catalog := &mockCatalog{holdings: map[string]reference.Holding{
		"h1": equityHolding("h1", domain.CurrencyEUR),
	}}
	m := NewMaterializer(txs, market, catalog, logger)

	s, err := m.MaterializeDay("p1", "EUR", "2024-03-11", -500)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.HoldingsValue())
	// -500 prior cash plus 550 sale proceeds.
	assert.InDelta(t, 50, s.Cash, 1e-9)
}
