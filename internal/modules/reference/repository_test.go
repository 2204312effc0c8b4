package reference

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/domain"

	_ "modernc.org/sqlite"
)

func newTestReferenceRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE portfolios (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			base_currency TEXT NOT NULL,
			created_at    INTEGER NOT NULL
		);
		CREATE TABLE accounts (
			id           TEXT PRIMARY KEY,
			portfolio_id TEXT NOT NULL,
			name         TEXT NOT NULL,
			created_at   INTEGER NOT NULL
		);
		CREATE TABLE holdings (
			id          TEXT PRIMARY KEY,
			symbol      TEXT NOT NULL,
			name        TEXT NOT NULL,
			asset_class TEXT NOT NULL,
			currency    TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	return NewRepository(db, logger)
}

func TestPortfolioLifecycle(t *testing.T) {
	repo := newTestReferenceRepo(t)

	p := &Portfolio{Name: "Family", BaseCurrency: domain.CurrencyEUR}
	require.NoError(t, repo.CreatePortfolio(p))
	assert.NotEmpty(t, p.ID)

	got, err := repo.GetPortfolio(p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Family", got.Name)
	assert.Equal(t, domain.CurrencyEUR, got.BaseCurrency)

	missing, err := repo.GetPortfolio("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	currency, err := repo.BaseCurrency(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "EUR", currency)

	_, err = repo.BaseCurrency("nope")
	assert.Error(t, err)

	ids, err := repo.PortfolioIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, ids)

	// Missing base currency is rejected up front.
	assert.Error(t, repo.CreatePortfolio(&Portfolio{Name: "broken"}))
}

func TestAccountLifecycle(t *testing.T) {
	repo := newTestReferenceRepo(t)

	p := &Portfolio{Name: "Family", BaseCurrency: domain.CurrencyEUR}
	require.NoError(t, repo.CreatePortfolio(p))

	a := &Account{PortfolioID: p.ID, Name: "broker"}
	require.NoError(t, repo.CreateAccount(a))
	b := &Account{PortfolioID: p.ID, Name: "pension"}
	require.NoError(t, repo.CreateAccount(b))

	got, err := repo.GetAccount(a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.PortfolioID)

	accounts, err := repo.ListAccounts(p.ID)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	ids, err := repo.AccountIDs(p.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	assert.Error(t, repo.CreateAccount(&Account{Name: "orphan"}))
}

func TestHoldingLifecycle(t *testing.T) {
	repo := newTestReferenceRepo(t)

	h := &Holding{Symbol: " acme ", Name: "Acme Corp", AssetClass: domain.AssetClassEquity, Currency: domain.CurrencyUSD}
	require.NoError(t, repo.CreateHolding(h))
	// Symbols are canonicalized on write.
	assert.Equal(t, "ACME", h.Symbol)

	got, err := repo.GetHolding(h.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.AssetClassEquity, got.AssetClass)

	byID, err := repo.HoldingsByID()
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "ACME", byID[h.ID].Symbol)

	assert.Error(t, repo.CreateHolding(&Holding{Symbol: "X", AssetClass: "derivative", Currency: domain.CurrencyUSD}))
	assert.Error(t, repo.CreateHolding(&Holding{Symbol: "X", AssetClass: domain.AssetClassEquity}))
}
