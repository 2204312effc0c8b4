package marketdata

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newTestHistoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE daily_prices (
			holding_id TEXT NOT NULL,
			date       INTEGER NOT NULL,
			close      REAL NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (holding_id, date)
		);
		CREATE TABLE fx_rates (
			base       TEXT NOT NULL,
			quote      TEXT NOT NULL,
			date       INTEGER NOT NULL,
			rate       REAL NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (base, quote, date)
		);
	`)
	require.NoError(t, err)
	return db
}

func TestPriceCloseAsOfCarryForward(t *testing.T) {
	db := newTestHistoryDB(t)
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewPriceRepository(db, logger)

	require.NoError(t, repo.UpsertBatch([]PricePoint{
		{HoldingID: "h1", Date: "2024-03-14", Close: 100},
		{HoldingID: "h1", Date: "2024-03-15", Close: 105}, // Friday
	}))

	// Exact date.
	close, err := repo.CloseAsOf("h1", "2024-03-15")
	require.NoError(t, err)
	require.NotNil(t, close)
	assert.Equal(t, 105.0, *close)

	// Weekend carries the Friday close forward.
	close, err = repo.CloseAsOf("h1", "2024-03-17")
	require.NoError(t, err)
	require.NotNil(t, close)
	assert.Equal(t, 105.0, *close)

	// Before the first observation there is nothing to carry.
	close, err = repo.CloseAsOf("h1", "2024-03-13")
	require.NoError(t, err)
	assert.Nil(t, close)

	close, err = repo.CloseAsOf("h2", "2024-03-15")
	require.NoError(t, err)
	assert.Nil(t, close)
}

func TestPriceUpsertValidation(t *testing.T) {
	db := newTestHistoryDB(t)
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewPriceRepository(db, logger)

	assert.Error(t, repo.Upsert(PricePoint{HoldingID: "h1", Date: "2024-03-15", Close: 0}))
	assert.Error(t, repo.Upsert(PricePoint{HoldingID: "h1", Date: "bad-date", Close: 100}))

	// Re-upserting the same day replaces, not duplicates.
	require.NoError(t, repo.Upsert(PricePoint{HoldingID: "h1", Date: "2024-03-15", Close: 100}))
	require.NoError(t, repo.Upsert(PricePoint{HoldingID: "h1", Date: "2024-03-15", Close: 101}))

	points, err := repo.GetRange("h1", "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 101.0, points[0].Close)
}

func TestPriceGetRange(t *testing.T) {
	db := newTestHistoryDB(t)
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewPriceRepository(db, logger)

	require.NoError(t, repo.UpsertBatch([]PricePoint{
		{HoldingID: "h1", Date: "2024-03-13", Close: 99},
		{HoldingID: "h1", Date: "2024-03-14", Close: 100},
		{HoldingID: "h1", Date: "2024-03-15", Close: 105},
	}))

	points, err := repo.GetRange("h1", "2024-03-14", "2024-03-15")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2024-03-14", points[0].Date)
	assert.Equal(t, "2024-03-15", points[1].Date)
}

func TestFxRateAsOf(t *testing.T) {
	db := newTestHistoryDB(t)
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewFxRepository(db, logger)

	require.NoError(t, repo.UpsertBatch([]FxPoint{
		{Base: "USD", Quote: "EUR", Date: "2024-03-14", Rate: 0.92},
		{Base: "USD", Quote: "EUR", Date: "2024-03-15", Rate: 0.93},
	}))

	rate, err := repo.RateAsOf("USD", "EUR", "2024-03-15")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.Equal(t, 0.93, *rate)

	// Carry-forward over days with no observation.
	rate, err = repo.RateAsOf("USD", "EUR", "2024-03-18")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.Equal(t, 0.93, *rate)

	// The inverse pair is a separate series.
	rate, err = repo.RateAsOf("EUR", "USD", "2024-03-15")
	require.NoError(t, err)
	assert.Nil(t, rate)

	// Identical currencies always convert at 1.
	rate, err = repo.RateAsOf("EUR", "EUR", "2024-03-15")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.Equal(t, 1.0, *rate)
}

func TestFxUpsertValidation(t *testing.T) {
	db := newTestHistoryDB(t)
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewFxRepository(db, logger)

	assert.Error(t, repo.Upsert(FxPoint{Base: "USD", Quote: "EUR", Date: "2024-03-15", Rate: 0}))
	assert.Error(t, repo.Upsert(FxPoint{Base: "EUR", Quote: "EUR", Date: "2024-03-15", Rate: 1}))
}

func TestLookupMemoizesAndFlushes(t *testing.T) {
	db := newTestHistoryDB(t)
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	prices := NewPriceRepository(db, logger)
	fx := NewFxRepository(db, logger)
	lookup := NewLookup(prices, fx)

	require.NoError(t, prices.Upsert(PricePoint{HoldingID: "h1", Date: "2024-03-15", Close: 100}))

	close, err := lookup.CloseAsOf("h1", "2024-03-15")
	require.NoError(t, err)
	require.NotNil(t, close)
	assert.Equal(t, 100.0, *close)

	// The memo keeps serving the old value until flushed.
	require.NoError(t, prices.Upsert(PricePoint{HoldingID: "h1", Date: "2024-03-15", Close: 200}))
	close, err = lookup.CloseAsOf("h1", "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 100.0, *close)

	lookup.Flush()
	close, err = lookup.CloseAsOf("h1", "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 200.0, *close)
}
