package marketdata

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Lookup memoizes as-of price and FX resolutions in front of the repositories.
// Rematerializing a long window hits the same (holding, date) pairs over and
// over, so even a short TTL removes most of the query load. The cache is
// flushed whenever new market data is ingested.
type Lookup struct {
	prices *PriceRepository
	fx     *FxRepository
	memo   *gocache.Cache
}

// NewLookup creates a cached lookup over the given repositories.
func NewLookup(prices *PriceRepository, fx *FxRepository) *Lookup {
	return &Lookup{
		prices: prices,
		fx:     fx,
		memo:   gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// CloseAsOf returns the latest close at or before date, or nil when unknown.
func (l *Lookup) CloseAsOf(holdingID, date string) (*float64, error) {
	key := fmt.Sprintf("px:%s:%s", holdingID, date)
	if cached, found := l.memo.Get(key); found {
		return cached.(*float64), nil
	}

	close, err := l.prices.CloseAsOf(holdingID, date)
	if err != nil {
		return nil, err
	}

	l.memo.Set(key, close, gocache.DefaultExpiration)
	return close, nil
}

// RateAsOf returns the latest rate at or before date, or nil when unknown.
func (l *Lookup) RateAsOf(base, quote, date string) (*float64, error) {
	if base == quote {
		one := 1.0
		return &one, nil
	}

	key := fmt.Sprintf("fx:%s:%s:%s", base, quote, date)
	if cached, found := l.memo.Get(key); found {
		return cached.(*float64), nil
	}

	rate, err := l.fx.RateAsOf(base, quote, date)
	if err != nil {
		return nil, err
	}

	l.memo.Set(key, rate, gocache.DefaultExpiration)
	return rate, nil
}

// Flush drops all memoized lookups. Called after ingestion so fresh data is
// visible to the next materialization pass.
func (l *Lookup) Flush() {
	l.memo.Flush()
}
