package valuation

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/utils"
)

// BaseCurrencySource resolves a portfolio's base currency.
type BaseCurrencySource interface {
	BaseCurrency(portfolioID string) (string, error)
}

// EarliestDateSource resolves the date of a portfolio's first transaction.
type EarliestDateSource interface {
	EarliestDate(portfolioID string) (*string, error)
}

// CacheInvalidator drops derived figures that depend on the snapshot series.
// The returns module plugs in here so stale cached returns never outlive a
// rematerialization.
type CacheInvalidator interface {
	InvalidatePortfolio(portfolioID string) error
}

// Rematerializer regenerates the snapshot series from a given date forward.
// Each portfolio is serialized behind its own lock so concurrent edits to the
// same portfolio cannot interleave their delete/regenerate windows, while
// different portfolios rematerialize in parallel.
type Rematerializer struct {
	materializer *Materializer
	snapshots    *SnapshotRepository
	reference    BaseCurrencySource
	earliest     EarliestDateSource
	invalidator  CacheInvalidator
	log          zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRematerializer creates a new rematerializer. invalidator may be nil.
func NewRematerializer(
	materializer *Materializer,
	snapshots *SnapshotRepository,
	reference BaseCurrencySource,
	earliest EarliestDateSource,
	invalidator CacheInvalidator,
	log zerolog.Logger,
) *Rematerializer {
	return &Rematerializer{
		materializer: materializer,
		snapshots:    snapshots,
		reference:    reference,
		earliest:     earliest,
		invalidator:  invalidator,
		log:          log.With().Str("component", "rematerializer").Logger(),
		locks:        make(map[string]*sync.Mutex),
	}
}

// portfolioLock returns the mutex serializing one portfolio's windows.
func (r *Rematerializer) portfolioLock(portfolioID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[portfolioID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[portfolioID] = lock
	}
	return lock
}

// Rematerialize deletes snapshots from fromDate forward and regenerates them
// day by day through endDate, chaining each day's cash from the previous
// snapshot. Running it twice over the same window produces identical rows.
//
// fromDate is clamped to the portfolio's first transaction date, and never
// starts later than the day after the latest existing snapshot, so the series
// stays contiguous. A portfolio with no transactions has nothing to
// materialize.
func (r *Rematerializer) Rematerialize(portfolioID, fromDate, endDate string) error {
	lock := r.portfolioLock(portfolioID)
	lock.Lock()
	defer lock.Unlock()

	timer := utils.NewTimer("rematerialize "+portfolioID, r.log)
	defer timer.Stop()

	earliest, err := r.earliest.EarliestDate(portfolioID)
	if err != nil {
		return fmt.Errorf("failed to resolve earliest transaction date: %w", err)
	}
	if earliest == nil {
		r.log.Debug().Str("portfolio_id", portfolioID).Msg("No transactions, nothing to materialize")
		return nil
	}
	if fromDate == "" || fromDate < *earliest {
		fromDate = *earliest
	}

	// A window starting past the end of the existing series would leave the
	// days in between permanently unmaterialized; pull the start back so the
	// series stays gap-free.
	latest, err := r.snapshots.GetLatestDate(portfolioID)
	if err != nil {
		return err
	}
	if latest != nil {
		if next := utils.NextDate(*latest); fromDate > next {
			fromDate = next
		}
	}

	if endDate == "" {
		endDate = utils.Today()
	}
	if endDate < fromDate {
		return nil
	}

	baseCurrency, err := r.reference.BaseCurrency(portfolioID)
	if err != nil {
		return fmt.Errorf("failed to resolve base currency: %w", err)
	}

	deleted, err := r.snapshots.DeleteFrom(portfolioID, fromDate)
	if err != nil {
		return err
	}

	// Anchor the cash chain on the last surviving snapshot.
	priorCash := 0.0
	prevDate := utils.PrevDate(fromDate)
	if anchor, err := r.snapshots.GetLatestAt(portfolioID, prevDate); err != nil {
		return err
	} else if anchor != nil {
		priorCash = anchor.Cash
	}

	dates := utils.DateRange(fromDate, endDate)
	for _, date := range dates {
		snapshot, err := r.materializer.MaterializeDay(portfolioID, baseCurrency, date, priorCash)
		if err != nil {
			return fmt.Errorf("failed to materialize %s: %w", date, err)
		}
		if err := r.snapshots.Upsert(*snapshot); err != nil {
			return err
		}
		priorCash = snapshot.Cash
	}

	r.log.Info().
		Str("portfolio_id", portfolioID).
		Str("from", fromDate).
		Str("to", endDate).
		Int64("deleted", deleted).
		Int("materialized", len(dates)).
		Msg("Snapshot series rematerialized")

	if r.invalidator != nil {
		if err := r.invalidator.InvalidatePortfolio(portfolioID); err != nil {
			r.log.Warn().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to invalidate derived caches")
		}
	}
	return nil
}

// ExtendToToday materializes any days missing between the latest snapshot and
// today. Nightly job entry point; new portfolios fall back to a full build.
func (r *Rematerializer) ExtendToToday(portfolioID string) error {
	latest, err := r.snapshots.GetLatestDate(portfolioID)
	if err != nil {
		return err
	}

	fromDate := ""
	if latest != nil {
		today := utils.Today()
		if *latest >= today {
			return nil
		}
		fromDate = utils.NextDate(*latest)
	}
	return r.Rematerialize(portfolioID, fromDate, "")
}
