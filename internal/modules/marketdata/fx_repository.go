package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/utils"
)

// FxPoint is one daily FX rate: 1 unit of Base = Rate units of Quote.
type FxPoint struct {
	Base  string  `json:"base"`
	Quote string  `json:"quote"`
	Date  string  `json:"date"`
	Rate  float64 `json:"rate"`
}

// FxRepository handles FX rate persistence in history.db.
type FxRepository struct {
	historyDB *sql.DB
	log       zerolog.Logger
}

// NewFxRepository creates a new FX repository.
func NewFxRepository(historyDB *sql.DB, log zerolog.Logger) *FxRepository {
	return &FxRepository{
		historyDB: historyDB,
		log:       log.With().Str("repo", "fx").Logger(),
	}
}

// Upsert inserts or replaces one daily rate.
func (r *FxRepository) Upsert(p FxPoint) error {
	if p.Rate <= 0 {
		return fmt.Errorf("fx rate must be positive")
	}
	if p.Base == p.Quote {
		return fmt.Errorf("base and quote currency must differ")
	}

	dateUnix, err := utils.DateToUnix(p.Date)
	if err != nil {
		return err
	}

	_, err = r.historyDB.Exec(
		"INSERT OR REPLACE INTO fx_rates (base, quote, date, rate, created_at) VALUES (?, ?, ?, ?, ?)",
		p.Base, p.Quote, dateUnix, p.Rate, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fx rate: %w", err)
	}
	return nil
}

// UpsertBatch inserts or replaces a batch of rates in one transaction.
func (r *FxRepository) UpsertBatch(points []FxPoint) error {
	tx, err := r.historyDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	for _, p := range points {
		if p.Rate <= 0 {
			return fmt.Errorf("fx rate must be positive for %s/%s on %s", p.Base, p.Quote, p.Date)
		}
		dateUnix, err := utils.DateToUnix(p.Date)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO fx_rates (base, quote, date, rate, created_at) VALUES (?, ?, ?, ?, ?)",
			p.Base, p.Quote, dateUnix, p.Rate, now,
		); err != nil {
			return fmt.Errorf("failed to upsert fx rate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fx batch: %w", err)
	}

	r.log.Debug().Int("count", len(points)).Msg("FX rates upserted")
	return nil
}

// RateAsOf returns the latest known rate at or before the given date, or nil
// when no rate has ever been recorded up to that date. Identical currencies
// always convert at 1 without touching the database.
func (r *FxRepository) RateAsOf(base, quote, date string) (*float64, error) {
	if base == quote {
		one := 1.0
		return &one, nil
	}

	endUnix, err := utils.EndOfDayUnix(date)
	if err != nil {
		return nil, err
	}

	var rate float64
	err = r.historyDB.QueryRow(`
		SELECT rate FROM fx_rates
		WHERE base = ? AND quote = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`, base, quote, endUnix).Scan(&rate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query fx rate: %w", err)
	}

	return &rate, nil
}

// GetRange returns a pair's daily rates within [start, end], ascending.
func (r *FxRepository) GetRange(base, quote, startDate, endDate string) ([]FxPoint, error) {
	startUnix, err := utils.DateToUnix(startDate)
	if err != nil {
		return nil, err
	}
	endUnix, err := utils.EndOfDayUnix(endDate)
	if err != nil {
		return nil, err
	}

	rows, err := r.historyDB.Query(`
		SELECT base, quote, date, rate FROM fx_rates
		WHERE base = ? AND quote = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, base, quote, startUnix, endUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to query fx range: %w", err)
	}
	defer rows.Close()

	var points []FxPoint
	for rows.Next() {
		var p FxPoint
		var dateUnix int64
		if err := rows.Scan(&p.Base, &p.Quote, &dateUnix, &p.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan fx point: %w", err)
		}
		p.Date = utils.UnixToDate(dateUnix)
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fx points: %w", err)
	}
	return points, nil
}
