// Package marketdata stores the daily close prices and FX rates pushed by the
// external ingestion collaborator, and answers latest-at-or-before lookups
// with weekend/holiday carry-forward.
package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/utils"
)

// PricePoint is one daily close for a holding.
type PricePoint struct {
	HoldingID string  `json:"holding_id"`
	Date      string  `json:"date"`
	Close     float64 `json:"close"`
}

// PriceRepository handles daily close price persistence in history.db.
type PriceRepository struct {
	historyDB *sql.DB
	log       zerolog.Logger
}

// NewPriceRepository creates a new price repository.
func NewPriceRepository(historyDB *sql.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		historyDB: historyDB,
		log:       log.With().Str("repo", "prices").Logger(),
	}
}

// Upsert inserts or replaces a daily close.
func (r *PriceRepository) Upsert(p PricePoint) error {
	if p.Close <= 0 {
		return fmt.Errorf("close price must be positive")
	}

	dateUnix, err := utils.DateToUnix(p.Date)
	if err != nil {
		return err
	}

	_, err = r.historyDB.Exec(
		"INSERT OR REPLACE INTO daily_prices (holding_id, date, close, created_at) VALUES (?, ?, ?, ?)",
		p.HoldingID, dateUnix, p.Close, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily price: %w", err)
	}
	return nil
}

// UpsertBatch inserts or replaces a batch of daily closes in one transaction.
func (r *PriceRepository) UpsertBatch(points []PricePoint) error {
	tx, err := r.historyDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	for _, p := range points {
		if p.Close <= 0 {
			return fmt.Errorf("close price must be positive for %s on %s", p.HoldingID, p.Date)
		}
		dateUnix, err := utils.DateToUnix(p.Date)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO daily_prices (holding_id, date, close, created_at) VALUES (?, ?, ?, ?)",
			p.HoldingID, dateUnix, p.Close, now,
		); err != nil {
			return fmt.Errorf("failed to upsert daily price: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price batch: %w", err)
	}

	r.log.Debug().Int("count", len(points)).Msg("Daily prices upserted")
	return nil
}

// CloseAsOf returns the latest known close at or before the given date, or nil
// when no price has ever been recorded up to that date. Carry-forward over
// closed-market days falls out of the at-or-before semantics.
func (r *PriceRepository) CloseAsOf(holdingID, date string) (*float64, error) {
	endUnix, err := utils.EndOfDayUnix(date)
	if err != nil {
		return nil, err
	}

	var close float64
	err = r.historyDB.QueryRow(`
		SELECT close FROM daily_prices
		WHERE holding_id = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`, holdingID, endUnix).Scan(&close)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query close price: %w", err)
	}

	return &close, nil
}

// GetRange returns a holding's daily closes within [start, end], ascending.
func (r *PriceRepository) GetRange(holdingID, startDate, endDate string) ([]PricePoint, error) {
	startUnix, err := utils.DateToUnix(startDate)
	if err != nil {
		return nil, err
	}
	endUnix, err := utils.EndOfDayUnix(endDate)
	if err != nil {
		return nil, err
	}

	rows, err := r.historyDB.Query(`
		SELECT holding_id, date, close FROM daily_prices
		WHERE holding_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, holdingID, startUnix, endUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to query price range: %w", err)
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var p PricePoint
		var dateUnix int64
		if err := rows.Scan(&p.HoldingID, &dateUnix, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		p.Date = utils.UnixToDate(dateUnix)
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price points: %w", err)
	}
	return points, nil
}
