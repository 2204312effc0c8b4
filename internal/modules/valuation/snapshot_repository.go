package valuation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/utils"
)

const snapshotColumns = `portfolio_id, date, total_value, cash, equity_value,
	fund_value, bond_value, crypto_value, commodity_value, net_flow, created_at`

// SnapshotRepository handles daily snapshot persistence in portfolio.db.
type SnapshotRepository struct {
	portfolioDB *sql.DB
	log         zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(portfolioDB *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		portfolioDB: portfolioDB,
		log:         log.With().Str("repo", "snapshots").Logger(),
	}
}

// Upsert inserts or replaces one snapshot row.
func (r *SnapshotRepository) Upsert(s Snapshot) error {
	dateUnix, err := utils.DateToUnix(s.Date)
	if err != nil {
		return err
	}

	_, err = r.portfolioDB.Exec(`
		INSERT OR REPLACE INTO daily_snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.PortfolioID, dateUnix, s.TotalValue, s.Cash, s.EquityValue,
		s.FundValue, s.BondValue, s.CryptoValue, s.CommodityValue, s.NetFlow,
		time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// Get returns the snapshot for an exact date, or nil when none exists.
func (r *SnapshotRepository) Get(portfolioID, date string) (*Snapshot, error) {
	dateUnix, err := utils.DateToUnix(date)
	if err != nil {
		return nil, err
	}

	row := r.portfolioDB.QueryRow(`
		SELECT `+snapshotColumns+` FROM daily_snapshots
		WHERE portfolio_id = ? AND date = ?
	`, portfolioID, dateUnix)
	return scanSnapshotRow(row)
}

// GetLatestAt returns the most recent snapshot at or before the given date, or
// nil when the series has no row that early.
func (r *SnapshotRepository) GetLatestAt(portfolioID, date string) (*Snapshot, error) {
	endUnix, err := utils.EndOfDayUnix(date)
	if err != nil {
		return nil, err
	}

	row := r.portfolioDB.QueryRow(`
		SELECT `+snapshotColumns+` FROM daily_snapshots
		WHERE portfolio_id = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`, portfolioID, endUnix)
	return scanSnapshotRow(row)
}

// GetLatestDate returns the most recent materialized date, or nil when the
// portfolio has no snapshots at all.
func (r *SnapshotRepository) GetLatestDate(portfolioID string) (*string, error) {
	var dateUnix sql.NullInt64
	err := r.portfolioDB.QueryRow(
		"SELECT MAX(date) FROM daily_snapshots WHERE portfolio_id = ?",
		portfolioID,
	).Scan(&dateUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot date: %w", err)
	}
	if !dateUnix.Valid {
		return nil, nil
	}

	date := utils.UnixToDate(dateUnix.Int64)
	return &date, nil
}

// GetRange returns snapshots within [start, end], ascending by date.
func (r *SnapshotRepository) GetRange(portfolioID, startDate, endDate string) ([]Snapshot, error) {
	startUnix, err := utils.DateToUnix(startDate)
	if err != nil {
		return nil, err
	}
	endUnix, err := utils.EndOfDayUnix(endDate)
	if err != nil {
		return nil, err
	}

	rows, err := r.portfolioDB.Query(`
		SELECT `+snapshotColumns+` FROM daily_snapshots
		WHERE portfolio_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, portfolioID, startUnix, endUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// DeleteFrom removes every snapshot at or after the given date. Called by the
// rematerializer before regenerating a stale window.
func (r *SnapshotRepository) DeleteFrom(portfolioID, fromDate string) (int64, error) {
	fromUnix, err := utils.DateToUnix(fromDate)
	if err != nil {
		return 0, err
	}

	result, err := r.portfolioDB.Exec(
		"DELETE FROM daily_snapshots WHERE portfolio_id = ? AND date >= ?",
		portfolioID, fromUnix,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale snapshots: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshotRow(row rowScanner) (*Snapshot, error) {
	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var s Snapshot
	var dateUnix int64
	err := row.Scan(&s.PortfolioID, &dateUnix, &s.TotalValue, &s.Cash,
		&s.EquityValue, &s.FundValue, &s.BondValue, &s.CryptoValue,
		&s.CommodityValue, &s.NetFlow, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	s.Date = utils.UnixToDate(dateUnix)
	return &s, nil
}
