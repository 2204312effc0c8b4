package positions

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles position persistence in portfolio.db.
type Repository struct {
	portfolioDB *sql.DB
	log         zerolog.Logger
}

// NewRepository creates a new position repository.
func NewRepository(portfolioDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		portfolioDB: portfolioDB,
		log:         log.With().Str("repo", "positions").Logger(),
	}
}

const positionColumns = `account_id, holding_id, quantity, avg_cost, avg_cost_base, cost_currency, last_updated`

// Get returns the position for an (account, holding) pair, or nil if none
// exists. A missing row and a zero-quantity row are equivalent.
func (r *Repository) Get(accountID, holdingID string) (*Position, error) {
	query := "SELECT " + positionColumns + ` FROM positions
		WHERE account_id = ? AND holding_id = ?`

	var pos Position
	var lastUpdated int64
	err := r.portfolioDB.QueryRow(query, accountID, holdingID).Scan(
		&pos.AccountID,
		&pos.HoldingID,
		&pos.Quantity,
		&pos.AvgCost,
		&pos.AvgCostBase,
		&pos.CostCurrency,
		&lastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	pos.LastUpdated = time.Unix(lastUpdated, 0).UTC()
	return &pos, nil
}

// Quantity returns the held quantity for a pair (0 when no position exists).
func (r *Repository) Quantity(accountID, holdingID string) (float64, error) {
	pos, err := r.Get(accountID, holdingID)
	if err != nil {
		return 0, err
	}
	if pos == nil {
		return 0, nil
	}
	return pos.Quantity, nil
}

// CostBasis returns the held quantity and per-unit average costs for a pair.
// All zeros when no position exists.
func (r *Repository) CostBasis(accountID, holdingID string) (quantity, avgCost, avgCostBase float64, err error) {
	pos, err := r.Get(accountID, holdingID)
	if err != nil {
		return 0, 0, 0, err
	}
	if pos == nil {
		return 0, 0, 0, nil
	}
	return pos.Quantity, pos.AvgCost, pos.AvgCostBase, nil
}

// GetAllForAccount returns all positions of an account.
func (r *Repository) GetAllForAccount(accountID string) ([]Position, error) {
	query := "SELECT " + positionColumns + ` FROM positions
		WHERE account_id = ? ORDER BY holding_id ASC`

	rows, err := r.portfolioDB.Query(query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	return r.scanPositions(rows)
}

// GetAllForAccounts returns all positions across the given accounts.
func (r *Repository) GetAllForAccounts(accountIDs []string) ([]Position, error) {
	var all []Position
	for _, accountID := range accountIDs {
		positions, err := r.GetAllForAccount(accountID)
		if err != nil {
			return nil, err
		}
		all = append(all, positions...)
	}
	return all, nil
}

// Upsert inserts or replaces a position row.
func (r *Repository) Upsert(pos Position) error {
	if pos.AccountID == "" || pos.HoldingID == "" {
		return fmt.Errorf("account_id and holding_id are required for position upsert")
	}

	query := `
		INSERT OR REPLACE INTO positions
		(account_id, holding_id, quantity, avg_cost, avg_cost_base, cost_currency, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.portfolioDB.Exec(query,
		pos.AccountID,
		pos.HoldingID,
		pos.Quantity,
		pos.AvgCost,
		pos.AvgCostBase,
		pos.CostCurrency,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}

	r.log.Debug().
		Str("account", pos.AccountID).
		Str("holding", pos.HoldingID).
		Float64("quantity", pos.Quantity).
		Msg("Position upserted")

	return nil
}

// Delete removes a position row.
func (r *Repository) Delete(accountID, holdingID string) error {
	_, err := r.portfolioDB.Exec(
		"DELETE FROM positions WHERE account_id = ? AND holding_id = ?",
		accountID, holdingID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

func (r *Repository) scanPositions(rows *sql.Rows) ([]Position, error) {
	var positions []Position
	for rows.Next() {
		var pos Position
		var lastUpdated int64
		err := rows.Scan(
			&pos.AccountID,
			&pos.HoldingID,
			&pos.Quantity,
			&pos.AvgCost,
			&pos.AvgCostBase,
			&pos.CostCurrency,
			&lastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		pos.LastUpdated = time.Unix(lastUpdated, 0).UTC()
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}
