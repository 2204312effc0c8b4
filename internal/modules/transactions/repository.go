package transactions

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/utils"
)

// txColumns is the list of columns for the transactions table.
// Column order must match the scan helpers below.
const txColumns = `id, tx_id, portfolio_id, account_id, holding_id, kind, quantity, price, fee,
	currency, fx_rate, executed_at, transfer_group, note, created_at`

// Repository handles transaction persistence in ledger.db.
// The transactions table is the immutable financial audit trail; every derived
// artifact (positions, snapshots) can be rebuilt from it.
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a new transaction repository.
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "transactions").Logger(),
	}
}

// Create inserts a new transaction. A UUID is assigned when TxID is empty.
func (r *Repository) Create(tx *Transaction) error {
	if tx.TxID == "" {
		tx.TxID = uuid.New().String()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO transactions
		(tx_id, portfolio_id, account_id, holding_id, kind, quantity, price, fee,
		 currency, fx_rate, executed_at, transfer_group, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.ledgerDB.Exec(query,
		tx.TxID,
		tx.PortfolioID,
		tx.AccountID,
		nullString(tx.HoldingID),
		string(tx.Kind),
		tx.Quantity,
		tx.Price,
		tx.Fee,
		strings.ToUpper(tx.Currency),
		tx.FxRate,
		tx.ExecutedAt.Unix(),
		nullString(tx.TransferGroup),
		nullString(tx.Note),
		now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	tx.ID = id
	tx.CreatedAt = now

	r.log.Info().
		Str("tx_id", tx.TxID).
		Str("kind", string(tx.Kind)).
		Str("portfolio", tx.PortfolioID).
		Msg("Transaction created")

	return nil
}

// Update replaces the mutable fields of an existing transaction, identified by
// its tx_id. The created_at and tx_id columns never change.
func (r *Repository) Update(tx *Transaction) error {
	query := `
		UPDATE transactions SET
			portfolio_id = ?, account_id = ?, holding_id = ?, kind = ?,
			quantity = ?, price = ?, fee = ?, currency = ?, fx_rate = ?,
			executed_at = ?, transfer_group = ?, note = ?
		WHERE tx_id = ?
	`

	result, err := r.ledgerDB.Exec(query,
		tx.PortfolioID,
		tx.AccountID,
		nullString(tx.HoldingID),
		string(tx.Kind),
		tx.Quantity,
		tx.Price,
		tx.Fee,
		strings.ToUpper(tx.Currency),
		tx.FxRate,
		tx.ExecutedAt.Unix(),
		nullString(tx.TransferGroup),
		nullString(tx.Note),
		tx.TxID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("transaction %s not found", tx.TxID)
	}

	r.log.Info().Str("tx_id", tx.TxID).Msg("Transaction updated")
	return nil
}

// Delete removes a transaction by tx_id.
func (r *Repository) Delete(txID string) error {
	result, err := r.ledgerDB.Exec("DELETE FROM transactions WHERE tx_id = ?", txID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("transaction %s not found", txID)
	}

	r.log.Info().Str("tx_id", txID).Msg("Transaction deleted")
	return nil
}

// GetByTxID retrieves a transaction by its UUID. Returns nil if not found.
func (r *Repository) GetByTxID(txID string) (*Transaction, error) {
	query := "SELECT " + txColumns + " FROM transactions WHERE tx_id = ?"

	row := r.ledgerDB.QueryRow(query, txID)
	tx, err := scanTransactionRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// ListForPair returns all transactions for an (account, holding) pair in
// replay order: ascending executed_at, ties broken by insertion order so that
// recompute is deterministic.
func (r *Repository) ListForPair(accountID, holdingID string) ([]Transaction, error) {
	query := "SELECT " + txColumns + ` FROM transactions
		WHERE account_id = ? AND holding_id = ?
		ORDER BY executed_at ASC, id ASC`

	rows, err := r.ledgerDB.Query(query, accountID, holdingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pair transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListForPortfolioUpTo returns all of a portfolio's transactions executed at or
// before end of day on the given date, in replay order.
func (r *Repository) ListForPortfolioUpTo(portfolioID, date string) ([]Transaction, error) {
	endUnix, err := utils.EndOfDayUnix(date)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + txColumns + ` FROM transactions
		WHERE portfolio_id = ? AND executed_at <= ?
		ORDER BY executed_at ASC, id ASC`

	rows, err := r.ledgerDB.Query(query, portfolioID, endUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListForPortfolioRange returns a portfolio's transactions within [start, end]
// (whole calendar days, inclusive), in replay order.
func (r *Repository) ListForPortfolioRange(portfolioID, startDate, endDate string) ([]Transaction, error) {
	startUnix, err := utils.DateToUnix(startDate)
	if err != nil {
		return nil, err
	}
	endUnix, err := utils.EndOfDayUnix(endDate)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + txColumns + ` FROM transactions
		WHERE portfolio_id = ? AND executed_at >= ? AND executed_at <= ?
		ORDER BY executed_at ASC, id ASC`

	rows, err := r.ledgerDB.Query(query, portfolioID, startUnix, endUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by range: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// EarliestDate returns the date of the portfolio's first-ever transaction, or
// nil when the portfolio has no transactions.
func (r *Repository) EarliestDate(portfolioID string) (*string, error) {
	var earliest sql.NullInt64
	err := r.ledgerDB.QueryRow(
		"SELECT MIN(executed_at) FROM transactions WHERE portfolio_id = ?",
		portfolioID,
	).Scan(&earliest)
	if err != nil {
		return nil, fmt.Errorf("failed to get earliest transaction date: %w", err)
	}
	if !earliest.Valid {
		return nil, nil
	}

	date := utils.UnixToDate(earliest.Int64)
	return &date, nil
}

// GetByTransferGroup returns both legs of a transfer, in replay order.
func (r *Repository) GetByTransferGroup(groupID string) ([]Transaction, error) {
	query := "SELECT " + txColumns + ` FROM transactions
		WHERE transfer_group = ?
		ORDER BY executed_at ASC, id ASC`

	rows, err := r.ledgerDB.Query(query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer group: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// rowScanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransactionRow(row rowScanner) (*Transaction, error) {
	var tx Transaction
	var holdingID, transferGroup, note sql.NullString
	var executedAt, createdAt int64

	err := row.Scan(
		&tx.ID,
		&tx.TxID,
		&tx.PortfolioID,
		&tx.AccountID,
		&holdingID,
		&tx.Kind,
		&tx.Quantity,
		&tx.Price,
		&tx.Fee,
		&tx.Currency,
		&tx.FxRate,
		&executedAt,
		&transferGroup,
		&note,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	tx.HoldingID = holdingID.String
	tx.TransferGroup = transferGroup.String
	tx.Note = note.String
	tx.ExecutedAt = time.Unix(executedAt, 0).UTC()
	tx.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &tx, nil
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	var txs []Transaction
	for rows.Next() {
		tx, err := scanTransactionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

func nullString(val string) sql.NullString {
	if val == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: val, Valid: true}
}
