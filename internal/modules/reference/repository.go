package reference

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository handles portfolio, account, and holding persistence in
// portfolio.db.
type Repository struct {
	portfolioDB *sql.DB
	log         zerolog.Logger
}

// NewRepository creates a new reference data repository.
func NewRepository(portfolioDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		portfolioDB: portfolioDB,
		log:         log.With().Str("repo", "reference").Logger(),
	}
}

// CreatePortfolio inserts a new portfolio. An ID is assigned when empty.
func (r *Repository) CreatePortfolio(p *Portfolio) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.BaseCurrency == "" {
		return fmt.Errorf("base_currency is required")
	}
	p.CreatedAt = time.Now().UTC()

	_, err := r.portfolioDB.Exec(
		"INSERT INTO portfolios (id, name, base_currency, created_at) VALUES (?, ?, ?, ?)",
		p.ID, p.Name, string(p.BaseCurrency), p.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	r.log.Info().Str("portfolio", p.ID).Msg("Portfolio created")
	return nil
}

// GetPortfolio returns a portfolio by ID, or nil if not found.
func (r *Repository) GetPortfolio(id string) (*Portfolio, error) {
	var p Portfolio
	var createdAt int64
	err := r.portfolioDB.QueryRow(
		"SELECT id, name, base_currency, created_at FROM portfolios WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.BaseCurrency, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

// ListPortfolios returns all portfolios.
func (r *Repository) ListPortfolios() ([]Portfolio, error) {
	rows, err := r.portfolioDB.Query(
		"SELECT id, name, base_currency, created_at FROM portfolios ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []Portfolio
	for rows.Next() {
		var p Portfolio
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Name, &p.BaseCurrency, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		portfolios = append(portfolios, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return portfolios, nil
}

// PortfolioIDs returns every portfolio id.
func (r *Repository) PortfolioIDs() ([]string, error) {
	rows, err := r.portfolioDB.Query("SELECT id FROM portfolios ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio ids: %w", err)
	}
	return ids, nil
}

// BaseCurrency returns a portfolio's base currency.
func (r *Repository) BaseCurrency(portfolioID string) (string, error) {
	p, err := r.GetPortfolio(portfolioID)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", fmt.Errorf("portfolio %s not found", portfolioID)
	}
	return string(p.BaseCurrency), nil
}

// CreateAccount inserts a new account. An ID is assigned when empty.
func (r *Repository) CreateAccount(a *Account) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.PortfolioID == "" {
		return fmt.Errorf("portfolio_id is required")
	}
	a.CreatedAt = time.Now().UTC()

	_, err := r.portfolioDB.Exec(
		"INSERT INTO accounts (id, portfolio_id, name, created_at) VALUES (?, ?, ?, ?)",
		a.ID, a.PortfolioID, a.Name, a.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	r.log.Info().Str("account", a.ID).Str("portfolio", a.PortfolioID).Msg("Account created")
	return nil
}

// GetAccount returns an account by ID, or nil if not found.
func (r *Repository) GetAccount(id string) (*Account, error) {
	var a Account
	var createdAt int64
	err := r.portfolioDB.QueryRow(
		"SELECT id, portfolio_id, name, created_at FROM accounts WHERE id = ?", id,
	).Scan(&a.ID, &a.PortfolioID, &a.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &a, nil
}

// ListAccounts returns all accounts of a portfolio.
func (r *Repository) ListAccounts(portfolioID string) ([]Account, error) {
	rows, err := r.portfolioDB.Query(
		"SELECT id, portfolio_id, name, created_at FROM accounts WHERE portfolio_id = ? ORDER BY name ASC",
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.PortfolioID, &a.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// CreateHolding inserts a new holding. An ID is assigned when empty.
func (r *Repository) CreateHolding(h *Holding) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if !h.AssetClass.Valid() {
		return fmt.Errorf("invalid asset class: %q", h.AssetClass)
	}
	if h.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	h.CreatedAt = time.Now().UTC()

	_, err := r.portfolioDB.Exec(
		"INSERT INTO holdings (id, symbol, name, asset_class, currency, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		h.ID, h.Symbol, h.Name, string(h.AssetClass), string(h.Currency), h.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create holding: %w", err)
	}

	r.log.Info().Str("holding", h.ID).Str("symbol", h.Symbol).Msg("Holding created")
	return nil
}

// GetHolding returns a holding by ID, or nil if not found.
func (r *Repository) GetHolding(id string) (*Holding, error) {
	var h Holding
	var createdAt int64
	err := r.portfolioDB.QueryRow(
		"SELECT id, symbol, name, asset_class, currency, created_at FROM holdings WHERE id = ?", id,
	).Scan(&h.ID, &h.Symbol, &h.Name, &h.AssetClass, &h.Currency, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	h.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &h, nil
}

// ListHoldings returns all holdings.
func (r *Repository) ListHoldings() ([]Holding, error) {
	rows, err := r.portfolioDB.Query(
		"SELECT id, symbol, name, asset_class, currency, created_at FROM holdings ORDER BY symbol ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		var h Holding
		var createdAt int64
		if err := rows.Scan(&h.ID, &h.Symbol, &h.Name, &h.AssetClass, &h.Currency, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.CreatedAt = time.Unix(createdAt, 0).UTC()
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// HoldingsByID returns all holdings keyed by ID, for valuation lookups.
func (r *Repository) HoldingsByID() (map[string]Holding, error) {
	holdings, err := r.ListHoldings()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Holding, len(holdings))
	for _, h := range holdings {
		byID[h.ID] = h
	}
	return byID, nil
}

// AccountIDs returns the IDs of a portfolio's accounts.
func (r *Repository) AccountIDs(portfolioID string) ([]string, error) {
	accounts, err := r.ListAccounts(portfolioID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	return ids, nil
}
