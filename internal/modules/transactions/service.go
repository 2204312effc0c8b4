package transactions

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/modules/reference"
)

// PositionLedger applies and reverses transaction effects on position rows.
type PositionLedger interface {
	Apply(tx Transaction) error
	Reverse(tx Transaction) error
	Recompute(accountID, holdingID string) error
}

// CostBasisSource exposes the current cost basis of a pair. Transfers price
// their legs at the source position's average cost so cost history survives
// the move.
type CostBasisSource interface {
	CostBasis(accountID, holdingID string) (quantity, avgCost, avgCostBase float64, err error)
}

// ReferenceSource resolves accounts and holdings for validation.
type ReferenceSource interface {
	GetAccount(id string) (*reference.Account, error)
	GetHolding(id string) (*reference.Holding, error)
}

// SnapshotRebuilder regenerates the daily snapshot series from a date forward.
type SnapshotRebuilder interface {
	Rematerialize(portfolioID, fromDate, endDate string) error
}

// TransferRequest moves a holding between two accounts as a paired
// TRANSFER_OUT / TRANSFER_IN sharing a transfer group.
type TransferRequest struct {
	FromAccountID string    `json:"from_account_id"`
	ToAccountID   string    `json:"to_account_id"`
	HoldingID     string    `json:"holding_id"`
	Quantity      float64   `json:"quantity"`
	ExecutedAt    time.Time `json:"executed_at"`
	Note          string    `json:"note,omitempty"`
}

// Service orchestrates transaction writes: validation, ledger persistence,
// position updates, and rematerialization of every snapshot the edit stales.
type Service struct {
	repo    *Repository
	ledger  PositionLedger
	costs   CostBasisSource
	ref     ReferenceSource
	rebuild SnapshotRebuilder
	log     zerolog.Logger
}

// NewService creates a new transaction service.
func NewService(
	repo *Repository,
	ledger PositionLedger,
	costs CostBasisSource,
	ref ReferenceSource,
	rebuild SnapshotRebuilder,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:    repo,
		ledger:  ledger,
		costs:   costs,
		ref:     ref,
		rebuild: rebuild,
		log:     log.With().Str("service", "transactions").Logger(),
	}
}

// Create validates and records a new transaction, updates the affected
// position, and rematerializes snapshots from the transaction date forward.
func (s *Service) Create(tx *Transaction) error {
	s.normalize(tx)
	if err := s.validate(tx); err != nil {
		return err
	}
	if tx.Kind == KindTransferIn || tx.Kind == KindTransferOut {
		return fmt.Errorf("transfer legs must be created through CreateTransfer")
	}

	if err := s.ledger.Apply(*tx); err != nil {
		return err
	}
	if err := s.repo.Create(tx); err != nil {
		// Roll the position back to match the ledger.
		if recErr := s.recomputePair(tx); recErr != nil {
			s.log.Error().Err(recErr).Str("account_id", tx.AccountID).Msg("Failed to restore position after create failure")
		}
		return err
	}

	s.log.Info().
		Str("tx_id", tx.TxID).
		Str("kind", string(tx.Kind)).
		Str("account_id", tx.AccountID).
		Msg("Transaction created")

	return s.rebuild.Rematerialize(tx.PortfolioID, tx.Date(), "")
}

// CreateTransfer records both legs of an in-kind transfer. Both legs carry the
// source position's average cost as their price, so the receiving account
// inherits the cost basis and the move is invisible to cost accounting.
func (s *Service) CreateTransfer(req TransferRequest) (string, error) {
	if req.FromAccountID == req.ToAccountID {
		return "", fmt.Errorf("transfer source and destination account must differ")
	}
	if req.Quantity <= 0 {
		return "", fmt.Errorf("transfer quantity must be positive")
	}

	from, err := s.ref.GetAccount(req.FromAccountID)
	if err != nil {
		return "", err
	}
	to, err := s.ref.GetAccount(req.ToAccountID)
	if err != nil {
		return "", err
	}
	if from == nil || to == nil {
		return "", fmt.Errorf("transfer references unknown account")
	}
	holding, err := s.ref.GetHolding(req.HoldingID)
	if err != nil {
		return "", err
	}
	if holding == nil {
		return "", fmt.Errorf("unknown holding %q", req.HoldingID)
	}

	held, avgCost, avgCostBase, err := s.costs.CostBasis(req.FromAccountID, req.HoldingID)
	if err != nil {
		return "", err
	}
	if req.Quantity > held+1e-9 {
		return "", fmt.Errorf("cannot transfer %.6f of %s: only %.6f held in %s",
			req.Quantity, req.HoldingID, held, req.FromAccountID)
	}

	// Express the base-currency cost through the fx_rate column so the
	// receiving leg blends at the same per-unit base cost.
	fxRate := 1.0
	if avgCost > 0 {
		fxRate = avgCostBase / avgCost
	}

	groupID := uuid.New().String()
	legs := []Transaction{
		{
			PortfolioID:   from.PortfolioID,
			AccountID:     req.FromAccountID,
			HoldingID:     req.HoldingID,
			Kind:          KindTransferOut,
			Quantity:      req.Quantity,
			Price:         avgCost,
			Currency:      string(holding.Currency),
			FxRate:        fxRate,
			ExecutedAt:    req.ExecutedAt,
			TransferGroup: groupID,
			Note:          req.Note,
		},
		{
			PortfolioID:   to.PortfolioID,
			AccountID:     req.ToAccountID,
			HoldingID:     req.HoldingID,
			Kind:          KindTransferIn,
			Quantity:      req.Quantity,
			Price:         avgCost,
			Currency:      string(holding.Currency),
			FxRate:        fxRate,
			ExecutedAt:    req.ExecutedAt,
			TransferGroup: groupID,
			Note:          req.Note,
		},
	}

	for i := range legs {
		if err := legs[i].Validate(); err != nil {
			return "", err
		}
	}
	for i := range legs {
		if err := s.ledger.Apply(legs[i]); err != nil {
			return "", err
		}
		if err := s.repo.Create(&legs[i]); err != nil {
			return "", err
		}
	}

	s.log.Info().
		Str("transfer_group", groupID).
		Str("holding_id", req.HoldingID).
		Float64("quantity", req.Quantity).
		Msg("Transfer recorded")

	date := legs[0].Date()
	if err := s.rebuild.Rematerialize(from.PortfolioID, date, ""); err != nil {
		return "", err
	}
	if to.PortfolioID != from.PortfolioID {
		if err := s.rebuild.Rematerialize(to.PortfolioID, date, ""); err != nil {
			return "", err
		}
	}
	return groupID, nil
}

// Update replaces an existing transaction in place. Historical edits
// invalidate every derived figure from the earlier of the old and new dates,
// so affected positions are rebuilt by full replay and snapshots regenerated
// from that date forward.
func (s *Service) Update(tx *Transaction) error {
	if tx.TxID == "" {
		return fmt.Errorf("tx_id is required for update")
	}

	existing, err := s.repo.GetByTxID(tx.TxID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("transaction %q not found", tx.TxID)
	}
	if existing.TransferGroup != "" {
		return fmt.Errorf("transfer legs cannot be edited, delete the transfer and re-create it")
	}

	s.normalize(tx)
	tx.PortfolioID = existing.PortfolioID
	if err := s.validate(tx); err != nil {
		return err
	}

	if err := s.repo.Update(tx); err != nil {
		return err
	}

	if err := s.recomputePair(existing); err != nil {
		return err
	}
	if tx.AccountID != existing.AccountID || tx.HoldingID != existing.HoldingID {
		if err := s.recomputePair(tx); err != nil {
			return err
		}
	}

	fromDate := tx.Date()
	if existing.Date() < fromDate {
		fromDate = existing.Date()
	}

	s.log.Info().Str("tx_id", tx.TxID).Str("from", fromDate).Msg("Transaction updated")
	return s.rebuild.Rematerialize(tx.PortfolioID, fromDate, "")
}

// Delete removes a transaction. Deleting one leg of a transfer removes the
// whole group; a half-deleted transfer would conjure or destroy holdings.
func (s *Service) Delete(txID string) error {
	existing, err := s.repo.GetByTxID(txID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("transaction %q not found", txID)
	}

	legs := []Transaction{*existing}
	if existing.TransferGroup != "" {
		legs, err = s.repo.GetByTransferGroup(existing.TransferGroup)
		if err != nil {
			return err
		}
	}

	fromDate := existing.Date()
	portfolios := map[string]bool{}
	for i := range legs {
		if err := s.repo.Delete(legs[i].TxID); err != nil {
			return err
		}
		if err := s.recomputePair(&legs[i]); err != nil {
			return err
		}
		if legs[i].Date() < fromDate {
			fromDate = legs[i].Date()
		}
		portfolios[legs[i].PortfolioID] = true
	}

	s.log.Info().Str("tx_id", txID).Int("removed", len(legs)).Msg("Transaction deleted")

	for portfolioID := range portfolios {
		if err := s.rebuild.Rematerialize(portfolioID, fromDate, ""); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a transaction by its external id, or nil when not found.
func (s *Service) Get(txID string) (*Transaction, error) {
	return s.repo.GetByTxID(txID)
}

// List returns a portfolio's transactions within [start, end].
func (s *Service) List(portfolioID, startDate, endDate string) ([]Transaction, error) {
	return s.repo.ListForPortfolioRange(portfolioID, startDate, endDate)
}

// normalize canonicalizes a transaction before validation. Cash events carry
// their amount in the quantity column at price 1; unset fx on same-currency
// rows defaults to 1.
func (s *Service) normalize(tx *Transaction) {
	if tx.Kind.IsCashEvent() {
		if tx.Price != 0 && tx.Price != 1 {
			// Amount supplied as quantity x price; fold into quantity.
			tx.Quantity *= tx.Price
		}
		tx.Price = 1
	}
	if tx.FxRate == 0 {
		tx.FxRate = 1
	}
}

// validate layers referential checks over the transaction's own invariants.
func (s *Service) validate(tx *Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	account, err := s.ref.GetAccount(tx.AccountID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("unknown account %q", tx.AccountID)
	}
	if tx.PortfolioID == "" {
		tx.PortfolioID = account.PortfolioID
	} else if account.PortfolioID != tx.PortfolioID {
		return fmt.Errorf("account %q does not belong to portfolio %q", tx.AccountID, tx.PortfolioID)
	}

	if tx.HoldingID != "" {
		holding, err := s.ref.GetHolding(tx.HoldingID)
		if err != nil {
			return err
		}
		if holding == nil {
			return fmt.Errorf("unknown holding %q", tx.HoldingID)
		}
	}
	return nil
}

func (s *Service) recomputePair(tx *Transaction) error {
	if !tx.Kind.IsTrade() || tx.HoldingID == "" {
		return nil
	}
	return s.ledger.Recompute(tx.AccountID, tx.HoldingID)
}
