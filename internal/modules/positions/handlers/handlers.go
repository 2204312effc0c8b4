// Package handlers provides HTTP handlers for position queries.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/modules/positions"
)

// AccountSource lists the accounts of a portfolio.
type AccountSource interface {
	AccountIDs(portfolioID string) ([]string, error)
}

// Handler handles position HTTP requests
type Handler struct {
	repo     *positions.Repository
	ledger   *positions.Ledger
	accounts AccountSource
	log      zerolog.Logger
}

// NewHandler creates a new positions handler
func NewHandler(
	repo *positions.Repository,
	ledger *positions.Ledger,
	accounts AccountSource,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		repo:     repo,
		ledger:   ledger,
		accounts: accounts,
		log:      log.With().Str("handler", "positions").Logger(),
	}
}

// HandleGetAccountPositions handles GET /api/positions/account/{accountID}
func (h *Handler) HandleGetAccountPositions(w http.ResponseWriter, r *http.Request, accountID string) {
	pos, err := h.repo.GetAllForAccount(accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to get positions")
		http.Error(w, "Failed to get positions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"account_id": accountID,
			"positions":  pos,
			"count":      len(pos),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetPortfolioPositions handles GET /api/positions/portfolio/{portfolioID}
func (h *Handler) HandleGetPortfolioPositions(w http.ResponseWriter, r *http.Request, portfolioID string) {
	accountIDs, err := h.accounts.AccountIDs(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to resolve accounts")
		http.Error(w, "Failed to resolve accounts", http.StatusInternalServerError)
		return
	}

	pos, err := h.repo.GetAllForAccounts(accountIDs)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to get positions")
		http.Error(w, "Failed to get positions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"portfolio_id": portfolioID,
			"positions":    pos,
			"count":        len(pos),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleRecompute handles POST /api/positions/recompute — full replay of one
// pair's history, the recovery hatch after manual ledger surgery.
func (h *Handler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
		HoldingID string `json:"holding_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccountID == "" || req.HoldingID == "" {
		http.Error(w, "account_id and holding_id are required", http.StatusBadRequest)
		return
	}

	if err := h.ledger.Recompute(req.AccountID, req.HoldingID); err != nil {
		h.log.Error().Err(err).Msg("Failed to recompute position")
		http.Error(w, "Failed to recompute position", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"account_id": req.AccountID,
			"holding_id": req.HoldingID,
			"status":     "recomputed",
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
