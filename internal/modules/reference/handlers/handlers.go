// Package handlers provides HTTP handlers for portfolio, account, and holding
// reference data.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/domain"
	"github.com/quantfolio/quantfolio/internal/modules/reference"
)

// Handler handles reference data HTTP requests
type Handler struct {
	repo *reference.Repository
	log  zerolog.Logger
}

// NewHandler creates a new reference data handler
func NewHandler(repo *reference.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "reference").Logger(),
	}
}

// HandleCreatePortfolio handles POST /api/portfolios
func (h *Handler) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var p reference.Portfolio
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if p.Name == "" || p.BaseCurrency == "" {
		http.Error(w, "name and base_currency are required", http.StatusBadRequest)
		return
	}

	if err := h.repo.CreatePortfolio(&p); err != nil {
		h.log.Error().Err(err).Msg("Failed to create portfolio")
		http.Error(w, "Failed to create portfolio", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.envelope(map[string]interface{}{"portfolio": p}))
}

// HandleListPortfolios handles GET /api/portfolios
func (h *Handler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.repo.ListPortfolios()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list portfolios")
		http.Error(w, "Failed to list portfolios", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, h.envelope(map[string]interface{}{
		"portfolios": portfolios,
		"count":      len(portfolios),
	}))
}

// HandleGetPortfolio handles GET /api/portfolios/{portfolioID}
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request, portfolioID string) {
	p, err := h.repo.GetPortfolio(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to get portfolio")
		http.Error(w, "Failed to get portfolio", http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, "Portfolio not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, h.envelope(map[string]interface{}{"portfolio": p}))
}

// HandleCreateAccount handles POST /api/portfolios/{portfolioID}/accounts
func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request, portfolioID string) {
	var a reference.Account
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	a.PortfolioID = portfolioID
	if a.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	portfolio, err := h.repo.GetPortfolio(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to resolve portfolio")
		http.Error(w, "Failed to resolve portfolio", http.StatusInternalServerError)
		return
	}
	if portfolio == nil {
		http.Error(w, "Portfolio not found", http.StatusNotFound)
		return
	}

	if err := h.repo.CreateAccount(&a); err != nil {
		h.log.Error().Err(err).Msg("Failed to create account")
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.envelope(map[string]interface{}{"account": a}))
}

// HandleListAccounts handles GET /api/portfolios/{portfolioID}/accounts
func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request, portfolioID string) {
	accounts, err := h.repo.ListAccounts(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to list accounts")
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, h.envelope(map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	}))
}

// HandleCreateHolding handles POST /api/holdings
func (h *Handler) HandleCreateHolding(w http.ResponseWriter, r *http.Request) {
	var holding reference.Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if holding.Symbol == "" || holding.Currency == "" {
		http.Error(w, "symbol and currency are required", http.StatusBadRequest)
		return
	}
	if holding.AssetClass == "" {
		holding.AssetClass = domain.AssetClassEquity
	}
	if !holding.AssetClass.Valid() {
		http.Error(w, "invalid asset_class", http.StatusBadRequest)
		return
	}

	if err := h.repo.CreateHolding(&holding); err != nil {
		h.log.Error().Err(err).Msg("Failed to create holding")
		http.Error(w, "Failed to create holding", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.envelope(map[string]interface{}{"holding": holding}))
}

// HandleListHoldings handles GET /api/holdings
func (h *Handler) HandleListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.repo.ListHoldings()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list holdings")
		http.Error(w, "Failed to list holdings", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, h.envelope(map[string]interface{}{
		"holdings": holdings,
		"count":    len(holdings),
	}))
}

func (h *Handler) envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
