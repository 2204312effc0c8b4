// Package handlers provides HTTP handlers for performance queries.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/modules/returns"
)

// Handler handles performance HTTP requests
type Handler struct {
	service *returns.Service
	log     zerolog.Logger
}

// NewHandler creates a new returns handler
func NewHandler(service *returns.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "returns").Logger(),
	}
}

// HandleGetReturns handles GET /api/returns/{portfolioID}
func (h *Handler) HandleGetReturns(w http.ResponseWriter, r *http.Request, portfolioID string) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "itd"
	}
	endDate := r.URL.Query().Get("end")

	result, err := h.service.CalculateReturns(portfolioID, endDate, period)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Str("period", period).Msg("Failed to calculate returns")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetBreakdown handles GET /api/returns/{portfolioID}/breakdown
func (h *Handler) HandleGetBreakdown(w http.ResponseWriter, r *http.Request, portfolioID string) {
	startDate := r.URL.Query().Get("start")
	endDate := r.URL.Query().Get("end")
	if startDate == "" || endDate == "" {
		http.Error(w, "start and end parameters are required", http.StatusBadRequest)
		return
	}

	breakdown, err := h.service.CalculateBreakdown(portfolioID, startDate, endDate)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to calculate breakdown")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"portfolio_id": portfolioID,
			"start_date":   startDate,
			"end_date":     endDate,
			"breakdown":    breakdown,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetRisk handles GET /api/returns/{portfolioID}/risk
func (h *Handler) HandleGetRisk(w http.ResponseWriter, r *http.Request, portfolioID string) {
	startDate := r.URL.Query().Get("start")
	endDate := r.URL.Query().Get("end")
	if startDate == "" || endDate == "" {
		http.Error(w, "start and end parameters are required", http.StatusBadRequest)
		return
	}

	riskFreeRate := 0.0
	if rateStr := r.URL.Query().Get("risk_free_rate"); rateStr != "" {
		if parsed, err := strconv.ParseFloat(rateStr, 64); err == nil {
			riskFreeRate = parsed
		}
	}

	result, err := h.service.CalculateRisk(portfolioID, startDate, endDate, riskFreeRate)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to calculate risk figures")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
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
