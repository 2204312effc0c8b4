// Package handlers provides HTTP handlers for valuation snapshot operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/modules/valuation"
	"github.com/quantfolio/quantfolio/internal/utils"
)

// Handler handles valuation HTTP requests
type Handler struct {
	snapshots      *valuation.SnapshotRepository
	rematerializer *valuation.Rematerializer
	log            zerolog.Logger
}

// NewHandler creates a new valuation handler
func NewHandler(
	snapshots *valuation.SnapshotRepository,
	rematerializer *valuation.Rematerializer,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		snapshots:      snapshots,
		rematerializer: rematerializer,
		log:            log.With().Str("handler", "valuation").Logger(),
	}
}

// HandleGetSnapshots handles GET /api/valuation/{portfolioID}/snapshots
func (h *Handler) HandleGetSnapshots(w http.ResponseWriter, r *http.Request, portfolioID string) {
	startDate := r.URL.Query().Get("start")
	endDate := r.URL.Query().Get("end")
	if endDate == "" {
		endDate = utils.Today()
	}
	if startDate == "" {
		startDate = "1970-01-01"
	}

	snapshots, err := h.snapshots.GetRange(portfolioID, startDate, endDate)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to get snapshots")
		http.Error(w, "Failed to get snapshots", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"portfolio_id": portfolioID,
			"snapshots":    snapshots,
			"count":        len(snapshots),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetLatest handles GET /api/valuation/{portfolioID}/latest
func (h *Handler) HandleGetLatest(w http.ResponseWriter, r *http.Request, portfolioID string) {
	snapshot, err := h.snapshots.GetLatestAt(portfolioID, utils.Today())
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to get latest snapshot")
		http.Error(w, "Failed to get latest snapshot", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"portfolio_id": portfolioID,
			"snapshot":     snapshot,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetAllocation handles GET /api/valuation/{portfolioID}/allocation —
// the latest snapshot's per-asset-class weights.
func (h *Handler) HandleGetAllocation(w http.ResponseWriter, r *http.Request, portfolioID string) {
	snapshot, err := h.snapshots.GetLatestAt(portfolioID, utils.Today())
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to get latest snapshot")
		http.Error(w, "Failed to get latest snapshot", http.StatusInternalServerError)
		return
	}
	if snapshot == nil {
		http.Error(w, "No snapshots for portfolio", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"portfolio_id": portfolioID,
			"date":         snapshot.Date,
			"allocation":   snapshot.Allocation(),
			"cash":         snapshot.Cash,
			"total_value":  snapshot.TotalValue,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleRematerialize handles POST /api/valuation/{portfolioID}/rematerialize
func (h *Handler) HandleRematerialize(w http.ResponseWriter, r *http.Request, portfolioID string) {
	var req struct {
		FromDate string `json:"from_date"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	if err := h.rematerializer.Rematerialize(portfolioID, req.FromDate, ""); err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to rematerialize")
		http.Error(w, "Failed to rematerialize", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"portfolio_id": portfolioID,
			"status":       "rematerialized",
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
