// Package handlers provides HTTP handlers for market data ingestion and queries.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/modules/marketdata"
)

// Handler handles market data HTTP requests
type Handler struct {
	prices *marketdata.PriceRepository
	fx     *marketdata.FxRepository
	lookup *marketdata.Lookup
	log    zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(
	prices *marketdata.PriceRepository,
	fx *marketdata.FxRepository,
	lookup *marketdata.Lookup,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		prices: prices,
		fx:     fx,
		lookup: lookup,
		log:    log.With().Str("handler", "marketdata").Logger(),
	}
}

// HandleIngestPrices handles POST /api/marketdata/prices
func (h *Handler) HandleIngestPrices(w http.ResponseWriter, r *http.Request) {
	var points []marketdata.PricePoint
	if err := json.NewDecoder(r.Body).Decode(&points); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(points) == 0 {
		http.Error(w, "No price points provided", http.StatusBadRequest)
		return
	}

	if err := h.prices.UpsertBatch(points); err != nil {
		h.log.Error().Err(err).Msg("Failed to ingest prices")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.lookup.Flush()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"ingested": len(points),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleIngestRates handles POST /api/marketdata/fx
func (h *Handler) HandleIngestRates(w http.ResponseWriter, r *http.Request) {
	var points []marketdata.FxPoint
	if err := json.NewDecoder(r.Body).Decode(&points); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(points) == 0 {
		http.Error(w, "No fx points provided", http.StatusBadRequest)
		return
	}

	if err := h.fx.UpsertBatch(points); err != nil {
		h.log.Error().Err(err).Msg("Failed to ingest fx rates")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.lookup.Flush()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"ingested": len(points),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetPrices handles GET /api/marketdata/prices/{holdingID}
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request, holdingID string) {
	startDate := r.URL.Query().Get("start")
	endDate := r.URL.Query().Get("end")
	if startDate == "" || endDate == "" {
		http.Error(w, "start and end parameters are required", http.StatusBadRequest)
		return
	}

	points, err := h.prices.GetRange(holdingID, startDate, endDate)
	if err != nil {
		h.log.Error().Err(err).Str("holding_id", holdingID).Msg("Failed to get prices")
		http.Error(w, "Failed to get prices", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"holding_id": holdingID,
			"prices":     points,
			"count":      len(points),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetRate handles GET /api/marketdata/fx/{base}/{quote}
func (h *Handler) HandleGetRate(w http.ResponseWriter, r *http.Request, base, quote string) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	rate, err := h.lookup.RateAsOf(base, quote, date)
	if err != nil {
		h.log.Error().Err(err).Str("base", base).Str("quote", quote).Msg("Failed to get fx rate")
		http.Error(w, "Failed to get fx rate", http.StatusInternalServerError)
		return
	}

	var rateData interface{}
	if rate != nil {
		rateData = map[string]interface{}{
			"base":  base,
			"quote": quote,
			"date":  date,
			"rate":  *rate,
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": rateData,
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
