// Package handlers provides HTTP handlers for transaction ledger operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/modules/transactions"
	"github.com/quantfolio/quantfolio/internal/utils"
)

// Handler handles transaction HTTP requests
type Handler struct {
	service *transactions.Service
	log     zerolog.Logger
}

// NewHandler creates a new transaction handler
func NewHandler(service *transactions.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "transactions").Logger(),
	}
}

// HandleCreate handles POST /api/transactions
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var tx transactions.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Create(&tx); err != nil {
		h.log.Error().Err(err).Msg("Failed to create transaction")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{
			"transaction": tx,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCreateTransfer handles POST /api/transactions/transfer
func (h *Handler) HandleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transactions.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	groupID, err := h.service.CreateTransfer(req)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create transfer")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{
			"transfer_group": groupID,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGet handles GET /api/transactions/{txID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, txID string) {
	tx, err := h.service.Get(txID)
	if err != nil {
		h.log.Error().Err(err).Str("tx_id", txID).Msg("Failed to get transaction")
		http.Error(w, "Failed to get transaction", http.StatusInternalServerError)
		return
	}
	if tx == nil {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"transaction": tx,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleList handles GET /api/transactions/portfolio/{portfolioID}
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request, portfolioID string) {
	startDate := r.URL.Query().Get("start")
	endDate := r.URL.Query().Get("end")
	if startDate == "" {
		startDate = "1970-01-01"
	}
	if endDate == "" {
		endDate = utils.Today()
	}

	txs, err := h.service.List(portfolioID, startDate, endDate)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to list transactions")
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"portfolio_id": portfolioID,
			"transactions": txs,
			"count":        len(txs),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleUpdate handles PUT /api/transactions/{txID}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request, txID string) {
	var tx transactions.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	tx.TxID = txID

	if err := h.service.Update(&tx); err != nil {
		h.log.Error().Err(err).Str("tx_id", txID).Msg("Failed to update transaction")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"transaction": tx,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDelete handles DELETE /api/transactions/{txID}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request, txID string) {
	if err := h.service.Delete(txID); err != nil {
		h.log.Error().Err(err).Str("tx_id", txID).Msg("Failed to delete transaction")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"tx_id":  txID,
			"status": "deleted",
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
