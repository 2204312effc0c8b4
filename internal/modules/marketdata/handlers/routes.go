package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all market data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/marketdata", func(r chi.Router) {
		r.Post("/prices", h.HandleIngestPrices)
		r.Post("/fx", h.HandleIngestRates)

		r.Get("/prices/{holdingID}", func(w http.ResponseWriter, r *http.Request) {
			holdingID := chi.URLParam(r, "holdingID")
			h.HandleGetPrices(w, r, holdingID)
		})
		r.Get("/fx/{base}/{quote}", func(w http.ResponseWriter, r *http.Request) {
			base := chi.URLParam(r, "base")
			quote := chi.URLParam(r, "quote")
			h.HandleGetRate(w, r, base, quote)
		})
	})
}
