package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all position routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/positions", func(r chi.Router) {
		r.Get("/account/{accountID}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetAccountPositions(w, r, chi.URLParam(r, "accountID"))
		})
		r.Get("/portfolio/{portfolioID}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetPortfolioPositions(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Post("/recompute", h.HandleRecompute)
	})
}
