package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all performance routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/returns/{portfolioID}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetReturns(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Get("/breakdown", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetBreakdown(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Get("/risk", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetRisk(w, r, chi.URLParam(r, "portfolioID"))
		})
	})
}
