package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all valuation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/valuation/{portfolioID}", func(r chi.Router) {
		r.Get("/snapshots", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetSnapshots(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Get("/latest", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetLatest(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Get("/allocation", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetAllocation(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Post("/rematerialize", func(w http.ResponseWriter, r *http.Request) {
			h.HandleRematerialize(w, r, chi.URLParam(r, "portfolioID"))
		})
	})
}
