package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all transaction routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Post("/transfer", h.HandleCreateTransfer)

		r.Get("/portfolio/{portfolioID}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleList(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Get("/{txID}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGet(w, r, chi.URLParam(r, "txID"))
		})
		r.Put("/{txID}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleUpdate(w, r, chi.URLParam(r, "txID"))
		})
		r.Delete("/{txID}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleDelete(w, r, chi.URLParam(r, "txID"))
		})
	})
}
