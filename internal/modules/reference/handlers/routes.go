package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all reference data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Post("/", h.HandleCreatePortfolio)
		r.Get("/", h.HandleListPortfolios)

		r.Route("/{portfolioID}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetPortfolio(w, r, chi.URLParam(r, "portfolioID"))
			})
			r.Post("/accounts", func(w http.ResponseWriter, r *http.Request) {
				h.HandleCreateAccount(w, r, chi.URLParam(r, "portfolioID"))
			})
			r.Get("/accounts", func(w http.ResponseWriter, r *http.Request) {
				h.HandleListAccounts(w, r, chi.URLParam(r, "portfolioID"))
			})
		})
	})

	r.Route("/holdings", func(r chi.Router) {
		r.Post("/", h.HandleCreateHolding)
		r.Get("/", h.HandleListHoldings)
	})
}
