package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk aggregation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/aggregation", h.HandleGetAggregation)
		r.Get("/top-risks", h.HandleGetTopRisks)
	})
}
