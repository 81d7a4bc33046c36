package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all slip routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/slips", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Patch("/", h.HandleUpdate)
			r.Delete("/", h.HandleDelete)
			r.Post("/restore", h.HandleRestore)
			r.Post("/transitions/{action}", h.HandleTransition)

			r.Route("/reinsurers", func(r chi.Router) {
				r.Post("/", h.HandleAddReinsurer)
				r.Put("/{entryID}", h.HandleUpdateReinsurer)
				r.Delete("/{entryID}", h.HandleRemoveReinsurer)
			})
		})
	})
}
