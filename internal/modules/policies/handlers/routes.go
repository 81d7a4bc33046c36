package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all policy routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/policies", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleDelete)
			r.Post("/restore", h.HandleRestore)
			r.Put("/financials", h.HandleUpdateFinancials)
			r.Post("/refresh-rate", h.HandleRefreshRate)

			// Status transitions
			r.Post("/activate", h.HandleActivate)
			r.Post("/ntu", h.HandleMarkNotTakenUp)
			r.Post("/cancel", h.HandleCancel)
			r.Post("/terminate", h.HandleTerminate)

			r.Route("/reinsurers", func(r chi.Router) {
				r.Post("/", h.HandleAddReinsurer)
				r.Put("/{entryID}", h.HandleUpdateReinsurer)
				r.Delete("/{entryID}", h.HandleRemoveReinsurer)
			})

			r.Route("/installments", func(r chi.Router) {
				r.Post("/", h.HandleAddInstallment)
				r.Delete("/{installmentID}", h.HandleRemoveInstallment)
				r.Post("/{installmentID}/paid", h.HandleMarkInstallmentPaid)
			})
		})
	})
}
