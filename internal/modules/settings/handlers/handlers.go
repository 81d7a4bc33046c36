// Package handlers provides HTTP handlers for runtime settings.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mosaic-erp/reinsurance/internal/modules/settings"
	"github.com/mosaic-erp/reinsurance/internal/utils"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for settings endpoints
type Handler struct {
	service *settings.Service
	log     zerolog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(service *settings.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "settings").Logger(),
	}
}

// HandleGetAll returns every setting with its effective value
func (h *Handler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	utils.WriteData(w, h.log, http.StatusOK, list)
}

// HandleUpdate stores an override: PUT /settings/{key} {"value": 20}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req struct {
		Value float64 `json:"value"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	if err := h.service.Set(r.Context(), key, req.Value); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	utils.WriteData(w, h.log, http.StatusOK, map[string]interface{}{"key": key, "value": req.Value})
}

// HandleReset removes an override
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context(), chi.URLParam(r, "key")); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers settings routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.HandleGetAll)
		r.Put("/{key}", h.HandleUpdate)
		r.Delete("/{key}", h.HandleReset)
	})
}
