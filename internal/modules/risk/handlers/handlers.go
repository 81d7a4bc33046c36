// Package handlers provides HTTP handlers for portfolio risk accumulation.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/modules/risk"
	"github.com/mosaic-erp/reinsurance/internal/utils"
	"github.com/rs/zerolog"
)

// Handler handles risk aggregation HTTP requests
type Handler struct {
	service *risk.Service
	log     zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(service *risk.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "risk").Logger(),
	}
}

// HandleGetAggregation handles GET /api/risk/aggregation
func (h *Handler) HandleGetAggregation(w http.ResponseWriter, r *http.Request) {
	n, err := parseLimit(r)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	report, err := h.service.Report(r.Context(), n)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	utils.WriteData(w, h.log, http.StatusOK, report)
}

// HandleGetTopRisks handles GET /api/risk/top-risks?limit=N
func (h *Handler) HandleGetTopRisks(w http.ResponseWriter, r *http.Request) {
	n, err := parseLimit(r)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	top, err := h.service.TopRisks(r.Context(), n)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	utils.WriteData(w, h.log, http.StatusOK, top)
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, domain.NewValidationError("limit", "must be a positive integer, got %q", raw)
	}
	return n, nil
}
