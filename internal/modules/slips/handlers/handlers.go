// Package handlers provides HTTP handlers for outward reinsurance slips.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/modules/currency"
	"github.com/mosaic-erp/reinsurance/internal/modules/slips"
	"github.com/mosaic-erp/reinsurance/internal/utils"
	"github.com/rs/zerolog"
)

// Handler handles slip HTTP requests
type Handler struct {
	service *slips.Service
	log     zerolog.Logger
}

// NewHandler creates a new slip handler
func NewHandler(service *slips.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "slips").Logger(),
	}
}

type reinsurerRequest struct {
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name"`
	SharePct      currency.Amount `json:"share_pct"`
	CommissionPct currency.Amount `json:"commission_pct"`
}

func (r reinsurerRequest) reinsurer() domain.Reinsurer {
	return domain.Reinsurer{ID: r.ID, Name: r.Name, SharePct: r.SharePct.Float(), CommissionPct: r.CommissionPct.Float()}
}

type createRequest struct {
	SlipNumber       string             `json:"slip_number"`
	Date             *time.Time         `json:"date"`
	InsuredName      string             `json:"insured_name"`
	Currency         string             `json:"currency"`
	LimitOfLiability currency.Amount    `json:"limit_of_liability"`
	Reinsurers       []reinsurerRequest `json:"reinsurers"`
}

// slipView adds the permitted actions to a slip response.
type slipView struct {
	slips.Slip
	AvailableActions []slips.Action `json:"available_actions"`
}

func view(s slips.Slip) slipView {
	actions := slips.AvailableActions(s.Status)
	if actions == nil {
		actions = []slips.Action{}
	}
	return slipView{Slip: s, AvailableActions: actions}
}

// HandleCreate creates a DRAFT slip
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	in := slips.CreateInput{
		SlipNumber:       req.SlipNumber,
		Date:             req.Date,
		InsuredName:      req.InsuredName,
		Currency:         req.Currency,
		LimitOfLiability: req.LimitOfLiability.Float(),
	}
	for _, ri := range req.Reinsurers {
		in.Reinsurers = append(in.Reinsurers, ri.reinsurer())
	}

	slip, err := h.service.Create(r.Context(), in)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	utils.WriteData(w, h.log, http.StatusCreated, view(slip))
}

// HandleList lists slips, optionally filtered by ?status= and ?include_deleted=true
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := slips.ListFilter{IncludeDeleted: q.Get("include_deleted") == "true"}
	if s := q.Get("status"); s != "" {
		status, err := slips.ParseStatus(s)
		if err != nil {
			utils.WriteError(w, h.log, err)
			return
		}
		filter.Status = status
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	out := make([]slipView, 0, len(list))
	for _, s := range list {
		out = append(out, view(s))
	}
	utils.WriteData(w, h.log, http.StatusOK, out)
}

// HandleGet returns one slip
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.writeSlip(w, func() (slips.Slip, error) {
		return h.service.Get(r.Context(), chi.URLParam(r, "id"))
	})
}

type detailsRequest struct {
	SlipNumber       *string          `json:"slip_number"`
	Date             *time.Time       `json:"date"`
	InsuredName      *string          `json:"insured_name"`
	Currency         *string          `json:"currency"`
	LimitOfLiability *currency.Amount `json:"limit_of_liability"`
}

// HandleUpdate edits slip header fields
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req detailsRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	h.writeSlip(w, func() (slips.Slip, error) {
		return h.service.UpdateDetails(r.Context(), chi.URLParam(r, "id"), slips.DetailsInput{
			SlipNumber:       req.SlipNumber,
			Date:             req.Date,
			InsuredName:      req.InsuredName,
			Currency:         req.Currency,
			LimitOfLiability: currency.FloatPtr(req.LimitOfLiability),
		})
	})
}

// HandleDelete soft-deletes a slip
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRestore undoes a soft delete
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Restore(r.Context(), id); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	h.writeSlip(w, func() (slips.Slip, error) { return h.service.Get(r.Context(), id) })
}

// HandleTransition applies the action named in the URL. Decline reads {"reason": "..."};
// a missing reason means the prompt was dismissed and nothing is recorded.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	action, err := slips.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	var body struct {
		Reason *string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.WriteError(w, h.log, err)
			return
		}
	}

	h.writeSlip(w, func() (slips.Slip, error) {
		return h.service.Transition(r.Context(), chi.URLParam(r, "id"), slips.Request{Action: action, Reason: body.Reason})
	})
}

// HandleAddReinsurer appends a panel entry
func (h *Handler) HandleAddReinsurer(w http.ResponseWriter, r *http.Request) {
	var req reinsurerRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	h.writeSlip(w, func() (slips.Slip, error) {
		return h.service.AddReinsurer(r.Context(), chi.URLParam(r, "id"), req.reinsurer())
	})
}

// HandleUpdateReinsurer edits a panel entry
func (h *Handler) HandleUpdateReinsurer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          *string          `json:"name"`
		SharePct      *currency.Amount `json:"share_pct"`
		CommissionPct *currency.Amount `json:"commission_pct"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	patch := domain.ReinsurerPatch{
		Name:          req.Name,
		SharePct:      currency.FloatPtr(req.SharePct),
		CommissionPct: currency.FloatPtr(req.CommissionPct),
	}
	h.writeSlip(w, func() (slips.Slip, error) {
		return h.service.UpdateReinsurer(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "entryID"), patch)
	})
}

// HandleRemoveReinsurer drops a panel entry
func (h *Handler) HandleRemoveReinsurer(w http.ResponseWriter, r *http.Request) {
	h.writeSlip(w, func() (slips.Slip, error) {
		return h.service.RemoveReinsurer(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "entryID"))
	})
}

func (h *Handler) writeSlip(w http.ResponseWriter, fn func() (slips.Slip, error)) {
	s, err := fn()
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	utils.WriteData(w, h.log, http.StatusOK, view(s))
}
