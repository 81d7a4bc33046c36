// Package handlers provides HTTP handlers for policy records.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/modules/currency"
	"github.com/mosaic-erp/reinsurance/internal/modules/policies"
	"github.com/mosaic-erp/reinsurance/internal/utils"
	"github.com/rs/zerolog"
)

// Handler handles policy HTTP requests
type Handler struct {
	service *policies.Service
	log     zerolog.Logger
}

// NewHandler creates a new policy handler
func NewHandler(service *policies.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "policies").Logger(),
	}
}

type amountRequest struct {
	Side  currency.Side   `json:"side"`
	Value currency.Amount `json:"value"`
}

func (a *amountRequest) input() *policies.AmountInput {
	if a == nil {
		return nil
	}
	return &policies.AmountInput{Side: a.Side, Value: a.Value.Float()}
}

type reinsurerRequest struct {
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name"`
	SharePct      currency.Amount `json:"share_pct"`
	CommissionPct currency.Amount `json:"commission_pct"`
}

func (r reinsurerRequest) reinsurer() domain.Reinsurer {
	return domain.Reinsurer{
		ID:            r.ID,
		Name:          r.Name,
		SharePct:      r.SharePct.Float(),
		CommissionPct: r.CommissionPct.Float(),
	}
}

type createRequest struct {
	Reference        string             `json:"reference"`
	Channel          string             `json:"channel"`
	Currency         string             `json:"currency"`
	ExchangeRate     currency.Amount    `json:"exchange_rate"`
	GrossPremium     currency.Amount    `json:"gross_premium"`
	CommissionPct    currency.Amount    `json:"commission_pct"`
	TaxPct           currency.Amount    `json:"tax_pct"`
	SumInsured       *amountRequest     `json:"sum_insured"`
	Limit            *amountRequest     `json:"limit"`
	Excess           *amountRequest     `json:"excess"`
	Reinsurers       []reinsurerRequest `json:"reinsurers"`
	InsuredName      string             `json:"insured_name"`
	CedantName       string             `json:"cedant_name"`
	BrokerName       string             `json:"broker_name"`
	ClassOfBusiness  string             `json:"class_of_business"`
	Territory        string             `json:"territory"`
	OurSharePct      *currency.Amount   `json:"our_share_pct"`
	Structure        string             `json:"structure"`
	InceptionDate    *time.Time         `json:"inception_date"`
	ExpiryDate       *time.Time         `json:"expiry_date"`
	UnderwritingYear int                `json:"underwriting_year"`
}

// HandleCreate creates a PENDING policy
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	in := policies.CreateInput{
		Reference:        req.Reference,
		Channel:          req.Channel,
		Currency:         req.Currency,
		ExchangeRate:     req.ExchangeRate.Float(),
		GrossPremium:     req.GrossPremium.Float(),
		CommissionPct:    req.CommissionPct.Float(),
		TaxPct:           req.TaxPct.Float(),
		SumInsured:       req.SumInsured.input(),
		Limit:            req.Limit.input(),
		Excess:           req.Excess.input(),
		InsuredName:      req.InsuredName,
		CedantName:       req.CedantName,
		BrokerName:       req.BrokerName,
		ClassOfBusiness:  req.ClassOfBusiness,
		Territory:        req.Territory,
		OurSharePct:      currency.FloatPtr(req.OurSharePct),
		Structure:        req.Structure,
		InceptionDate:    req.InceptionDate,
		ExpiryDate:       req.ExpiryDate,
		UnderwritingYear: req.UnderwritingYear,
	}
	for _, ri := range req.Reinsurers {
		in.Reinsurers = append(in.Reinsurers, ri.reinsurer())
	}

	res, err := h.service.Create(r.Context(), in)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	utils.WriteData(w, h.log, http.StatusCreated, res)
}

// HandleList lists policies, optionally filtered by ?status=, ?channel= and ?include_deleted=true
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := policies.ListFilter{IncludeDeleted: q.Get("include_deleted") == "true"}

	if s := q.Get("status"); s != "" {
		status, err := policies.ParseStatus(s)
		if err != nil {
			utils.WriteError(w, h.log, err)
			return
		}
		filter.Status = status
	}
	if c := q.Get("channel"); c != "" {
		channel, err := domain.ParseChannel(c)
		if err != nil {
			utils.WriteError(w, h.log, err)
			return
		}
		filter.Channel = channel
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	if list == nil {
		list = []policies.Policy{}
	}
	utils.WriteData(w, h.log, http.StatusOK, list)
}

// HandleGet returns one policy with the actions currently available
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	utils.WriteData(w, h.log, http.StatusOK, map[string]interface{}{
		"policy":            p,
		"available_actions": policies.AvailableActions(p.Status),
	})
}

// HandleDelete soft-deletes a policy
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
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	utils.WriteData(w, h.log, http.StatusOK, p)
}

type financialsRequest struct {
	Currency      *string          `json:"currency"`
	ExchangeRate  *currency.Amount `json:"exchange_rate"`
	GrossPremium  *currency.Amount `json:"gross_premium"`
	CommissionPct *currency.Amount `json:"commission_pct"`
	TaxPct        *currency.Amount `json:"tax_pct"`
	SumInsured    *amountRequest   `json:"sum_insured"`
	Limit         *amountRequest   `json:"limit"`
	Excess        *amountRequest   `json:"excess"`
}

// HandleUpdateFinancials edits premium terms and returns the recomputed policy
func (h *Handler) HandleUpdateFinancials(w http.ResponseWriter, r *http.Request) {
	var req financialsRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	h.writeResult(w, func() (policies.Result, error) {
		return h.service.UpdateFinancials(r.Context(), chi.URLParam(r, "id"), policies.FinancialsInput{
			Currency:      req.Currency,
			ExchangeRate:  currency.FloatPtr(req.ExchangeRate),
			GrossPremium:  currency.FloatPtr(req.GrossPremium),
			CommissionPct: currency.FloatPtr(req.CommissionPct),
			TaxPct:        currency.FloatPtr(req.TaxPct),
			SumInsured:    req.SumInsured.input(),
			Limit:         req.Limit.input(),
			Excess:        req.Excess.input(),
		})
	})
}

// HandleAddReinsurer appends a panel entry
func (h *Handler) HandleAddReinsurer(w http.ResponseWriter, r *http.Request) {
	var req reinsurerRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	h.writeResult(w, func() (policies.Result, error) {
		return h.service.AddReinsurer(r.Context(), chi.URLParam(r, "id"), req.reinsurer())
	})
}

type reinsurerPatchRequest struct {
	Name          *string          `json:"name"`
	SharePct      *currency.Amount `json:"share_pct"`
	CommissionPct *currency.Amount `json:"commission_pct"`
}

// HandleUpdateReinsurer edits a panel entry by its ID
func (h *Handler) HandleUpdateReinsurer(w http.ResponseWriter, r *http.Request) {
	var req reinsurerPatchRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	patch := domain.ReinsurerPatch{
		Name:          req.Name,
		SharePct:      currency.FloatPtr(req.SharePct),
		CommissionPct: currency.FloatPtr(req.CommissionPct),
	}
	h.writeResult(w, func() (policies.Result, error) {
		return h.service.UpdateReinsurer(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "entryID"), patch)
	})
}

// HandleRemoveReinsurer drops a panel entry by its ID
func (h *Handler) HandleRemoveReinsurer(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, func() (policies.Result, error) {
		return h.service.RemoveReinsurer(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "entryID"))
	})
}

// HandleActivate activates a policy, optionally attaching the signed document metadata
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SignedDocument *policies.SignedDocument `json:"signed_document"`
	}
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.WriteError(w, h.log, err)
			return
		}
	}
	h.writeResult(w, func() (policies.Result, error) {
		return h.service.Activate(r.Context(), chi.URLParam(r, "id"), req.SignedDocument)
	})
}

// HandleMarkNotTakenUp marks a pending policy NTU
func (h *Handler) HandleMarkNotTakenUp(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, func() (policies.Result, error) {
		return h.service.MarkNotTakenUp(r.Context(), chi.URLParam(r, "id"))
	})
}

// HandleCancel cancels a policy
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, func() (policies.Result, error) {
		return h.service.Cancel(r.Context(), chi.URLParam(r, "id"))
	})
}

// HandleTerminate terminates an active policy early
func (h *Handler) HandleTerminate(w http.ResponseWriter, r *http.Request) {
	var details policies.TerminationDetail
	if err := utils.DecodeJSON(r, &details); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	h.writeResult(w, func() (policies.Result, error) {
		return h.service.TerminateEarly(r.Context(), chi.URLParam(r, "id"), details)
	})
}

// HandleRefreshRate pulls the latest exchange rate for the policy currency
func (h *Handler) HandleRefreshRate(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, func() (policies.Result, error) {
		return h.service.RefreshRate(r.Context(), chi.URLParam(r, "id"))
	})
}

type installmentRequest struct {
	DueDate   time.Time       `json:"due_date"`
	DueAmount currency.Amount `json:"due_amount"`
}

// HandleAddInstallment schedules an installment
func (h *Handler) HandleAddInstallment(w http.ResponseWriter, r *http.Request) {
	var req installmentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	h.writeResult(w, func() (policies.Result, error) {
		return h.service.AddInstallment(r.Context(), chi.URLParam(r, "id"), req.DueDate, req.DueAmount.Float())
	})
}

type paymentRequest struct {
	PaidDate   time.Time       `json:"paid_date"`
	PaidAmount currency.Amount `json:"paid_amount"`
}

// HandleMarkInstallmentPaid records a payment
func (h *Handler) HandleMarkInstallmentPaid(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	h.writeResult(w, func() (policies.Result, error) {
		return h.service.MarkInstallmentPaid(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "installmentID"), req.PaidDate, req.PaidAmount.Float())
	})
}

// HandleRemoveInstallment drops an installment
func (h *Handler) HandleRemoveInstallment(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, func() (policies.Result, error) {
		return h.service.RemoveInstallment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "installmentID"))
	})
}

func (h *Handler) writeResult(w http.ResponseWriter, fn func() (policies.Result, error)) {
	res, err := fn()
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	utils.WriteData(w, h.log, http.StatusOK, res)
}
