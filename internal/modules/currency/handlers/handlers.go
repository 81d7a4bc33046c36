// Package handlers provides HTTP handlers for currency conversion.
package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/modules/currency"
	"github.com/mosaic-erp/reinsurance/internal/utils"
	"github.com/rs/zerolog"
)

// Conversion directions accepted by /currency/convert
const (
	DirectionToNational = "to_national"
	DirectionToWritten  = "to_written"
)

// Handler handles currency HTTP requests
type Handler struct {
	rates *currency.RateService
	log   zerolog.Logger
}

// NewHandler creates a new currency handler
func NewHandler(rates *currency.RateService, log zerolog.Logger) *Handler {
	return &Handler{
		rates: rates,
		log:   log.With().Str("handler", "currency").Logger(),
	}
}

// ConvertResponse is the result of a single conversion.
type ConvertResponse struct {
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	NationalCurrency string  `json:"national_currency"`
	Direction        string  `json:"direction"`
	Rate             float64 `json:"rate"`
	RateSource       string  `json:"rate_source"`
	Result           float64 `json:"result"`
	USDEquivalent    float64 `json:"usd_equivalent"`
}

// HandleConvert handles GET /api/currency/convert
//
// Query: amount (lenient, "1 250,00" style accepted), currency, direction
// (to_national by default) and an optional rate. Without a rate the latest national
// rate is looked up.
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, ok, err := currency.ParseAmount(q.Get("amount"))
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	if !ok {
		utils.WriteError(w, h.log, domain.NewValidationError("amount", "is required"))
		return
	}

	// NormalizeCurrency defaults blanks to USD, so presence is checked on the raw value.
	if strings.TrimSpace(q.Get("currency")) == "" {
		utils.WriteError(w, h.log, domain.NewValidationError("currency", "is required"))
		return
	}
	code := domain.NormalizeCurrency(q.Get("currency"))

	direction := strings.ToLower(strings.TrimSpace(q.Get("direction")))
	if direction == "" {
		direction = DirectionToNational
	}
	if direction != DirectionToNational && direction != DirectionToWritten {
		utils.WriteError(w, h.log, domain.NewValidationError("direction", "must be %s or %s", DirectionToNational, DirectionToWritten))
		return
	}

	resp := ConvertResponse{
		Amount:           amount,
		Currency:         string(code),
		NationalCurrency: string(h.rates.NationalCurrency()),
		Direction:        direction,
		RateSource:       "request",
	}

	rate, given, err := currency.ParseAmount(q.Get("rate"))
	if err != nil || (given && rate <= 0) {
		utils.WriteError(w, h.log, domain.NewValidationError("rate", "must be a positive number"))
		return
	}
	if !given {
		rate, err = h.rates.GetLatestExchangeRate(r.Context(), string(code))
		if err != nil {
			utils.WriteError(w, h.log, err)
			return
		}
		resp.RateSource = "latest"
	}
	resp.Rate = rate

	if direction == DirectionToNational {
		resp.Result = currency.ToNational(amount, rate)
		resp.USDEquivalent = currency.ToUSD(currency.DefaultUSDTable, amount, string(code))
	} else {
		resp.Result = currency.ToWritten(amount, rate)
		resp.USDEquivalent = currency.ToUSD(currency.DefaultUSDTable, resp.Result, string(code))
	}

	utils.WriteData(w, h.log, http.StatusOK, resp)
}

// USDRate is one row of the USD equivalence table.
type USDRate struct {
	Currency   string  `json:"currency"`
	USDPerUnit float64 `json:"usd_per_unit"`
	Source     string  `json:"source"`
}

// HandleUSDTable handles GET /api/currency/usd-table?currencies=EUR,UZS
//
// Rates come from a fresh snapshot where available and from the fixed table otherwise.
func (h *Handler) HandleUSDTable(w http.ResponseWriter, r *http.Request) {
	codes := utils.ParseCSV(strings.ToUpper(r.URL.Query().Get("currencies")))
	if len(codes) == 0 {
		codes = currency.DefaultUSDTable.Codes()
	}

	snap, err := h.rates.SnapshotUSD(r.Context(), codes)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	table := make([]USDRate, 0, len(codes))
	for _, code := range codes {
		if v, ok := snap.USDPerUnit(code); ok {
			table = append(table, USDRate{Currency: code, USDPerUnit: v, Source: "snapshot"})
			continue
		}
		if v, ok := currency.DefaultUSDTable.USDPerUnit(code); ok {
			table = append(table, USDRate{Currency: code, USDPerUnit: v, Source: "fixed"})
			continue
		}
		table = append(table, USDRate{Currency: code, USDPerUnit: 1, Source: "passthrough"})
	}

	utils.WriteData(w, h.log, http.StatusOK, table)
}

// RegisterRoutes registers currency routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/currency", func(r chi.Router) {
		r.Get("/convert", h.HandleConvert)
		r.Get("/usd-table", h.HandleUSDTable)
	})
}
