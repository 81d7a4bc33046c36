// Package allocation derives a policy's premium split across its reinsurance panel.
package allocation

import (
	"math"

	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Terms are the inputs that drive every derived figure.
type Terms struct {
	GrossPremium  float64
	CommissionPct float64
	TaxPct        float64
	Panel         domain.Panel
}

// Derived holds the figures computed from Terms. A new Derived always replaces the
// previous one in full.
type Derived struct {
	NetPremium            float64 `json:"net_premium" msgpack:"net_premium"`
	CededShare            float64 `json:"ceded_share" msgpack:"ceded_share"`
	CededPremiumForeign   float64 `json:"ceded_premium_foreign" msgpack:"ceded_premium_foreign"`
	TotalCommissionAmount float64 `json:"total_commission_amount" msgpack:"total_commission_amount"`
	NetReinsurancePremium float64 `json:"net_reinsurance_premium" msgpack:"net_reinsurance_premium"`
	// ReinsuranceCommission is the panel's weighted-average commission in percent.
	ReinsuranceCommission float64 `json:"reinsurance_commission" msgpack:"reinsurance_commission"`
	// OverCeded is set when the panel cedes more than 100% in total.
	OverCeded bool `json:"over_ceded" msgpack:"over_ceded"`
}

// Recompute derives all financial fields from t. It is pure and idempotent.
//
//	net premium    = gross × (1 − commission%/100 − tax%/100)
//	ceded premium  = Σ gross × share_i/100
//	commission     = Σ gross × share_i/100 × commission_i/100
//	net RI premium = ceded premium − commission
//	weighted comm. = commission / ceded premium × 100, or 0 when ceded premium ≤ 0
func Recompute(t Terms) Derived {
	gross := decimal.NewFromFloat(t.GrossPremium)

	deductions := decimal.NewFromFloat(t.CommissionPct).Add(decimal.NewFromFloat(t.TaxPct)).Div(hundred)
	net := gross.Mul(decimal.NewFromInt(1).Sub(deductions))

	share := decimal.Zero
	ceded := decimal.Zero
	commission := decimal.Zero
	for _, r := range t.Panel {
		s := decimal.NewFromFloat(r.SharePct)
		premium := gross.Mul(s).Div(hundred)

		share = share.Add(s)
		ceded = ceded.Add(premium)
		commission = commission.Add(premium.Mul(decimal.NewFromFloat(r.CommissionPct)).Div(hundred))
	}

	weighted := decimal.Zero
	if ceded.IsPositive() {
		weighted = commission.Div(ceded).Mul(hundred)
	}

	return Derived{
		NetPremium:            net.InexactFloat64(),
		CededShare:            share.InexactFloat64(),
		CededPremiumForeign:   ceded.InexactFloat64(),
		TotalCommissionAmount: commission.InexactFloat64(),
		NetReinsurancePremium: ceded.Sub(commission).InexactFloat64(),
		ReinsuranceCommission: weighted.InexactFloat64(),
		OverCeded:             share.GreaterThan(hundred),
	}
}

// Validate rejects terms that cannot be recomputed meaningfully. Over-cession is
// permitted unless strict is set.
func Validate(t Terms, strict bool) error {
	for field, v := range map[string]float64{
		"gross_premium":  t.GrossPremium,
		"commission_pct": t.CommissionPct,
		"tax_pct":        t.TaxPct,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.NewValidationError(field, "must be a finite number")
		}
	}
	if t.CommissionPct < 0 {
		return domain.NewValidationError("commission_pct", "must not be negative, got %v", t.CommissionPct)
	}
	if t.TaxPct < 0 {
		return domain.NewValidationError("tax_pct", "must not be negative, got %v", t.TaxPct)
	}

	if err := ValidatePanel(t.Panel); err != nil {
		return err
	}

	if strict && Recompute(Terms{Panel: t.Panel}).OverCeded {
		total := 0.0
		for _, r := range t.Panel {
			total += r.SharePct
		}
		return domain.NewValidationError("reinsurers", "panel cedes %.4g%%, more than 100%%", total)
	}
	return nil
}

// ValidatePanel checks every entry carries finite, non-negative share and commission.
func ValidatePanel(panel domain.Panel) error {
	for _, r := range panel {
		if math.IsNaN(r.SharePct) || math.IsInf(r.SharePct, 0) || r.SharePct < 0 {
			return domain.NewValidationError("reinsurers."+r.ID+".share_pct", "must be a non-negative number, got %v", r.SharePct)
		}
		if math.IsNaN(r.CommissionPct) || math.IsInf(r.CommissionPct, 0) || r.CommissionPct < 0 {
			return domain.NewValidationError("reinsurers."+r.ID+".commission_pct", "must be a non-negative number, got %v", r.CommissionPct)
		}
	}
	return nil
}
