package risk

import (
	"strings"

	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/modules/policies"
)

// OriginConfig identifies the home market when classifying inward business.
type OriginConfig struct {
	HomeTerritory string
	HomeCode      string
	National      domain.Currency
}

// SourceFor maps a policy channel to a portfolio source.
func (o OriginConfig) SourceFor(p policies.Policy) Source {
	switch p.Channel {
	case domain.ChannelInward:
		if domain.DetermineOrigin(p.Territory, p.Currency, o.HomeTerritory, o.HomeCode, o.National) == domain.OriginDomestic {
			return SourceInwardDomestic
		}
		return SourceInwardForeign
	case domain.ChannelOutward:
		return SourceOutward
	default:
		return SourceDirect
	}
}

// FromPolicy projects a policy into a portfolio row. The limit falls back to the sum
// insured, a missing currency to USD and a missing share to 100%.
func (o OriginConfig) FromPolicy(p policies.Policy) PortfolioRow {
	limit := p.Limit.Written
	if limit == 0 {
		limit = p.SumInsured.Written
	}
	code := strings.TrimSpace(string(p.Currency))
	if code == "" {
		code = "USD"
	}
	share := p.OurSharePct
	if share <= 0 {
		share = 100
	}

	return PortfolioRow{
		Reference:    p.Reference,
		InsuredName:  p.InsuredName,
		CedantName:   p.CedantName,
		Class:        p.ClassOfBusiness,
		Territory:    p.Territory,
		Currency:     code,
		Limit:        limit,
		GrossPremium: p.GrossPremium,
		OurSharePct:  share,
		Status:       string(p.Status),
		Source:       o.SourceFor(p),
	}
}

// FromPolicies projects every live policy. Soft-deleted records are skipped.
func (o OriginConfig) FromPolicies(list []policies.Policy) []PortfolioRow {
	rows := make([]PortfolioRow, 0, len(list))
	for _, p := range list {
		if p.Deleted {
			continue
		}
		rows = append(rows, o.FromPolicy(p))
	}
	return rows
}

// Currencies returns the distinct currency codes of rows.
func Currencies(rows []PortfolioRow) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		code := strings.ToUpper(strings.TrimSpace(r.Currency))
		if _, ok := seen[code]; ok || code == "" {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
