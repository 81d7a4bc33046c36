package testing

import (
	"time"

	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/modules/currency"
	"github.com/mosaic-erp/reinsurance/internal/modules/policies"
)

// NewPolicyFixtures returns a small mixed book:
//   - two active direct USD policies in Uzbekistan (600 and 300 limit)
//   - one pending inward EUR policy from Germany (400 limit)
//   - one cancelled outward policy that must drop out of exposure views
//   - one soft-deleted active policy
func NewPolicyFixtures() []policies.Policy {
	inception := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry := inception.AddDate(1, 0, 0)

	base := func(id, ref string, ch domain.Channel, st policies.Status, cur domain.Currency, limit float64) policies.Policy {
		return policies.Policy{
			ID:               id,
			Reference:        ref,
			Channel:          ch,
			Status:           st,
			Currency:         cur,
			NationalCurrency: domain.CurrencyUZS,
			ExchangeRate:     12900,
			Limit:            currency.NewAmountPair(currency.SideWritten, limit, 12900),
			SumInsured:       currency.NewAmountPair(currency.SideWritten, limit, 12900),
			OurSharePct:      100,
			InceptionDate:    &inception,
			ExpiryDate:       &expiry,
			UnderwritingYear: 2025,
		}
	}

	p1 := base("pol-1", "DIR-001", domain.ChannelDirect, policies.StatusActive, domain.CurrencyUSD, 600)
	p1.InsuredName = "Tashkent Metro"
	p1.ClassOfBusiness = "07. Property"
	p1.Territory = "Uzbekistan"
	p1.GrossPremium = 60

	p2 := base("pol-2", "DIR-002", domain.ChannelDirect, policies.StatusActive, domain.CurrencyUSD, 300)
	p2.InsuredName = "Navoi Mining"
	p2.ClassOfBusiness = "Engineering"
	p2.Territory = "Uzbekistan"
	p2.GrossPremium = 30

	p3 := base("pol-3", "INW-001", domain.ChannelInward, policies.StatusPending, domain.CurrencyEUR, 400)
	p3.CedantName = "Rhein Versicherung"
	p3.ClassOfBusiness = "Property"
	p3.Territory = "Germany"
	p3.GrossPremium = 40
	p3.Structure = policies.StructureProportional

	p4 := base("pol-4", "OUT-001", domain.ChannelOutward, policies.StatusCancelled, domain.CurrencyUSD, 5000)
	p4.ClassOfBusiness = "Marine"
	p4.Territory = "Kazakhstan"

	p5 := base("pol-5", "DIR-003", domain.ChannelDirect, policies.StatusActive, domain.CurrencyUSD, 9000)
	p5.Territory = "Uzbekistan"
	p5.Deleted = true

	return []policies.Policy{p1, p2, p3, p4, p5}
}

// NewPanelFixture returns a fully placed two-reinsurer panel.
func NewPanelFixture() domain.Panel {
	return domain.Panel{
		{ID: "re-1", Name: "Munich Re", SharePct: 60, CommissionPct: 10},
		{ID: "re-2", Name: "Swiss Re", SharePct: 40, CommissionPct: 12.5},
	}
}
