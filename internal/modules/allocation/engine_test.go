package allocation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-6

func TestRecompute_Scenario(t *testing.T) {
	d := Recompute(Terms{
		GrossPremium:  10000,
		CommissionPct: 5,
		TaxPct:        2,
		Panel: domain.Panel{
			{ID: "a", Name: "Lead", SharePct: 60, CommissionPct: 10},
			{ID: "b", Name: "Follow", SharePct: 40, CommissionPct: 5},
		},
	})

	assert.InDelta(t, 9300, d.NetPremium, tolerance)
	assert.InDelta(t, 100, d.CededShare, tolerance)
	assert.InDelta(t, 10000, d.CededPremiumForeign, tolerance)
	assert.InDelta(t, 800, d.TotalCommissionAmount, tolerance)
	assert.InDelta(t, 9200, d.NetReinsurancePremium, tolerance)
	assert.InDelta(t, 8, d.ReinsuranceCommission, tolerance)
	assert.False(t, d.OverCeded)
}

func TestRecompute_NetPremiumWithZeroRates(t *testing.T) {
	tests := []struct {
		name       string
		commission float64
		tax        float64
		want       float64
	}{
		{"no deductions", 0, 0, 5000},
		{"commission only", 10, 0, 4500},
		{"tax only", 0, 12, 4400},
		{"both", 15, 5, 4000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Recompute(Terms{GrossPremium: 5000, CommissionPct: tt.commission, TaxPct: tt.tax})
			assert.InDelta(t, tt.want, d.NetPremium, tolerance)
		})
	}
}

func TestRecompute_EmptyPanel(t *testing.T) {
	d := Recompute(Terms{GrossPremium: 1000})
	assert.Zero(t, d.CededShare)
	assert.Zero(t, d.CededPremiumForeign)
	assert.Zero(t, d.NetReinsurancePremium)
	assert.Zero(t, d.ReinsuranceCommission, "weighted commission is 0 when nothing is ceded")
}

func TestRecompute_ZeroGrossGivesZeroWeightedCommission(t *testing.T) {
	d := Recompute(Terms{Panel: domain.Panel{{ID: "a", SharePct: 50, CommissionPct: 20}}})
	assert.Zero(t, d.CededPremiumForeign)
	assert.Zero(t, d.ReinsuranceCommission)
	assert.InDelta(t, 50, d.CededShare, tolerance)
}

func TestRecompute_PanelInvariantsHoldForRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		gross := math.Round(rng.Float64()*1e7) / 100
		terms := Terms{
			GrossPremium:  gross,
			CommissionPct: math.Round(rng.Float64()*3000) / 100,
			TaxPct:        math.Round(rng.Float64()*1500) / 100,
		}
		n := rng.Intn(6)
		for j := 0; j < n; j++ {
			terms.Panel = append(terms.Panel, domain.Reinsurer{
				ID:            string(rune('a' + j)),
				SharePct:      math.Round(rng.Float64()*5000) / 100,
				CommissionPct: math.Round(rng.Float64()*3500) / 100,
			})
		}

		d := Recompute(terms)

		var share, ceded, commission float64
		for _, r := range terms.Panel {
			share += r.SharePct
			ceded += gross * r.SharePct / 100
			commission += gross * r.SharePct / 100 * r.CommissionPct / 100
		}
		tol := 1e-6 * (1 + gross)

		require.InDelta(t, gross*(1-terms.CommissionPct/100-terms.TaxPct/100), d.NetPremium, tol)
		require.InDelta(t, share, d.CededShare, 1e-9)
		require.InDelta(t, ceded, d.CededPremiumForeign, tol)
		require.InDelta(t, commission, d.TotalCommissionAmount, tol)
		require.InDelta(t, d.CededPremiumForeign-d.TotalCommissionAmount, d.NetReinsurancePremium, tol)
		if d.CededPremiumForeign > 0 {
			require.InDelta(t, d.TotalCommissionAmount/d.CededPremiumForeign*100, d.ReinsuranceCommission, 1e-6)
		} else {
			require.Zero(t, d.ReinsuranceCommission)
		}
		require.Equal(t, share > 100+1e-9, d.OverCeded)
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	terms := Terms{GrossPremium: 777.77, CommissionPct: 3.3, TaxPct: 1.1, Panel: domain.Panel{{ID: "a", SharePct: 33.3, CommissionPct: 7}}}
	assert.Equal(t, Recompute(terms), Recompute(terms))
}

func TestRecompute_OverCessionFlagged(t *testing.T) {
	d := Recompute(Terms{GrossPremium: 100, Panel: domain.Panel{{ID: "a", SharePct: 70}, {ID: "b", SharePct: 40}}})
	assert.True(t, d.OverCeded)
	assert.InDelta(t, 110, d.CededShare, tolerance)
	assert.InDelta(t, 110, d.CededPremiumForeign, tolerance)
}

func TestValidate(t *testing.T) {
	over := domain.Panel{{ID: "a", SharePct: 80}, {ID: "b", SharePct: 30}}

	tests := []struct {
		name    string
		terms   Terms
		strict  bool
		wantErr bool
	}{
		{"valid", Terms{GrossPremium: 100, CommissionPct: 5, Panel: domain.Panel{{ID: "a", SharePct: 100}}}, true, false},
		{"over-cession permitted by default", Terms{GrossPremium: 100, Panel: over}, false, false},
		{"over-cession rejected when strict", Terms{GrossPremium: 100, Panel: over}, true, true},
		{"negative commission", Terms{CommissionPct: -1}, false, true},
		{"negative tax", Terms{TaxPct: -0.5}, false, true},
		{"negative share", Terms{Panel: domain.Panel{{ID: "a", SharePct: -10}}}, false, true},
		{"negative panel commission", Terms{Panel: domain.Panel{{ID: "a", SharePct: 10, CommissionPct: -2}}}, false, true},
		{"NaN premium", Terms{GrossPremium: math.NaN()}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.terms, tt.strict)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePanel(t *testing.T) {
	assert.NoError(t, ValidatePanel(nil))
	assert.NoError(t, ValidatePanel(domain.Panel{{ID: "a", SharePct: 150, CommissionPct: 10}}))

	err := ValidatePanel(domain.Panel{{ID: "a", SharePct: 20}, {ID: "b", SharePct: math.Inf(1)}})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "reinsurers.b.share_pct")

	assert.ErrorIs(t, ValidatePanel(domain.Panel{{ID: "a", CommissionPct: math.NaN()}}), domain.ErrValidation)
}
