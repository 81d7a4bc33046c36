package risk

import (
	"testing"

	"github.com/mosaic-erp/reinsurance/internal/modules/currency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usdRow(ref string, limit float64) PortfolioRow {
	return PortfolioRow{Reference: ref, Currency: "USD", Limit: limit, Status: "ACTIVE"}
}

func TestAggregate_SingleTerritoryIsFullyConcentrated(t *testing.T) {
	rows := []PortfolioRow{usdRow("A", 600), usdRow("B", 300), usdRow("C", 100)}
	for i := range rows {
		rows[i].Territory = "Kazakhstan"
	}

	agg := NewAggregator(currency.DefaultUSDTable, DefaultThresholds)
	buckets := agg.Aggregate(rows, KeyTerritory)
	require.Len(t, buckets, 1)
	assert.Equal(t, 3, buckets[0].Count)
	assert.InDelta(t, 1000, buckets[0].TotalLimit, 1e-9)
	assert.InDelta(t, 100, buckets[0].PctOfPortfolio, 1e-9)

	alerts := Flag(DimensionTerritory, buckets, 25)
	require.Len(t, alerts, 1)
	assert.True(t, buckets[0].Concentrated)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)
}

func TestFlag_BoundaryIsInclusive(t *testing.T) {
	rows := []PortfolioRow{usdRow("A", 300), usdRow("B", 700)}
	rows[0].Class = "Property"
	rows[1].Class = "Marine"

	agg := NewAggregator(nil, DefaultThresholds)
	buckets := agg.Aggregate(rows, KeyClass)
	require.Len(t, buckets, 2)
	assert.Equal(t, "Marine", buckets[0].Key)
	assert.Equal(t, "Property", buckets[1].Key)
	assert.InDelta(t, 30, buckets[1].PctOfPortfolio, 1e-9)

	alerts := Flag(DimensionClass, buckets, 30)
	require.Len(t, alerts, 2)
	assert.True(t, buckets[1].Concentrated)
	assert.Equal(t, SeverityWarning, alerts[1].Severity)
}

func TestFlag_BelowThresholdAndDisabled(t *testing.T) {
	buckets := []Bucket{{Key: "x", PctOfPortfolio: 14.99}}
	assert.Empty(t, Flag(DimensionCedant, buckets, 15))
	assert.False(t, buckets[0].Concentrated)
	assert.Empty(t, Flag(DimensionCedant, buckets, 0))
}

func TestTopRisks_OrdersByUSDLimit(t *testing.T) {
	rows := []PortfolioRow{usdRow("small-ish", 50), usdRow("largest", 200), usdRow("smallest", 10)}
	agg := NewAggregator(currency.DefaultUSDTable, DefaultThresholds)

	top := agg.TopRisks(rows, 25)
	require.Len(t, top, 3)
	assert.Equal(t, []float64{200, 50, 10}, []float64{top[0].LimitUSD, top[1].LimitUSD, top[2].LimitUSD})

	top = agg.TopRisks(rows, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "largest", top[0].Reference)
}

func TestInForce_FiltersCaseInsensitively(t *testing.T) {
	rows := []PortfolioRow{
		{Status: "active"},
		{Status: " Pending "},
		{Status: "NTU"},
		{Status: "CANCELLED"},
		{Status: ""},
	}
	assert.Len(t, InForce(rows), 2)
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		fn   KeyFunc
		row  PortfolioRow
		want string
	}{
		{"class prefix stripped", KeyClass, PortfolioRow{Class: "07. Fire"}, "Fire"},
		{"class dash prefix", KeyClass, PortfolioRow{Class: "12 - Engineering"}, "Engineering"},
		{"class missing", KeyClass, PortfolioRow{}, Unspecified},
		{"territory trimmed", KeyTerritory, PortfolioRow{Territory: " Uzbekistan "}, "Uzbekistan"},
		{"territory missing", KeyTerritory, PortfolioRow{}, Unspecified},
		{"cedant", KeyCedant, PortfolioRow{CedantName: "Alpha Re", InsuredName: "Plant"}, "Alpha Re"},
		{"cedant falls back to insured", KeyCedant, PortfolioRow{InsuredName: "Plant"}, "Plant"},
		{"cedant missing", KeyCedant, PortfolioRow{}, Unspecified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.row))
		})
	}
}

func TestSummary_ConvertsToUSD(t *testing.T) {
	rows := []PortfolioRow{
		{Currency: "UZS", Limit: 12_800_000, GrossPremium: 128_000, Territory: "Uzbekistan", Class: "Fire", Status: "ACTIVE"},
		{Currency: "EUR", Limit: 1000, GrossPremium: 100, Territory: "Germany", Class: "Fire", Status: "PENDING"},
		{Currency: "USD", Limit: 99999, Status: "NTU"},
	}
	s := NewAggregator(currency.DefaultUSDTable, DefaultThresholds).Summary(rows)

	assert.Equal(t, 2, s.TotalContracts)
	assert.InDelta(t, 1000+1080, s.TotalExposure, 1e-6)
	assert.InDelta(t, 10+108, s.TotalPremium, 1e-6)
	assert.InDelta(t, 1080, s.LargestSingleRisk, 1e-6)
	assert.Equal(t, 2, s.Territories)
	assert.Equal(t, 1, s.Classes)

	assert.Equal(t, Summary{}, NewAggregator(nil, DefaultThresholds).Summary(nil))
}

func TestAggregate_ZeroTotalYieldsZeroShare(t *testing.T) {
	rows := []PortfolioRow{usdRow("A", 0), usdRow("B", 0)}
	buckets := NewAggregator(nil, DefaultThresholds).Aggregate(rows, KeyTerritory)
	require.Len(t, buckets, 1)
	assert.Equal(t, 0.0, buckets[0].PctOfPortfolio)
}

func TestHHI(t *testing.T) {
	assert.Equal(t, 0.0, HHI(nil))
	assert.InDelta(t, 1, HHI([]Bucket{{PctOfPortfolio: 100}}), 1e-12)
	assert.InDelta(t, 0.25, HHI([]Bucket{
		{PctOfPortfolio: 25}, {PctOfPortfolio: 25}, {PctOfPortfolio: 25}, {PctOfPortfolio: 25},
	}), 1e-12)
}

func TestReport_CollectsAlertsAcrossDimensions(t *testing.T) {
	rows := []PortfolioRow{
		{Reference: "1", Currency: "USD", Limit: 500, Territory: "A", Class: "Fire", CedantName: "X", Status: "ACTIVE"},
		{Reference: "2", Currency: "USD", Limit: 500, Territory: "B", Class: "Marine", CedantName: "Y", Status: "ACTIVE"},
	}
	rep := NewAggregator(nil, Thresholds{Territory: 60, Class: 50, Cedant: 0}).Report(rows, 0)

	require.Len(t, rep.Alerts, 2)
	for _, a := range rep.Alerts {
		assert.Equal(t, DimensionClass, a.Dimension)
	}
	assert.InDelta(t, 0.5, rep.HHI[DimensionTerritory], 1e-12)
	assert.Len(t, rep.TopRisks, 2)
	assert.Equal(t, 2, rep.Summary.TotalContracts)
}
