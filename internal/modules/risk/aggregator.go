package risk

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mosaic-erp/reinsurance/internal/modules/currency"
	"gonum.org/v1/gonum/floats"
)

// Unspecified is the bucket key for rows missing the grouping attribute.
const Unspecified = "Unspecified"

// DefaultTopN is the size of the largest-exposures view.
const DefaultTopN = 25

// criticalFactor marks an alert critical once a bucket reaches this multiple of its threshold.
const criticalFactor = 1.5

// epsilon absorbs float noise so a bucket sitting exactly on a threshold is flagged.
const epsilon = 1e-9

var classPrefix = regexp.MustCompile(`^\s*\d+[\s.\-)]*`)

// KeyFunc extracts the grouping key of a row.
type KeyFunc func(PortfolioRow) string

// KeyTerritory groups by territory.
func KeyTerritory(r PortfolioRow) string {
	return orUnspecified(r.Territory)
}

// KeyClass groups by class of business with any numeric code prefix ("07. Fire") removed.
func KeyClass(r PortfolioRow) string {
	return orUnspecified(classPrefix.ReplaceAllString(r.Class, ""))
}

// KeyCedant groups by cedant, falling back to the insured name.
func KeyCedant(r PortfolioRow) string {
	if k := strings.TrimSpace(r.CedantName); k != "" {
		return k
	}
	return orUnspecified(r.InsuredName)
}

func orUnspecified(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return Unspecified
}

// InForce keeps rows whose status is ACTIVE or PENDING, compared case-insensitively.
func InForce(rows []PortfolioRow) []PortfolioRow {
	out := make([]PortfolioRow, 0, len(rows))
	for _, r := range rows {
		switch strings.ToUpper(strings.TrimSpace(r.Status)) {
		case "ACTIVE", "PENDING":
			out = append(out, r)
		}
	}
	return out
}

// Aggregator computes exposure views. It performs no I/O; USD rates come from the
// provider, which should be a pre-loaded snapshot.
type Aggregator struct {
	rates      currency.USDRateProvider
	thresholds Thresholds
}

// NewAggregator creates an aggregator. A nil provider falls back to the fixed table.
func NewAggregator(rates currency.USDRateProvider, thresholds Thresholds) *Aggregator {
	if rates == nil {
		rates = currency.DefaultUSDTable
	}
	return &Aggregator{rates: rates, thresholds: thresholds}
}

// Thresholds returns the configured limits.
func (a *Aggregator) Thresholds() Thresholds {
	return a.thresholds
}

func (a *Aggregator) limitUSD(r PortfolioRow) float64 {
	return currency.ToUSD(a.rates, r.Limit, r.Currency)
}

func (a *Aggregator) premiumUSD(r PortfolioRow) float64 {
	return currency.ToUSD(a.rates, r.GrossPremium, r.Currency)
}

// Summary computes totals over in-force rows.
func (a *Aggregator) Summary(rows []PortfolioRow) Summary {
	rows = InForce(rows)
	if len(rows) == 0 {
		return Summary{}
	}

	limits := make([]float64, len(rows))
	premiums := make([]float64, len(rows))
	territories := make(map[string]struct{})
	classes := make(map[string]struct{})
	for i, r := range rows {
		limits[i] = a.limitUSD(r)
		premiums[i] = a.premiumUSD(r)
		territories[KeyTerritory(r)] = struct{}{}
		classes[KeyClass(r)] = struct{}{}
	}

	return Summary{
		TotalContracts:    len(rows),
		TotalExposure:     floats.Sum(limits),
		TotalPremium:      floats.Sum(premiums),
		LargestSingleRisk: floats.Max(limits),
		Territories:       len(territories),
		Classes:           len(classes),
	}
}

// Aggregate buckets in-force rows by key, sorted by total limit descending (ties by key).
// Concentration flags are not set; see Flag.
func (a *Aggregator) Aggregate(rows []PortfolioRow, key KeyFunc) []Bucket {
	rows = InForce(rows)

	index := make(map[string]int)
	var buckets []Bucket
	total := 0.0
	for _, r := range rows {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, Bucket{Key: k})
		}
		limit := a.limitUSD(r)
		buckets[i].Count++
		buckets[i].TotalLimit += limit
		buckets[i].TotalPremium += a.premiumUSD(r)
		total += limit
	}

	for i := range buckets {
		if total > 0 {
			buckets[i].PctOfPortfolio = buckets[i].TotalLimit / total * 100
		}
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].TotalLimit != buckets[j].TotalLimit {
			return buckets[i].TotalLimit > buckets[j].TotalLimit
		}
		return buckets[i].Key < buckets[j].Key
	})
	return buckets
}

// Flag marks buckets at or above threshold and returns an alert for each.
func Flag(d Dimension, buckets []Bucket, threshold float64) []ConcentrationAlert {
	var alerts []ConcentrationAlert
	if threshold <= 0 {
		return alerts
	}
	for i := range buckets {
		pct := buckets[i].PctOfPortfolio
		if pct+epsilon < threshold {
			continue
		}
		buckets[i].Concentrated = true

		severity := SeverityWarning
		if pct+epsilon >= threshold*criticalFactor {
			severity = SeverityCritical
		}
		alerts = append(alerts, ConcentrationAlert{
			Dimension:      d,
			Key:            buckets[i].Key,
			PctOfPortfolio: pct,
			Threshold:      threshold,
			Severity:       severity,
		})
	}
	return alerts
}

// HHI is the Herfindahl-Hirschman index of the buckets' portfolio shares, in [0, 1].
// 1/N means evenly spread, 1 means everything in one bucket.
func HHI(buckets []Bucket) float64 {
	if len(buckets) == 0 {
		return 0
	}
	shares := make([]float64, len(buckets))
	for i, b := range buckets {
		shares[i] = b.PctOfPortfolio / 100
	}
	return floats.Dot(shares, shares)
}

// TopRisks returns the n in-force rows with the largest USD limit.
func (a *Aggregator) TopRisks(rows []PortfolioRow, n int) []RankedRisk {
	rows = InForce(rows)
	ranked := make([]RankedRisk, len(rows))
	for i, r := range rows {
		ranked[i] = RankedRisk{PortfolioRow: r, LimitUSD: a.limitUSD(r), PremiumUSD: a.premiumUSD(r)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].LimitUSD > ranked[j].LimitUSD })
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Report runs every view over one snapshot.
func (a *Aggregator) Report(rows []PortfolioRow, topN int) Report {
	if topN <= 0 {
		topN = DefaultTopN
	}
	rep := Report{
		Summary:     a.Summary(rows),
		ByTerritory: a.Aggregate(rows, KeyTerritory),
		ByClass:     a.Aggregate(rows, KeyClass),
		ByCedant:    a.Aggregate(rows, KeyCedant),
		TopRisks:    a.TopRisks(rows, topN),
		Thresholds:  a.thresholds,
		Alerts:      []ConcentrationAlert{},
	}

	rep.Alerts = append(rep.Alerts, Flag(DimensionTerritory, rep.ByTerritory, a.thresholds.Territory)...)
	rep.Alerts = append(rep.Alerts, Flag(DimensionClass, rep.ByClass, a.thresholds.Class)...)
	rep.Alerts = append(rep.Alerts, Flag(DimensionCedant, rep.ByCedant, a.thresholds.Cedant)...)

	rep.HHI = map[Dimension]float64{
		DimensionTerritory: HHI(rep.ByTerritory),
		DimensionClass:     HHI(rep.ByClass),
		DimensionCedant:    HHI(rep.ByCedant),
	}
	return rep
}
