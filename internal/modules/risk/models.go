// Package risk rolls individual contracts into territory, class and cedant exposure
// views with concentration alerts.
package risk

// Source tells which book a portfolio row came from
type Source string

const (
	SourceDirect         Source = "direct"
	SourceInwardForeign  Source = "inward-foreign"
	SourceInwardDomestic Source = "inward-domestic"
	SourceOutward        Source = "outward"
)

// PortfolioRow is a read-only projection of one contract.
type PortfolioRow struct {
	Reference    string  `json:"reference"`
	InsuredName  string  `json:"insured_name"`
	CedantName   string  `json:"cedant_name"`
	Class        string  `json:"class"`
	Territory    string  `json:"territory"`
	Currency     string  `json:"currency"`
	Limit        float64 `json:"limit"`
	GrossPremium float64 `json:"gross_premium"`
	OurSharePct  float64 `json:"our_share_pct"`
	Status       string  `json:"status"`
	Source       Source  `json:"source"`
}

// Dimension is a grouping axis
type Dimension string

const (
	DimensionTerritory Dimension = "territory"
	DimensionClass     Dimension = "class"
	DimensionCedant    Dimension = "cedant"
)

// Thresholds are the concentration limits per dimension, in percent of total exposure.
type Thresholds struct {
	Territory float64 `json:"territory"`
	Class     float64 `json:"class"`
	Cedant    float64 `json:"cedant"`
}

// DefaultThresholds are the limits used when nothing is configured.
var DefaultThresholds = Thresholds{Territory: 25, Class: 30, Cedant: 15}

// For returns the threshold of d.
func (t Thresholds) For(d Dimension) float64 {
	switch d {
	case DimensionTerritory:
		return t.Territory
	case DimensionClass:
		return t.Class
	case DimensionCedant:
		return t.Cedant
	}
	return 0
}

// Summary holds portfolio-wide totals in USD.
type Summary struct {
	TotalContracts    int     `json:"total_contracts"`
	TotalExposure     float64 `json:"total_exposure_usd"`
	TotalPremium      float64 `json:"total_premium_usd"`
	LargestSingleRisk float64 `json:"largest_single_risk_usd"`
	Territories       int     `json:"territories"`
	Classes           int     `json:"classes"`
}

// Bucket is one group of an aggregation.
type Bucket struct {
	Key            string  `json:"key"`
	Count          int     `json:"count"`
	TotalLimit     float64 `json:"total_limit_usd"`
	TotalPremium   float64 `json:"total_premium_usd"`
	PctOfPortfolio float64 `json:"pct_of_portfolio"`
	Concentrated   bool    `json:"concentrated"`
}

// Severity grades a concentration alert
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ConcentrationAlert reports a bucket at or above its threshold.
type ConcentrationAlert struct {
	Dimension      Dimension `json:"dimension"`
	Key            string    `json:"key"`
	PctOfPortfolio float64   `json:"pct_of_portfolio"`
	Threshold      float64   `json:"threshold"`
	Severity       Severity  `json:"severity"`
}

// RankedRisk is a row with its USD equivalents, used by the top-risk view.
type RankedRisk struct {
	PortfolioRow
	LimitUSD   float64 `json:"limit_usd"`
	PremiumUSD float64 `json:"premium_usd"`
}

// Report is the full aggregation over one snapshot.
type Report struct {
	Summary     Summary               `json:"summary"`
	ByTerritory []Bucket              `json:"by_territory"`
	ByClass     []Bucket              `json:"by_class"`
	ByCedant    []Bucket              `json:"by_cedant"`
	HHI         map[Dimension]float64 `json:"hhi"`
	Alerts      []ConcentrationAlert  `json:"alerts"`
	TopRisks    []RankedRisk          `json:"top_risks"`
	Thresholds  Thresholds            `json:"thresholds"`
}
