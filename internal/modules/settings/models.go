package settings

import "fmt"

// Keys of runtime-adjustable settings
const (
	KeyRiskThresholdTerritory = "risk_threshold_territory"
	KeyRiskThresholdClass     = "risk_threshold_class"
	KeyRiskThresholdCedant    = "risk_threshold_cedant"
	KeyRiskTopN               = "risk_top_n"
	KeyMaxRateAgeHours        = "max_exchange_rate_age_hours"
)

// Definition describes one setting: its default and accepted range.
type Definition struct {
	Default     float64
	Min         float64 // exclusive
	Max         float64 // inclusive
	Integer     bool
	Description string
}

// Validate checks v against the definition's range.
func (d Definition) Validate(key string, v float64) error {
	if v <= d.Min || v > d.Max {
		return fmt.Errorf("%s must be in (%g, %g], got %g", key, d.Min, d.Max, v)
	}
	if d.Integer && v != float64(int(v)) {
		return fmt.Errorf("%s must be a whole number, got %g", key, v)
	}
	return nil
}

// Definitions lists every setting the API accepts. Defaults here are replaced by
// configuration values at startup (see Service.SetDefault).
var Definitions = map[string]Definition{
	KeyRiskThresholdTerritory: {Default: 25, Max: 100, Description: "Concentration alert threshold per territory (% of total exposure)"},
	KeyRiskThresholdClass:     {Default: 30, Max: 100, Description: "Concentration alert threshold per class of business (% of total exposure)"},
	KeyRiskThresholdCedant:    {Default: 15, Max: 100, Description: "Concentration alert threshold per cedant (% of total exposure)"},
	KeyRiskTopN:               {Default: 25, Max: 1000, Integer: true, Description: "Number of rows in the largest-exposures view"},
	KeyMaxRateAgeHours:        {Default: 48, Max: 24 * 365, Description: "Cached exchange rates older than this are reported as stale"},
}
