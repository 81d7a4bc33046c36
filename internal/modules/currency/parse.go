package currency

import (
	"strconv"
	"strings"

	"github.com/mosaic-erp/reinsurance/internal/domain"
)

var amountNoise = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "$", "", "€", "", "%", "")

// ParseAmount parses spreadsheet-style numbers such as "$1,250,000", "1 250 000" or "12.5%".
// Blank input and a lone "-" mean "no value" (ok=false).
func ParseAmount(s string) (value float64, ok bool, err error) {
	cleaned := amountNoise.Replace(strings.TrimSpace(s))
	if cleaned == "" || cleaned == "-" {
		return 0, false, nil
	}
	v, perr := strconv.ParseFloat(cleaned, 64)
	if perr != nil {
		return 0, false, domain.NewValidationError("amount", "not a number: %q", s)
	}
	return v, true, nil
}
