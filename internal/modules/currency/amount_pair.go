package currency

import (
	"strings"

	"github.com/mosaic-erp/reinsurance/internal/domain"
)

// Side names which half of an AmountPair the user entered.
type Side string

const (
	SideWritten  Side = "written"
	SideNational Side = "national"
)

// ParseSide normalizes a side name; empty means written.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "written", "foreign":
		return SideWritten, nil
	case "national", "local":
		return SideNational, nil
	}
	return "", domain.NewValidationError("side", "unknown side %q", s)
}

// AmountPair tracks one amount in both currencies. Only Side is ever edited;
// the other half is always derived from it, so the two cannot drift apart.
type AmountPair struct {
	Written  float64 `json:"written" msgpack:"written"`
	National float64 `json:"national" msgpack:"national"`
	Side     Side    `json:"side" msgpack:"side"`
}

// NewAmountPair builds a pair from an amount entered on side.
func NewAmountPair(side Side, value, rate float64) AmountPair {
	return AmountPair{}.Set(side, value, rate)
}

// Set makes side authoritative with value and recomputes the other half.
func (a AmountPair) Set(side Side, value, rate float64) AmountPair {
	if side == SideNational {
		return AmountPair{Written: ToWritten(value, rate), National: value, Side: SideNational}
	}
	return AmountPair{Written: value, National: ToNational(value, rate), Side: SideWritten}
}

// Rebase recomputes the derived half after the exchange rate changed.
func (a AmountPair) Rebase(rate float64) AmountPair {
	if a.Side == SideNational {
		return a.Set(SideNational, a.National, rate)
	}
	return a.Set(SideWritten, a.Written, rate)
}

// Authoritative returns the value on the edited side.
func (a AmountPair) Authoritative() float64 {
	if a.Side == SideNational {
		return a.National
	}
	return a.Written
}
