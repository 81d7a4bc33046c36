package currency

import (
	"bytes"
	"encoding/json"
)

// Amount is a float64 that also accepts spreadsheet-style strings when decoded from
// JSON. Blank strings, "-" and null decode to zero.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, _, err := ParseAmount(s)
		if err != nil {
			return err
		}
		*a = Amount(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*a = Amount(v)
	return nil
}

// Float returns the plain value.
func (a Amount) Float() float64 { return float64(a) }

// FloatPtr converts an optional Amount.
func FloatPtr(a *Amount) *float64 {
	if a == nil {
		return nil
	}
	v := float64(*a)
	return &v
}
