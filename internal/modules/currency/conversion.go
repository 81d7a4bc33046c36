// Package currency converts amounts between a contract's written currency and the
// national reporting currency, and provides the approximate USD view used only for
// portfolio aggregation.
package currency

// ToNational converts a written-currency amount using rate (national units per written unit).
func ToNational(amountWritten, rate float64) float64 {
	return amountWritten * rate
}

// ToWritten converts a national-currency amount back. A non-positive rate yields 0.
func ToWritten(amountNational, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return amountNational / rate
}
