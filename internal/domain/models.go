// Package domain provides core domain models, error kinds and shared interfaces.
package domain

import "strings"

// Currency represents an ISO 4217 currency code
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyUZS Currency = "UZS"
	CurrencyRUB Currency = "RUB"
	CurrencyKZT Currency = "KZT"
	CurrencyCNY Currency = "CNY"
)

// NormalizeCurrency upper-cases and trims a code. Empty input defaults to USD,
// matching how imported contracts without a currency are treated.
func NormalizeCurrency(code string) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return CurrencyUSD
	}
	return Currency(code)
}

// Channel is the business channel a policy belongs to
type Channel string

const (
	ChannelDirect  Channel = "Direct"
	ChannelInward  Channel = "Inward"
	ChannelOutward Channel = "Outward"
)

// ParseChannel normalizes a channel name case-insensitively.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct":
		return ChannelDirect, nil
	case "inward":
		return ChannelInward, nil
	case "outward":
		return ChannelOutward, nil
	}
	return "", NewValidationError("channel", "unknown channel %q", s)
}

// Origin classifies inward business relative to the home market
type Origin string

const (
	OriginDomestic Origin = "DOMESTIC"
	OriginForeign  Origin = "FOREIGN"
)

// DetermineOrigin returns DOMESTIC when the territory names the home market
// (substring match, or an exact match on its short code) or the contract is written
// in the national currency; FOREIGN otherwise.
func DetermineOrigin(territory string, currency Currency, homeTerritory, homeCode string, national Currency) Origin {
	t := strings.ToLower(strings.TrimSpace(territory))
	if t != "" {
		if homeTerritory != "" && strings.Contains(t, strings.ToLower(homeTerritory)) {
			return OriginDomestic
		}
		if homeCode != "" && t == strings.ToLower(homeCode) {
			return OriginDomestic
		}
	}
	if national != "" && NormalizeCurrency(string(currency)) == national {
		return OriginDomestic
	}
	return OriginForeign
}
