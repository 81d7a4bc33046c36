package domain

import "context"

// RateLookup returns how many units of `to` one unit of `from` buys.
// Implemented by the exchange-rate API client.
type RateLookup interface {
	GetRate(ctx context.Context, from, to string) (float64, error)
}
