package clientdata

import "time"

// TTL constants, added to time.Now() when storing.
const (
	// TTLExchangeRate bounds how long a national rate is served without asking the API.
	TTLExchangeRate = 6 * time.Hour
	// TTLUSDRate covers the coarse USD table used by portfolio aggregation.
	TTLUSDRate = 24 * time.Hour
)
