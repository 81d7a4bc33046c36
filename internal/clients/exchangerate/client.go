// Package exchangerate provides currency exchange rate fetching and caching functionality.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/clientdata"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public exchangerate-api.com endpoint.
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// Client for exchangerate-api.com
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new exchangerate-api.com client.
// cacheRepo is optional - if nil, caching is disabled. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "exchangerate-api").Logger(),
		cacheRepo: cacheRepo,
	}
}

type cachedExchangeRate struct {
	Rate float64 `json:"rate"`
}

// GetRate returns how many units of toCurrency one unit of fromCurrency buys.
// Fresh cache wins; otherwise the API is asked, and stale cache is served if the API fails.
func (c *Client) GetRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error) {
	fromCurrency = strings.ToUpper(fromCurrency)
	toCurrency = strings.ToUpper(toCurrency)
	if fromCurrency == toCurrency {
		return 1.0, nil
	}

	cacheKey := fromCurrency + ":" + toCurrency

	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh(ctx, clientdata.TableExchangeRate, cacheKey)
		if err == nil && data != nil {
			var cached cachedExchangeRate
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("pair", cacheKey).Float64("rate", cached.Rate).Msg("Cache hit")
				return cached.Rate, nil
			}
		}
	}

	rates, err := c.GetRates(ctx, fromCurrency)
	if err != nil {
		if staleRate, ok := c.getStaleFromCache(ctx, cacheKey); ok {
			c.log.Warn().Err(err).Str("pair", cacheKey).Float64("rate", staleRate).Msg("API failed, using stale cached rate")
			return staleRate, nil
		}
		return 0, err
	}

	rate, exists := rates[toCurrency]
	if !exists || rate <= 0 {
		if staleRate, ok := c.getStaleFromCache(ctx, cacheKey); ok {
			c.log.Warn().Str("pair", cacheKey).Float64("rate", staleRate).Msg("Rate not in API response, using stale cached rate")
			return staleRate, nil
		}
		return 0, fmt.Errorf("rate not found for %s->%s", fromCurrency, toCurrency)
	}

	c.log.Info().Str("pair", cacheKey).Float64("rate", rate).Msg("Fetched rate")
	return rate, nil
}

// GetRates fetches every rate quoted against base and caches each pair.
func (c *Client) GetRates(ctx context.Context, base string) (map[string]float64, error) {
	base = strings.ToUpper(base)
	url := fmt.Sprintf("%s/%s", c.baseURL, base)
	c.log.Debug().Str("url", url).Msg("Fetching rates")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Rates) == 0 {
		return nil, fmt.Errorf("API returned no rates for %s", base)
	}

	if c.cacheRepo != nil {
		for code, rate := range result.Rates {
			if rate <= 0 || code == base {
				continue
			}
			key := base + ":" + code
			if err := c.cacheRepo.Store(ctx, clientdata.TableExchangeRate, key, cachedExchangeRate{Rate: rate}, clientdata.TTLExchangeRate); err != nil {
				c.log.Warn().Err(err).Str("pair", key).Msg("Failed to cache exchange rate")
				break
			}
		}
	}

	return result.Rates, nil
}

// getStaleFromCache retrieves a cached rate even if expired.
func (c *Client) getStaleFromCache(ctx context.Context, cacheKey string) (float64, bool) {
	if c.cacheRepo == nil {
		return 0, false
	}

	data, err := c.cacheRepo.Get(ctx, clientdata.TableExchangeRate, cacheKey)
	if err != nil || data == nil {
		return 0, false
	}

	var cached cachedExchangeRate
	if err := json.Unmarshal(data, &cached); err != nil {
		return 0, false
	}
	return cached.Rate, true
}
