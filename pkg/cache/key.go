package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies one cached upstream response.
type CacheKey struct {
	// Provider is the upstream name (e.g., "coingecko", "binance")
	Provider string

	// Endpoint is the endpoint template (e.g., "/coins/{id}/market_chart")
	Endpoint string

	// Symbol is the coin id or trading pair the request is about
	Symbol string

	// Params are the query parameters that change the response
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: provider:endpoint:symbol:param1=val1:param2=val2
//
// Example:
//
//	coingecko:coins/{id}/market_chart:bitcoin:days=30:vs_currency=usd
func (k CacheKey) String() string {
	parts := []string{strings.ToLower(k.Provider)}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	if k.Symbol != "" {
		parts = append(parts, strings.ToLower(k.Symbol))
	}

	// Params sorted for determinism
	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := append([]string(nil), k.Params[name]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}
