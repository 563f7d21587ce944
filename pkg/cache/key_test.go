package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "provider and endpoint only",
			key: CacheKey{
				Provider: "coingecko",
				Endpoint: "/search",
			},
			want: "coingecko:search",
		},
		{
			name: "symbol is lowercased",
			key: CacheKey{
				Provider: "binance",
				Endpoint: "/ticker/24hr",
				Symbol:   "BTCUSDT",
			},
			want: "binance:ticker/24hr:btcusdt",
		},
		{
			name: "params sorted by name",
			key: CacheKey{
				Provider: "coingecko",
				Endpoint: "/coins/{id}/market_chart",
				Symbol:   "bitcoin",
				Params: url.Values{
					"vs_currency": []string{"usd"},
					"days":        []string{"30"},
				},
			},
			want: "coingecko:coins/{id}/market_chart:bitcoin:days=30:vs_currency=usd",
		},
		{
			name: "multi-valued param sorted",
			key: CacheKey{
				Provider: "coingecko",
				Endpoint: "/simple/price",
				Params: url.Values{
					"ids": []string{"eth", "btc"},
				},
			},
			want: "coingecko:simple/price:ids=btc,eth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCacheKey_Determinism ensures same input always produces same key
func TestCacheKey_Determinism(t *testing.T) {
	key := CacheKey{
		Provider: "binance",
		Endpoint: "/depth",
		Symbol:   "ETHUSDT",
		Params: url.Values{
			"limit":  []string{"100"},
			"symbol": []string{"ETHUSDT"},
			"a":      []string{"1"},
		},
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if got := key.String(); got != first {
			t.Errorf("iteration %d = %v, want %v (not deterministic)", i, got, first)
		}
	}
}
