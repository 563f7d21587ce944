package testutil

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
)

// CoinFixture describes one coin served by MockCoinGecko.
type CoinFixture struct {
	ID        string
	Symbol    string
	Name      string
	Rank      int
	Price     float64
	MarketCap float64
	Volume24h float64
	Prices    []float64
	Volumes   []float64
}

// MockCoinGecko serves /search, /coins/{id} and /coins/{id}/market_chart.
type MockCoinGecko struct {
	*MockUpstream

	mu    sync.RWMutex
	coins []CoinFixture
}

// NewMockCoinGecko creates an empty mock; add coins with AddCoin.
func NewMockCoinGecko() *MockCoinGecko {
	m := &MockCoinGecko{MockUpstream: NewMockUpstream()}
	m.SetHandler("/search", m.handleSearch)
	return m
}

// AddCoin registers a coin and its endpoints.
func (m *MockCoinGecko) AddCoin(c CoinFixture) {
	m.mu.Lock()
	m.coins = append(m.coins, c)
	m.mu.Unlock()

	m.SetHandler("/coins/"+c.ID, func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, coinBody(c))
	})
	m.SetHandler("/coins/"+c.ID+"/market_chart", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, chartBody(c))
	})
}

func (m *MockCoinGecko) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(r.URL.Query().Get("query"))

	m.mu.RLock()
	defer m.mu.RUnlock()

	type coin struct {
		ID            string `json:"id"`
		Symbol        string `json:"symbol"`
		Name          string `json:"name"`
		MarketCapRank int    `json:"market_cap_rank"`
	}
	out := struct {
		Coins []coin `json:"coins"`
	}{Coins: []coin{}}

	for _, c := range m.coins {
		if strings.Contains(strings.ToLower(c.Symbol), query) || strings.Contains(c.ID, query) {
			out.Coins = append(out.Coins, coin{c.ID, strings.ToUpper(c.Symbol), c.Name, c.Rank})
		}
	}
	writeValue(w, out)
}

func coinBody(c CoinFixture) map[string]any {
	return map[string]any{
		"id":              c.ID,
		"symbol":          strings.ToLower(c.Symbol),
		"name":            c.Name,
		"market_cap_rank": c.Rank,
		"last_updated":    "2024-05-01T12:00:00.000Z",
		"market_data": map[string]any{
			"current_price":               map[string]float64{"usd": c.Price},
			"market_cap":                  map[string]float64{"usd": c.MarketCap},
			"total_volume":                map[string]float64{"usd": c.Volume24h},
			"ath_change_percentage":       map[string]float64{"usd": -12.5},
			"price_change_percentage_24h": 1.25,
			"circulating_supply":          19000000.0,
			"total_supply":                nil,
		},
	}
}

func chartBody(c CoinFixture) map[string]any {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	prices := make([][2]float64, len(c.Prices))
	volumes := make([][2]float64, len(c.Prices))
	for i, p := range c.Prices {
		ts := float64(start.Add(time.Duration(i) * 24 * time.Hour).UnixMilli())
		prices[i] = [2]float64{ts, p}
		v := 0.0
		if i < len(c.Volumes) {
			v = c.Volumes[i]
		}
		volumes[i] = [2]float64{ts, v}
	}
	return map[string]any{
		"prices":        prices,
		"market_caps":   [][2]float64{},
		"total_volumes": volumes,
	}
}

func writeValue(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
