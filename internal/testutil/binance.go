package testutil

import (
	"net/http"
	"strings"
	"sync"
)

// PairFixture describes one trading pair served by MockBinance.
type PairFixture struct {
	Symbol      string // e.g. "BTCUSDT"
	Bids        [][2]string
	Asks        [][2]string
	LastPrice   string
	QuoteVolume string
	UsedWeight  string
}

// MockBinance serves /depth and /ticker/24hr. Unknown pairs get Binance's
// 400 "Invalid symbol." response.
type MockBinance struct {
	*MockUpstream

	mu    sync.RWMutex
	pairs map[string]PairFixture
}

// NewMockBinance creates an empty mock; add pairs with AddPair.
func NewMockBinance() *MockBinance {
	m := &MockBinance{
		MockUpstream: NewMockUpstream(),
		pairs:        make(map[string]PairFixture),
	}
	m.SetHandler("/depth", m.handleDepth)
	m.SetHandler("/ticker/24hr", m.handleTicker)
	return m
}

// AddPair registers a pair.
func (m *MockBinance) AddPair(p PairFixture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs[strings.ToUpper(p.Symbol)] = p
}

func (m *MockBinance) lookup(w http.ResponseWriter, r *http.Request) (PairFixture, bool) {
	m.mu.RLock()
	p, ok := m.pairs[r.URL.Query().Get("symbol")]
	m.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusBadRequest, `{"code":-1121,"msg":"Invalid symbol."}`)
		return PairFixture{}, false
	}
	if p.UsedWeight != "" {
		w.Header().Set("X-MBX-USED-WEIGHT-1M", p.UsedWeight)
	}
	return p, true
}

func (m *MockBinance) handleDepth(w http.ResponseWriter, r *http.Request) {
	p, ok := m.lookup(w, r)
	if !ok {
		return
	}
	bids := p.Bids
	if bids == nil {
		bids = [][2]string{}
	}
	asks := p.Asks
	if asks == nil {
		asks = [][2]string{}
	}
	writeValue(w, map[string]any{
		"lastUpdateId": 1027024,
		"bids":         bids,
		"asks":         asks,
	})
}

func (m *MockBinance) handleTicker(w http.ResponseWriter, r *http.Request) {
	p, ok := m.lookup(w, r)
	if !ok {
		return
	}
	writeValue(w, map[string]any{
		"symbol":             p.Symbol,
		"lastPrice":          orZero(p.LastPrice),
		"priceChangePercent": "1.250",
		"volume":             "1000.0",
		"quoteVolume":        orZero(p.QuoteVolume),
	})
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
