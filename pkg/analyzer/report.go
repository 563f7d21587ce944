package analyzer

import (
	"time"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/binance"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/coingecko"
)

// Snapshot is the raw data one analysis was computed from. OrderBook and
// Ticker are nil when the exchange could not serve them.
type Snapshot struct {
	Symbol    string                  `json:"symbol"`
	CoinID    string                  `json:"coin_id"`
	Name      string                  `json:"name"`
	Pair      string                  `json:"pair"`
	Market    *coingecko.MarketData   `json:"market"`
	History   *coingecko.PriceHistory `json:"history"`
	OrderBook *binance.OrderBook      `json:"order_book"`
	Ticker    *binance.Ticker24h      `json:"ticker"`
}

// Report is the outcome of one token analysis.
type Report struct {
	Symbol      string           `json:"requested_symbol"`
	Days        int              `json:"days"`
	Snapshot    Snapshot         `json:"snapshot"`
	Metrics     analysis.Result  `json:"metrics"`
	Signals     analysis.Signals `json:"signals"`
	Partial     bool             `json:"partial"`
	Warnings    []string         `json:"warnings,omitempty"`
	Cached      bool             `json:"cached"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Price returns the current USD price, or 0 without market data.
func (r *Report) Price() float64 {
	if r.Snapshot.Market == nil {
		return 0
	}
	return r.Snapshot.Market.PriceUSD
}

// Prices returns the price history, oldest first.
func (r *Report) Prices() []float64 {
	if r.Snapshot.History == nil {
		return nil
	}
	return r.Snapshot.History.Prices
}

// Volumes returns the volume history, oldest first.
func (r *Report) Volumes() []float64 {
	if r.Snapshot.History == nil {
		return nil
	}
	return r.Snapshot.History.Volumes
}

// Timestamps returns the history timestamps.
func (r *Report) Timestamps() []time.Time {
	if r.Snapshot.History == nil {
		return nil
	}
	return r.Snapshot.History.Timestamps
}
