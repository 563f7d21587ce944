package coingecko

import "time"

// Coin is one search result.
type Coin struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank int    `json:"market_cap_rank"`
}

// MarketData is the current market state of a coin in USD.
type MarketData struct {
	ID                string    `json:"id"`
	Symbol            string    `json:"symbol"`
	Name              string    `json:"name"`
	PriceUSD          float64   `json:"price_usd"`
	MarketCapUSD      float64   `json:"market_cap_usd"`
	MarketCapRank     int       `json:"market_cap_rank"`
	Volume24hUSD      float64   `json:"volume_24h_usd"`
	PriceChange24hPct float64   `json:"price_change_24h_pct"`
	ATHChangePct      float64   `json:"ath_change_pct"`
	CirculatingSupply float64   `json:"circulating_supply"`
	TotalSupply       *float64  `json:"total_supply"`
	LastUpdated       time.Time `json:"last_updated"`
}

// PriceHistory holds aligned daily series, oldest first.
type PriceHistory struct {
	Prices     []float64   `json:"prices"`
	Volumes    []float64   `json:"volumes"`
	Timestamps []time.Time `json:"timestamps"`
}

// Len returns the number of price points.
func (h *PriceHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Prices)
}

type searchResponse struct {
	Coins []Coin `json:"coins"`
}

type coinResponse struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	MarketCapRank int       `json:"market_cap_rank"`
	LastUpdated   time.Time `json:"last_updated"`
	MarketData    struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		MarketCap                map[string]float64 `json:"market_cap"`
		TotalVolume              map[string]float64 `json:"total_volume"`
		ATHChangePercentage      map[string]float64 `json:"ath_change_percentage"`
		PriceChangePercentage24h *float64           `json:"price_change_percentage_24h"`
		CirculatingSupply        *float64           `json:"circulating_supply"`
		TotalSupply              *float64           `json:"total_supply"`
	} `json:"market_data"`
}

func (r *coinResponse) toMarketData() *MarketData {
	md := r.MarketData
	out := &MarketData{
		ID:            r.ID,
		Symbol:        r.Symbol,
		Name:          r.Name,
		PriceUSD:      md.CurrentPrice["usd"],
		MarketCapUSD:  md.MarketCap["usd"],
		MarketCapRank: r.MarketCapRank,
		Volume24hUSD:  md.TotalVolume["usd"],
		ATHChangePct:  md.ATHChangePercentage["usd"],
		TotalSupply:   md.TotalSupply,
		LastUpdated:   r.LastUpdated,
	}
	if md.PriceChangePercentage24h != nil {
		out.PriceChange24hPct = *md.PriceChangePercentage24h
	}
	if md.CirculatingSupply != nil {
		out.CirculatingSupply = *md.CirculatingSupply
	}
	return out
}

type marketChartResponse struct {
	Prices       [][]float64 `json:"prices"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

// toPriceHistory keeps only well-formed [timestamp_ms, value] pairs. Volumes
// are matched to prices by position and padded with zero when short.
func (r *marketChartResponse) toPriceHistory() *PriceHistory {
	h := &PriceHistory{}
	for i, p := range r.Prices {
		if len(p) < 2 {
			continue
		}
		h.Timestamps = append(h.Timestamps, time.UnixMilli(int64(p[0])).UTC())
		h.Prices = append(h.Prices, p[1])

		volume := 0.0
		if i < len(r.TotalVolumes) && len(r.TotalVolumes[i]) >= 2 {
			volume = r.TotalVolumes[i][1]
		}
		h.Volumes = append(h.Volumes, volume)
	}
	return h
}
