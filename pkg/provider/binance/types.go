package binance

import (
	"github.com/shopspring/decimal"
)

// Level is one price level of an order book.
type Level struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Notional returns price * quantity.
func (l Level) Notional() decimal.Decimal {
	return l.Price.Mul(l.Quantity)
}

// OrderBook holds bids (best first, descending) and asks (best first, ascending).
type OrderBook struct {
	Symbol       string  `json:"symbol"`
	LastUpdateID int64   `json:"last_update_id"`
	Bids         []Level `json:"bids"`
	Asks         []Level `json:"asks"`
}

// BestBid returns the highest bid.
func (b *OrderBook) BestBid() (Level, bool) {
	if b == nil || len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask.
func (b *OrderBook) BestAsk() (Level, bool) {
	if b == nil || len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// Ticker24h is the rolling 24h ticker of a pair.
type Ticker24h struct {
	Symbol             string          `json:"symbol"`
	LastPrice          decimal.Decimal `json:"lastPrice"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	Volume             decimal.Decimal `json:"volume"`
	QuoteVolume        decimal.Decimal `json:"quoteVolume"`
}

type depthResponse struct {
	LastUpdateID int64                `json:"lastUpdateId"`
	Bids         [][2]decimal.Decimal `json:"bids"`
	Asks         [][2]decimal.Decimal `json:"asks"`
}

func (r *depthResponse) toOrderBook(pair string) *OrderBook {
	book := &OrderBook{
		Symbol:       pair,
		LastUpdateID: r.LastUpdateID,
		Bids:         make([]Level, 0, len(r.Bids)),
		Asks:         make([]Level, 0, len(r.Asks)),
	}
	for _, l := range r.Bids {
		book.Bids = append(book.Bids, Level{Price: l[0], Quantity: l[1]})
	}
	for _, l := range r.Asks {
		book.Asks = append(book.Asks, Level{Price: l[0], Quantity: l[1]})
	}
	return book
}
