// Package binance fetches order books and 24h tickers from the Binance
// spot REST API.
package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/JackSmack1971/microanalyst-tools/pkg/cache"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/ratelimit"
)

// Provider is the name used in cache keys, logs and errors.
const Provider = "binance"

// DefaultBaseURL is the Binance.US spot API.
const DefaultBaseURL = "https://api.binance.us/api/v3"

// WeightHeader reports the request weight used in the current minute.
const WeightHeader = "X-MBX-USED-WEIGHT-1M"

// validDepthLimits are the limits accepted by /depth.
var validDepthLimits = []int{5, 10, 20, 50, 100, 500, 1000, 5000}

// Config configures the fetcher.
type Config struct {
	BaseURL     string
	QuoteAsset  string
	DepthLimit  int
	WeightLimit int
	Timeout     time.Duration
	Retry       client.RetryPolicy
}

// DefaultConfig returns USDT pairs, 100 book levels and a 1200 weight budget.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		QuoteAsset:  "USDT",
		DepthLimit:  100,
		WeightLimit: 1200,
		Timeout:     10 * time.Second,
		Retry:       client.DefaultRetryPolicy(),
	}
}

// ValidDepthLimit reports whether n is accepted by the depth endpoint.
func ValidDepthLimit(n int) bool {
	for _, v := range validDepthLimits {
		if v == n {
			return true
		}
	}
	return false
}

// Fetcher talks to Binance.
type Fetcher struct {
	client *client.Client
	config Config
}

// New creates a fetcher sharing cacheManager with the other providers.
func New(cfg Config, cacheManager *cache.Manager, ttl cache.TTLPolicy) (*Fetcher, error) {
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	if !ValidDepthLimit(cfg.DepthLimit) {
		return nil, fmt.Errorf("invalid depth limit %d (allowed: %v)", cfg.DepthLimit, validDepthLimits)
	}

	clientCfg := client.DefaultConfig(Provider, cfg.BaseURL)
	if cfg.Timeout > 0 {
		clientCfg.Timeout = cfg.Timeout
	}
	clientCfg.Retry = cfg.Retry

	logger := log.With().Str("component", "ratelimit").Str("provider", Provider).Logger()
	tracker := ratelimit.NewTracker(Provider, ratelimit.Config{
		WeightHeader:  WeightHeader,
		WeightLimit:   cfg.WeightLimit,
		ThrottleDelay: time.Second,
	}, logger)

	c, err := client.New(clientCfg, cacheManager, ttl, tracker)
	if err != nil {
		return nil, fmt.Errorf("create binance client: %w", err)
	}
	return &Fetcher{client: c, config: cfg}, nil
}

// Client exposes the underlying HTTP client.
func (f *Fetcher) Client() *client.Client {
	return f.client
}

// Pair returns the trading pair for symbol, e.g. "btc" -> "BTCUSDT".
func (f *Fetcher) Pair(symbol string) string {
	return Pair(symbol, f.config.QuoteAsset)
}

// Pair joins an upper-cased base symbol and quote asset.
func Pair(symbol, quote string) string {
	return strings.ToUpper(strings.TrimSpace(symbol)) + strings.ToUpper(quote)
}

// FetchOrderBook fetches the top levels of the symbol's order book.
func (f *Fetcher) FetchOrderBook(ctx context.Context, symbol string) (*OrderBook, error) {
	pair := f.Pair(symbol)

	var resp depthResponse
	_, err := f.client.GetJSON(ctx, client.Request{
		Endpoint: "/depth",
		Symbol:   pair,
		Params: url.Values{
			"symbol": []string{pair},
			"limit":  []string{strconv.Itoa(f.config.DepthLimit)},
		},
		Category: cache.CategorySpot,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("order book for %s: %w", pair, invalidSymbolAsNotFound(err))
	}
	return resp.toOrderBook(pair), nil
}

// FetchTicker fetches the 24h rolling ticker of the symbol's pair.
func (f *Fetcher) FetchTicker(ctx context.Context, symbol string) (*Ticker24h, error) {
	pair := f.Pair(symbol)

	var t Ticker24h
	_, err := f.client.GetJSON(ctx, client.Request{
		Endpoint: "/ticker/24hr",
		Symbol:   pair,
		Params:   url.Values{"symbol": []string{pair}},
		Category: cache.CategorySpot,
	}, &t)
	if err != nil {
		return nil, fmt.Errorf("ticker for %s: %w", pair, invalidSymbolAsNotFound(err))
	}
	if t.Symbol == "" {
		t.Symbol = pair
	}
	return &t, nil
}

// invalidSymbolAsNotFound maps Binance's 400 "Invalid symbol." to NotFound.
func invalidSymbolAsNotFound(err error) error {
	var fe *client.FetchError
	if errors.As(err, &fe) && fe.StatusCode == http.StatusBadRequest &&
		fe.Err != nil && strings.Contains(fe.Err.Error(), "-1121") {
		fe.Kind = client.KindNotFound
	}
	return err
}
