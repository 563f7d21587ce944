// Package coingecko fetches coin metadata, market data and price history
// from the CoinGecko public API.
package coingecko

import (
	"context"
	"fmt"
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
const Provider = "coingecko"

// DefaultBaseURL is the public v3 API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Config configures the fetcher.
type Config struct {
	BaseURL     string
	MinInterval time.Duration
	Timeout     time.Duration
	Retry       client.RetryPolicy
}

// DefaultConfig paces requests 1.5s apart, which keeps the free tier happy.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		MinInterval: 1500 * time.Millisecond,
		Timeout:     10 * time.Second,
		Retry:       client.DefaultRetryPolicy(),
	}
}

// Fetcher talks to CoinGecko.
type Fetcher struct {
	client *client.Client
}

// New creates a fetcher sharing cacheManager with the other providers.
func New(cfg Config, cacheManager *cache.Manager, ttl cache.TTLPolicy) (*Fetcher, error) {
	clientCfg := client.DefaultConfig(Provider, cfg.BaseURL)
	if cfg.Timeout > 0 {
		clientCfg.Timeout = cfg.Timeout
	}
	clientCfg.Retry = cfg.Retry

	logger := log.With().Str("component", "ratelimit").Str("provider", Provider).Logger()
	tracker := ratelimit.NewTracker(Provider, ratelimit.Config{MinInterval: cfg.MinInterval}, logger)

	c, err := client.New(clientCfg, cacheManager, ttl, tracker)
	if err != nil {
		return nil, fmt.Errorf("create coingecko client: %w", err)
	}
	return &Fetcher{client: c}, nil
}

// Client exposes the underlying HTTP client.
func (f *Fetcher) Client() *client.Client {
	return f.client
}

// Search returns the coins matching query, best match first.
func (f *Fetcher) Search(ctx context.Context, query string) ([]Coin, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, notFound("/search", "empty query")
	}

	var resp searchResponse
	_, err := f.client.GetJSON(ctx, client.Request{
		Endpoint: "/search",
		Symbol:   query,
		Params:   url.Values{"query": []string{query}},
		Category: cache.CategoryMarket,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return resp.Coins, nil
}

// Resolve maps a ticker symbol to a coin: the first exact symbol match, else
// the first search result.
func (f *Fetcher) Resolve(ctx context.Context, symbol string) (Coin, error) {
	coins, err := f.Search(ctx, symbol)
	if err != nil {
		return Coin{}, err
	}
	coin, ok := PickCoin(coins, symbol)
	if !ok {
		return Coin{}, notFound("/search", fmt.Sprintf("no coin matches %q", symbol))
	}
	return coin, nil
}

// PickCoin applies the Resolve rule to a search result.
func PickCoin(coins []Coin, symbol string) (Coin, bool) {
	if len(coins) == 0 {
		return Coin{}, false
	}
	for _, c := range coins {
		if strings.EqualFold(c.Symbol, symbol) {
			return c, true
		}
	}
	return coins[0], true
}

// FetchMarketData resolves symbol and fetches its market data.
func (f *Fetcher) FetchMarketData(ctx context.Context, symbol string) (*MarketData, error) {
	coin, err := f.Resolve(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return f.FetchMarketDataByID(ctx, coin.ID)
}

// FetchMarketDataByID fetches market data for a CoinGecko coin id.
func (f *Fetcher) FetchMarketDataByID(ctx context.Context, id string) (*MarketData, error) {
	params := url.Values{
		"localization":   []string{"false"},
		"tickers":        []string{"false"},
		"market_data":    []string{"true"},
		"community_data": []string{"false"},
		"developer_data": []string{"false"},
		"sparkline":      []string{"false"},
	}

	var resp coinResponse
	_, err := f.client.GetJSON(ctx, client.Request{
		Endpoint: "/coins/{id}",
		Path:     "/coins/" + url.PathEscape(id),
		Symbol:   id,
		Params:   params,
		Category: cache.CategoryMarket,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("market data for %s: %w", id, err)
	}
	return resp.toMarketData(), nil
}

// FetchPriceHistory resolves symbol and fetches days of daily history.
func (f *Fetcher) FetchPriceHistory(ctx context.Context, symbol string, days int) (*PriceHistory, error) {
	coin, err := f.Resolve(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return f.FetchPriceHistoryByID(ctx, coin.ID, days)
}

// FetchPriceHistoryByID fetches prices and volumes in USD over days.
func (f *Fetcher) FetchPriceHistoryByID(ctx context.Context, id string, days int) (*PriceHistory, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	var resp marketChartResponse
	_, err := f.client.GetJSON(ctx, client.Request{
		Endpoint: "/coins/{id}/market_chart",
		Path:     "/coins/" + url.PathEscape(id) + "/market_chart",
		Symbol:   id,
		Params: url.Values{
			"vs_currency": []string{"usd"},
			"days":        []string{strconv.Itoa(days)},
		},
		Category: cache.CategoryMarket,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("price history for %s: %w", id, err)
	}
	return resp.toPriceHistory(), nil
}

func notFound(endpoint, msg string) error {
	return &client.FetchError{
		Kind:     client.KindNotFound,
		Provider: Provider,
		Endpoint: endpoint,
		Err:      fmt.Errorf("%s", msg),
	}
}
