package coingecko

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JackSmack1971/microanalyst-tools/internal/testutil"
	"github.com/JackSmack1971/microanalyst-tools/pkg/cache"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
)

func newTestFetcher(t *testing.T) (*Fetcher, *testutil.MockCoinGecko) {
	t.Helper()

	mock := testutil.NewMockCoinGecko()
	t.Cleanup(mock.Close)

	mock.AddCoin(testutil.CoinFixture{
		ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Rank: 1,
		Price: 65000, MarketCap: 1.2e12, Volume24h: 3.5e10,
		Prices:  []float64{100, 105, 95, 100},
		Volumes: []float64{10, 11, 12},
	})
	mock.AddCoin(testutil.CoinFixture{ID: "wrapped-bitcoin", Symbol: "wbtc", Name: "Wrapped Bitcoin", Rank: 15})

	cfg := DefaultConfig()
	cfg.BaseURL = mock.URL()
	cfg.MinInterval = 0

	f, err := New(cfg, cache.NewManager(nil, cache.WithMemoryLayer(0)), cache.DefaultTTLPolicy())
	require.NoError(t, err)
	return f, mock
}

func TestPickCoin(t *testing.T) {
	coins := []Coin{
		{ID: "wrapped-bitcoin", Symbol: "WBTC"},
		{ID: "bitcoin", Symbol: "BTC"},
	}

	tests := []struct {
		name   string
		coins  []Coin
		symbol string
		wantID string
		wantOK bool
	}{
		{"exact symbol match wins", coins, "btc", "bitcoin", true},
		{"falls back to first result", coins, "bit", "wrapped-bitcoin", true},
		{"empty result", nil, "btc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickCoin(tt.coins, tt.symbol)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestResolve(t *testing.T) {
	f, _ := newTestFetcher(t)
	ctx := context.Background()

	coin, err := f.Resolve(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", coin.ID)

	_, err = f.Resolve(ctx, "doesnotexist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrNotFound), "want NotFound, got %v", err)
}

func TestFetchMarketData(t *testing.T) {
	f, mock := newTestFetcher(t)

	md, err := f.FetchMarketData(context.Background(), "btc")
	require.NoError(t, err)

	assert.Equal(t, "bitcoin", md.ID)
	assert.Equal(t, "Bitcoin", md.Name)
	assert.Equal(t, 65000.0, md.PriceUSD)
	assert.Equal(t, 3.5e10, md.Volume24hUSD)
	assert.Equal(t, 1, md.MarketCapRank)
	assert.Equal(t, -12.5, md.ATHChangePct)
	assert.Nil(t, md.TotalSupply)
	assert.False(t, md.LastUpdated.IsZero())

	req := mock.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "true", req.URL.Query().Get("market_data"))
	assert.Equal(t, "false", req.URL.Query().Get("tickers"))
}

func TestFetchPriceHistory(t *testing.T) {
	f, _ := newTestFetcher(t)

	h, err := f.FetchPriceHistory(context.Background(), "btc", 30)
	require.NoError(t, err)

	assert.Equal(t, []float64{100, 105, 95, 100}, h.Prices)
	// Volume series shorter than prices is padded
	assert.Equal(t, []float64{10, 11, 12, 0}, h.Volumes)
	require.Len(t, h.Timestamps, 4)
	assert.Equal(t, 24*time.Hour, h.Timestamps[1].Sub(h.Timestamps[0]))
	assert.Equal(t, 4, h.Len())
}

func TestFetchPriceHistory_InvalidDays(t *testing.T) {
	f, _ := newTestFetcher(t)
	_, err := f.FetchPriceHistoryByID(context.Background(), "bitcoin", 0)
	assert.Error(t, err)
}

func TestFetch_UsesCache(t *testing.T) {
	f, mock := newTestFetcher(t)
	ctx := context.Background()

	_, err := f.FetchMarketData(ctx, "btc")
	require.NoError(t, err)
	_, err = f.FetchMarketData(ctx, "btc")
	require.NoError(t, err)

	assert.Equal(t, 1, mock.GetPathCount("/search"))
	assert.Equal(t, 1, mock.GetPathCount("/coins/bitcoin"))
}

func TestFetch_RateLimited(t *testing.T) {
	f, mock := newTestFetcher(t)
	mock.SetResponse("/coins/bitcoin", testutil.NewRateLimitResponse(60*time.Second))

	_, err := f.FetchMarketDataByID(context.Background(), "bitcoin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrRateLimited))

	var fe *client.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 60*time.Second, fe.RetryAfter)
	assert.Equal(t, "rate limited by coingecko, retry in a minute", fe.Summary())
}

func TestFetch_ServerError(t *testing.T) {
	f, mock := newTestFetcher(t)
	mock.SetResponse("/coins/bitcoin/market_chart", testutil.NewServerErrorResponse())

	_, err := f.FetchPriceHistoryByID(context.Background(), "bitcoin", 7)
	assert.True(t, errors.Is(err, client.ErrUnavailable))
}
