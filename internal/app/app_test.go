package app

import (
	"context"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JackSmack1971/microanalyst-tools/internal/testutil"
	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/cache"
	"github.com/JackSmack1971/microanalyst-tools/pkg/config"
)

func TestNew_AnalyzesAgainstMocks(t *testing.T) {
	cg := testutil.NewMockCoinGecko()
	defer cg.Close()
	bn := testutil.NewMockBinance()
	defer bn.Close()
	testutil.Seed(cg, bn)

	cfg := config.Default()
	cfg.Cache.Backend = cache.BackendMemory
	cfg.Providers.CoinGecko.BaseURL = cg.URL()
	cfg.Providers.CoinGecko.MinInterval = 0
	cfg.Providers.Binance.BaseURL = bn.URL()

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, cache.BackendMemory, a.Cache.Backend())

	report, err := a.Analyzer.Analyze(context.Background(), "btc", analyzer.Options{Days: cfg.Defaults.Days})
	require.NoError(t, err)
	assert.Equal(t, "BTC", report.Snapshot.Symbol)
	require.NotNil(t, report.Metrics.SpreadPct)
	assert.InDelta(t, 0.5, *report.Metrics.SpreadPct, 0.01)
	assert.False(t, report.Partial)
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = "tape"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestNew_DiskCacheSurvivesRestart(t *testing.T) {
	cg := testutil.NewMockCoinGecko()
	defer cg.Close()
	bn := testutil.NewMockBinance()
	defer bn.Close()
	testutil.Seed(cg, bn)

	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	cfg.Providers.CoinGecko.BaseURL = cg.URL()
	cfg.Providers.CoinGecko.MinInterval = 0
	cfg.Providers.Binance.BaseURL = bn.URL()
	opts := analyzer.Options{Days: cfg.Defaults.Days}

	first, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, cache.BackendDisk, first.Cache.Backend())
	report, err := first.Analyzer.Analyze(context.Background(), "btc", opts)
	require.NoError(t, err)
	assert.False(t, report.Cached)
	require.NoError(t, first.Close())

	upstream := cg.GetRequestCount() + bn.GetRequestCount()

	second, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()
	report, err = second.Analyzer.Analyze(context.Background(), "btc", opts)
	require.NoError(t, err)

	assert.True(t, report.Cached)
	assert.Equal(t, upstream, cg.GetRequestCount()+bn.GetRequestCount())
}

func TestAnalyze_UncachedSearchIsNotReportedCached(t *testing.T) {
	cg := testutil.NewMockCoinGecko()
	defer cg.Close()
	bn := testutil.NewMockBinance()
	defer bn.Close()
	testutil.Seed(cg, bn)

	cfg := config.Default()
	cfg.Cache.Backend = cache.BackendMemory
	cfg.Providers.CoinGecko.BaseURL = cg.URL()
	cfg.Providers.CoinGecko.MinInterval = 0
	cfg.Providers.Binance.BaseURL = bn.URL()
	opts := analyzer.Options{Days: cfg.Defaults.Days}

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	_, err = a.Analyzer.Analyze(ctx, "btc", opts)
	require.NoError(t, err)

	report, err := a.Analyzer.Analyze(ctx, "btc", opts)
	require.NoError(t, err)
	assert.True(t, report.Cached)

	searches := cg.GetPathCount("/search")
	require.NoError(t, a.Cache.Delete(ctx, cache.CacheKey{
		Provider: "coingecko",
		Endpoint: "/search",
		Symbol:   "btc",
		Params:   url.Values{"query": []string{"btc"}},
	}))

	report, err = a.Analyzer.Analyze(ctx, "btc", opts)
	require.NoError(t, err)
	assert.Equal(t, searches+1, cg.GetPathCount("/search"))
	assert.False(t, report.Cached, "a run whose symbol lookup went upstream is not cached")
}
