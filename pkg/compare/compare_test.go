package compare

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/coingecko"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	prices   map[string][]float64
	fail     map[string]error
	calls    []string
	benchSet []*float64
}

func (f *fakeAnalyzer) Analyze(_ context.Context, symbol string, opts analyzer.Options) (*analyzer.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.benchSet = append(f.benchSet, opts.BenchmarkCV)
	f.mu.Unlock()

	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	prices := f.prices[symbol]
	return &analyzer.Report{
		Symbol: symbol,
		Snapshot: analyzer.Snapshot{
			Symbol:  strings.ToUpper(symbol),
			History: &coingecko.PriceHistory{Prices: prices},
		},
		Metrics: analysis.Result{Volatility: analysis.Volatility(prices)},
	}, nil
}

func newFake() *fakeAnalyzer {
	return &fakeAnalyzer{
		prices: map[string][]float64{
			"btc": {100, 105, 95, 100},
			"eth": {10, 10.5, 9.5, 10},
			"sol": {1, 0.9, 1.1, 1},
		},
		fail: map[string]error{
			"nope": &client.FetchError{Kind: client.KindNotFound, Provider: "coingecko"},
		},
	}
}

func TestCompare_OneFailureKeepsOthers(t *testing.T) {
	fake := newFake()
	c := New(fake, Config{MaxConcurrency: 2})

	result, err := c.Compare(context.Background(), []string{"btc", "nope", "eth", "sol"}, analyzer.Options{Days: 30})
	require.NoError(t, err)

	require.Len(t, result.Items, 4)
	assert.Equal(t, []string{"btc", "nope", "eth", "sol"}, []string{
		result.Items[0].Symbol, result.Items[1].Symbol, result.Items[2].Symbol, result.Items[3].Symbol,
	})
	assert.Len(t, result.Succeeded(), 3)
	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "nope", failures[0].Symbol)
	assert.ErrorIs(t, failures[0].Err, client.ErrNotFound)
	assert.Nil(t, failures[0].Report)

	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, result.Labels)
}

func TestCompare_NoSymbols(t *testing.T) {
	_, err := New(newFake(), DefaultConfig()).Compare(context.Background(), nil, analyzer.Options{Days: 30})
	assert.ErrorIs(t, err, ErrNoSymbols)
}

func TestCompare_BenchmarkFeedsBeta(t *testing.T) {
	fake := newFake()
	c := New(fake, Config{MaxConcurrency: 1, Benchmark: "btc"})

	result, err := c.Compare(context.Background(), []string{"eth"}, analyzer.Options{Days: 30})
	require.NoError(t, err)

	require.NotNil(t, result.BenchmarkCV)
	assert.InDelta(t, 0.0354, *result.BenchmarkCV, 1e-4)
	assert.Equal(t, []string{"btc", "eth"}, fake.calls)
	assert.NotNil(t, fake.benchSet[1])
}

func TestCompare_BenchmarkFailureIsNotFatal(t *testing.T) {
	fake := newFake()
	fake.fail["btc"] = errors.New("down")
	c := New(fake, Config{MaxConcurrency: 1, Benchmark: "btc"})

	result, err := c.Compare(context.Background(), []string{"eth"}, analyzer.Options{Days: 30})
	require.NoError(t, err)
	assert.Nil(t, result.BenchmarkCV)
	assert.Len(t, result.Succeeded(), 1)
}

func TestCompare_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(newFake(), Config{}).Compare(ctx, []string{"btc", "eth"}, analyzer.Options{Days: 30})
	require.NoError(t, err)
	assert.Len(t, result.Failures(), 2)
	assert.ErrorIs(t, result.Items[0].Err, context.Canceled)
}

func TestCorrelationMatrix(t *testing.T) {
	fake := newFake()
	result, err := New(fake, Config{}).Compare(context.Background(), []string{"btc", "eth", "sol"}, analyzer.Options{Days: 30})
	require.NoError(t, err)

	m := result.Correlation
	require.Len(t, m, 3)
	require.NotNil(t, m[0][0])
	assert.InDelta(t, 1.0, *m[0][0], 1e-9)
	require.NotNil(t, m[0][1])
	assert.InDelta(t, 1.0, *m[0][1], 1e-9, "eth is btc scaled")
	require.NotNil(t, m[0][2])
	assert.InDelta(t, -1.0, *m[0][2], 1e-9, "sol mirrors btc")
	assert.Equal(t, m[0][2], m[2][0])
}

func TestAlignDaily(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2024, 4, d, h, 0, 0, 0, time.UTC) }

	a := &analyzer.Report{Snapshot: analyzer.Snapshot{History: &coingecko.PriceHistory{
		Prices:     []float64{1, 3, 5, 7},
		Timestamps: []time.Time{day(1, 0), day(1, 12), day(2, 0), day(3, 0)},
	}}}
	b := &analyzer.Report{Snapshot: analyzer.Snapshot{History: &coingecko.PriceHistory{
		Prices:     []float64{20, 30},
		Timestamps: []time.Time{day(2, 0), day(3, 0)},
	}}}

	series := AlignDaily([]*analyzer.Report{a, b})
	assert.Equal(t, [][]float64{{5, 7}, {20, 30}}, series)

	series = AlignDaily([]*analyzer.Report{a})
	assert.Equal(t, [][]float64{{2, 5, 7}}, series, "same-day points are averaged")
}

func TestAlignDaily_TailWithoutTimestamps(t *testing.T) {
	a := &analyzer.Report{Snapshot: analyzer.Snapshot{History: &coingecko.PriceHistory{Prices: []float64{1, 2, 3}}}}
	b := &analyzer.Report{Snapshot: analyzer.Snapshot{History: &coingecko.PriceHistory{Prices: []float64{9, 8}}}}

	assert.Equal(t, [][]float64{{2, 3}, {9, 8}}, AlignDaily([]*analyzer.Report{a, b}))
}

func TestParseSymbols(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr error
	}{
		{"two", "btc,eth", []string{"btc", "eth"}, nil},
		{"trims and lowers", " BTC , Eth ,sol", []string{"btc", "eth", "sol"}, nil},
		{"dedupes", "btc,BTC,eth", []string{"btc", "eth"}, nil},
		{"too few", "btc", nil, ErrTooFewSymbols},
		{"too few after dedupe", "btc,btc,", nil, ErrTooFewSymbols},
		{"too many", strings.Repeat("t,", 10) + "a,b,c,d,e,f,g,h,i,j,k", nil, ErrTooManySymbols},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSymbols(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBenchmarkCV_Disabled(t *testing.T) {
	f := &fakeAnalyzer{}
	c := New(f, Config{})

	assert.Nil(t, c.BenchmarkCV(context.Background(), analyzer.Options{Days: 30}))
	assert.Empty(t, f.calls)
}
