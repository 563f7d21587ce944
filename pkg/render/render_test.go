package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/compare"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/binance"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/coingecko"
)

func sampleReport() *analyzer.Report {
	prices := make([]float64, 60)
	volumes := make([]float64, 60)
	stamps := make([]time.Time, 60)
	for i := range prices {
		prices[i] = 100 + float64(i%7)
		volumes[i] = 1e6 * float64(1+i%3)
		stamps[i] = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	book := &analysis.Book{
		Bids: []analysis.BookLevel{{Price: 100, Size: 300}},
		Asks: []analysis.BookLevel{{Price: 100.5, Size: 100}},
	}
	result := analysis.Compute(analysis.Input{
		Prices: prices, Volumes: volumes, Book: book,
		CEXVolume: Ptr(1600), AggregatorVol: 1000, ImbalanceLevels: 10,
	})
	return &analyzer.Report{
		Symbol: "btc",
		Days:   60,
		Snapshot: analyzer.Snapshot{
			Symbol: "BTC", CoinID: "bitcoin", Name: "Bitcoin", Pair: "BTCUSDT",
			Market: &coingecko.MarketData{
				PriceUSD: 64250.5, MarketCapUSD: 1.26e12, MarketCapRank: 1,
				Volume24hUSD: 1000, PriceChange24hPct: -1.25, ATHChangePct: -12.3,
			},
			History: &coingecko.PriceHistory{Prices: prices, Volumes: volumes, Timestamps: stamps},
			Ticker:  &binance.Ticker24h{Symbol: "BTCUSDT", QuoteVolume: decimal.NewFromInt(1600)},
		},
		Metrics:     result,
		Signals:     analysis.Classify(result, analysis.DefaultThresholds()),
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func sampleComparison() *compare.Comparison {
	r := sampleReport()
	return &compare.Comparison{
		Items: []compare.Item{
			{Symbol: "btc", Report: r},
			{Symbol: "nope", Err: &client.FetchError{Kind: client.KindNotFound, Provider: "coingecko"}},
		},
		Labels:      []string{"BTC"},
		Correlation: compare.CorrelationMatrix([]*analyzer.Report{r}),
	}
}

func TestColorEnabled(t *testing.T) {
	env := func(v string) func(string) string {
		return func(string) string { return v }
	}
	tests := []struct {
		name    string
		noColor bool
		tty     bool
		envVal  string
		want    bool
	}{
		{"tty defaults to color", false, true, "", true},
		{"pipe has no color", false, false, "", false},
		{"flag disables", true, true, "", false},
		{"NO_COLOR disables", false, true, "1", false},
		{"NO_COLOR wins with flag", true, true, "1", false},
		{"any non-empty NO_COLOR", false, true, "false", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ColorEnabled(tt.noColor, tt.tty, env(tt.envVal)))
		})
	}
}

func TestTerminal_NoColorHasNoEscapes(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	for _, flag := range []bool{false, true} {
		var buf bytes.Buffer
		theme := NewTheme(ColorEnabled(flag, true, os.Getenv))
		term := NewTerminal(&buf, TerminalOptions{Theme: theme, Charts: true})

		require.NoError(t, term.Report(sampleReport()))
		require.NoError(t, term.Comparison(sampleComparison()))
		assert.NotContains(t, buf.String(), "\x1b[", "no-color flag=%v", flag)
	}
}

func TestTerminal_ColorWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, TerminalOptions{Theme: NewTheme(true)})
	require.NoError(t, term.Report(sampleReport()))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestTerminal_Report(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, TerminalOptions{Theme: NewTheme(false), Charts: true})
	require.NoError(t, term.Report(sampleReport()))

	out := buf.String()
	for _, want := range []string{
		"Bitcoin (BTC)", "$64,250.50", "-1.25% 24h", "rank #1",
		"Quantitative Metrics", "Volatility (CV)", "0.50%", "3.00", "WARN",
		"+60.0%", "Technical & Risk", "Fibonacci Retracement", "price (USD), 60 days",
	} {
		assert.Contains(t, out, want)
	}
}

func TestTerminal_PartialShowsDashesAndWarnings(t *testing.T) {
	r := sampleReport()
	r.Snapshot.Ticker = nil
	r.Metrics.SpreadPct = nil
	r.Signals.Spread = analysis.LevelNone
	r.Partial = true
	r.Warnings = []string{"order book unavailable: not found on binance"}

	var buf bytes.Buffer
	require.NoError(t, NewTerminal(&buf, TerminalOptions{Theme: NewTheme(false), Compact: true}).Report(r))

	out := buf.String()
	assert.Contains(t, out, "(partial)")
	assert.Contains(t, out, "! order book unavailable: not found on binance")
	assert.NotContains(t, out, "Technical & Risk", "compact mode skips secondary tables")
}

func TestComparisonTable(t *testing.T) {
	out := ComparisonTable(sampleComparison(), NewTheme(false)).Render()
	assert.Contains(t, out, "Token Comparison Matrix")
	assert.Contains(t, out, "BTC")
	assert.Contains(t, out, "NOPE")
	assert.Contains(t, out, "failed: not found on coingecko")

	empty := ComparisonTable(&compare.Comparison{}, NewTheme(false)).Render()
	assert.Contains(t, empty, "Comparison Matrix (Empty)")
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())
	for _, want := range []string{
		"# BTC Analysis Report", "## TOKEN OVERVIEW", "Rank: #1",
		"## QUANTITATIVE METRICS", "| Volatility (CV) |", "## RISK FACTORS",
		"[WARNING] Significant Volume Discrepancy: +60.0%",
		"[NOTE] High Order Book Imbalance: 3.00",
		"Data Confidence: Low",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "\x1b[")
}

func TestRiskFactors_None(t *testing.T) {
	r := &analyzer.Report{}
	assert.Empty(t, RiskFactors(r))
	assert.Equal(t, "High", Confidence(r))
	assert.Contains(t, Markdown(r), "- None detected")
}

func TestComparisonMarkdown(t *testing.T) {
	md := ComparisonMarkdown(sampleComparison())
	assert.Contains(t, md, "# Token Comparison")
	assert.Contains(t, md, "## Failed Tokens")
	assert.Contains(t, md, "- NOPE: not found on coingecko")
	assert.Contains(t, md, "# BTC Analysis Report")
}

func TestHTML(t *testing.T) {
	r := sampleReport()
	r.Warnings = []string{"ticker unavailable: <binance>"}

	page, err := HTML("BTC report", []*analyzer.Report{r}, sampleComparison(), r.GeneratedAt)
	require.NoError(t, err)

	out := string(page)
	assert.Contains(t, out, "<title>BTC report</title>")
	assert.Contains(t, out, "Bitcoin (BTC)")
	assert.Contains(t, out, "failed: not found on coingecko")
	assert.Contains(t, out, "&lt;binance&gt;", "warnings are escaped")
}

func TestNewComparisonDocument(t *testing.T) {
	doc := NewComparisonDocument(sampleComparison(), time.Unix(0, 0))
	data, err := JSON(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	items := decoded["items"].([]any)
	require.Len(t, items, 2)
	failed := items[1].(map[string]any)
	assert.Equal(t, "not found on coingecko", failed["error"])
	assert.Equal(t, "not_found", failed["error_kind"])
	assert.NotContains(t, failed, "report")
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"a":1}`)))
	require.NoError(t, WriteFileAtomic(path, []byte(`{"a":2}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestWriteFileAtomic_Failure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	err := WriteFileAtomic(filepath.Join(blocker, "out.json"), []byte("x"))
	assert.Error(t, err)
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]string{"a.json": "json", "b.HTML": "html", "c.md": "markdown", "d.txt": "terminal"}
	for path, want := range tests {
		got, ok := FormatForPath(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}
	_, ok := FormatForPath("e.pdf")
	assert.False(t, ok)
}

func TestDescribeInComparison(t *testing.T) {
	c := &compare.Comparison{Items: []compare.Item{{Symbol: "x", Err: errors.New("boom")}}}
	var buf bytes.Buffer
	require.NoError(t, NewTerminal(&buf, TerminalOptions{Theme: NewTheme(false)}).Comparison(c))
	assert.True(t, strings.Contains(buf.String(), "error: x: boom"))
}
