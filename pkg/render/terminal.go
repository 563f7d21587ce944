package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
)

// TerminalOptions configure terminal rendering.
type TerminalOptions struct {
	Theme      Theme
	Charts     bool
	Compact    bool
	ChartWidth int
}

// Terminal writes human-readable reports.
type Terminal struct {
	w    io.Writer
	opts TerminalOptions
}

// NewTerminal creates a terminal renderer writing to w.
func NewTerminal(w io.Writer, opts TerminalOptions) *Terminal {
	if opts.ChartWidth <= 0 {
		opts.ChartWidth = 60
	}
	return &Terminal{w: w, opts: opts}
}

// Report renders one token report.
func (t *Terminal) Report(r *analyzer.Report) error {
	var b strings.Builder
	theme := t.opts.Theme

	b.WriteString(t.header(r))
	b.WriteString("\n")

	for _, w := range r.Warnings {
		b.WriteString(theme.Warn("! "+w) + "\n")
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(MarketTable(r).Render() + "\n\n")
	b.WriteString(MetricTable(r, theme).Render() + "\n")

	if !t.opts.Compact {
		b.WriteString("\n" + TechnicalTable(r.Metrics).Render() + "\n")
		if fib := FibonacciTable(r.Metrics.Fibonacci); fib != nil {
			b.WriteString("\n" + fib.Render() + "\n")
		}
	}

	if t.opts.Charts {
		if chart := PriceChart(r, t.opts.ChartWidth); chart != "" {
			b.WriteString("\n" + chart + "\n")
		}
		if chart := VolumeChart(r, t.opts.ChartWidth); chart != "" {
			b.WriteString("\n" + chart + "\n")
		}
	}

	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *Terminal) header(r *analyzer.Report) string {
	theme := t.opts.Theme
	s := r.Snapshot
	title := fmt.Sprintf("%s (%s)", s.Name, s.Symbol)
	if s.Name == "" {
		title = s.Symbol
	}
	line := theme.Heading(title)
	if s.Market != nil {
		change := SignedPercent(&s.Market.PriceChange24hPct, 2)
		dir := analysis.Flat
		switch {
		case s.Market.PriceChange24hPct > 0:
			dir = analysis.Up
		case s.Market.PriceChange24hPct < 0:
			dir = analysis.Down
		}
		line += fmt.Sprintf("  %s  %s", Price(s.Market.PriceUSD), theme.Direction(dir, change+" 24h"))
		if s.Market.MarketCapRank > 0 {
			line += fmt.Sprintf("  rank #%d", s.Market.MarketCapRank)
		}
	}
	if r.Cached {
		line += "  " + theme.Muted("(cached)")
	}
	if r.Partial {
		line += "  " + theme.Warn("(partial)")
	}
	return line + "\n"
}

func newTable(title string, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle(title)
	}
	if header != nil {
		tw.AppendHeader(header)
	}
	return tw
}

// MarketTable lists the aggregator market data.
func MarketTable(r *analyzer.Report) table.Writer {
	tw := newTable("Market Overview", table.Row{"Field", "Value"})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	m := r.Snapshot.Market
	if m == nil {
		return tw
	}
	tw.AppendRows([]table.Row{
		{"Price", Price(m.PriceUSD)},
		{"Market Cap", LargeCurrency(m.MarketCapUSD)},
		{"Rank", rank(m.MarketCapRank)},
		{"24h Volume", LargeCurrency(m.Volume24hUSD)},
		{"ATH Distance", SignedPercent(&m.ATHChangePct, 1)},
	})
	if r.Snapshot.Ticker != nil {
		tw.AppendRow(table.Row{"Exchange 24h Volume", LargeCurrency(r.Snapshot.Ticker.QuoteVolume.InexactFloat64())})
	}
	if !m.LastUpdated.IsZero() {
		tw.AppendRow(table.Row{"Last Updated", m.LastUpdated.UTC().Format("2006-01-02 15:04 UTC")})
	}
	return tw
}

func rank(n int) string {
	if n <= 0 {
		return Dash
	}
	return fmt.Sprintf("#%d", n)
}

// MetricTable lists the core metrics with their signals.
func MetricTable(r *analyzer.Report, theme Theme) table.Writer {
	tw := newTable("Quantitative Metrics", table.Row{"Metric", "Value", "Signal"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignCenter},
	})

	m, s := r.Metrics, r.Signals
	imbalanceNote := ""
	if m.HasFlag(analysis.FlagImbalanceNoAsks) {
		imbalanceNote = " (no asks)"
	}
	tw.AppendRows([]table.Row{
		{"Volatility (CV)", Number(m.Volatility, 4), theme.Level(s.Volatility)},
		{"Spread", Percent(m.SpreadPct, 2), theme.Level(s.Spread)},
		{"Volume Delta", SignedPercent(m.VolumeDeltaPct, 1), theme.Level(s.VolumeDelta)},
		{"Imbalance", Number(m.Imbalance, 2) + imbalanceNote, theme.Level(s.Imbalance)},
		{"Depth ±2%", WholeCurrency(m.DepthUSD), theme.Level(s.Liquidity)},
		{"Bollinger Width (20D)", Percent(m.BollingerWidth, 1), Dash},
		{"Volume vs 7D Avg", SignedPercent(m.VolumeChangePct, 1), Dash},
		{"Beta Proxy", Number(m.BetaProxy, 2), Dash},
	})
	return tw
}

// TechnicalTable lists indicators and risk ratios.
func TechnicalTable(m analysis.Result) table.Writer {
	tw := newTable("Technical & Risk", table.Row{"Indicator", "Value"})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	tw.AppendRows([]table.Row{
		{"RSI (14)", Number(m.Technical.RSI, 1)},
		{"SMA 20", priceOrDash(m.Technical.SMA20)},
		{"SMA 50", priceOrDash(m.Technical.SMA50)},
		{"Trend", Title(m.Technical.Trend)},
		{"MACD", Number(m.MACD.Line, 4)},
		{"MACD Signal", Number(m.MACD.Signal, 4)},
		{"MACD Histogram", Number(m.MACD.Histogram, 4)},
		{"Max Drawdown", Percent(m.Risk.MaxDrawdownPct, 1)},
		{"Sharpe (ann.)", Number(m.Risk.Sharpe, 2)},
		{"Sortino (ann.)", Number(m.Risk.Sortino, 2)},
	})
	return tw
}

func priceOrDash(v *float64) string {
	if v == nil {
		return Dash
	}
	return Price(*v)
}

// FibonacciTable lists retracement levels, or nil when undefined.
func FibonacciTable(f *analysis.Fibonacci) table.Writer {
	if f == nil {
		return nil
	}
	tw := newTable("Fibonacci Retracement", table.Row{"Level", "Price"})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	tw.AppendRow(table.Row{"High", Price(f.High)})
	for _, l := range f.Levels {
		tw.AppendRow(table.Row{fmt.Sprintf("%.1f%%", l.Ratio*100), Price(l.Price)})
	}
	tw.AppendRow(table.Row{"Low", Price(f.Low)})
	return tw
}

// PriceChart plots the price history, or "" with fewer than two points.
func PriceChart(r *analyzer.Report, width int) string {
	prices := r.Prices()
	if len(prices) < 2 {
		return ""
	}
	return asciigraph.Plot(prices,
		asciigraph.Height(12),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.Caption(fmt.Sprintf("%s price (USD), %d days", r.Snapshot.Symbol, r.Days)),
	)
}

// VolumeChart plots the volume history in millions, or "" with fewer than
// two points.
func VolumeChart(r *analyzer.Report, width int) string {
	volumes := r.Volumes()
	if len(volumes) < 2 {
		return ""
	}
	scaled := make([]float64, len(volumes))
	for i, v := range volumes {
		scaled[i] = v / 1e6
	}
	return asciigraph.Plot(scaled,
		asciigraph.Height(8),
		asciigraph.Width(width),
		asciigraph.Precision(1),
		asciigraph.Caption(fmt.Sprintf("%s volume (USD millions), %d days", r.Snapshot.Symbol, r.Days)),
	)
}
