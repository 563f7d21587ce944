package render

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/compare"
)

// SparklineWidth is the number of glyphs in comparison trend cells.
const SparklineWidth = 10

// Comparison renders a comparison table and the correlation matrix.
func (t *Terminal) Comparison(c *compare.Comparison) error {
	var b strings.Builder
	theme := t.opts.Theme

	b.WriteString(ComparisonTable(c, theme).Render() + "\n")
	if len(c.Labels) > 1 {
		b.WriteString("\n" + CorrelationTable(c, theme).Render() + "\n")
	}

	for _, item := range c.Succeeded() {
		for _, w := range item.Report.Warnings {
			b.WriteString(theme.Warn("! "+strings.ToUpper(item.Symbol)+": "+w) + "\n")
		}
	}
	for _, item := range c.Failures() {
		b.WriteString(theme.Error("error: "+item.Symbol+": "+client.Describe(item.Err)) + "\n")
	}

	_, err := io.WriteString(t.w, b.String())
	return err
}

// ComparisonTable has one row per requested token, failures included.
func ComparisonTable(c *compare.Comparison, theme Theme) table.Writer {
	if c == nil || len(c.Items) == 0 {
		return newTable("Comparison Matrix (Empty)", nil)
	}

	tw := newTable("Token Comparison Matrix", table.Row{
		"Symbol", "Price", "Trend", "Market Cap", "Volume", "CV (Vol)", "Spread %", "Depth ±2%", "Beta",
	})
	configs := make([]table.ColumnConfig, 0, 8)
	for n := 2; n <= 9; n++ {
		if n == 3 {
			continue
		}
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)

	for _, item := range c.Items {
		if item.Failed() {
			tw.AppendRow(table.Row{
				strings.ToUpper(item.Symbol), theme.Error("failed: " + client.Describe(item.Err)),
				"", "", "", "", "", "", "",
			})
			continue
		}
		r := item.Report
		spark, dir := analysis.Sparkline(r.Prices(), SparklineWidth)

		price, mcap, vol := Dash, Dash, Dash
		if m := r.Snapshot.Market; m != nil {
			price = Price(m.PriceUSD)
			mcap = LargeCurrency(m.MarketCapUSD)
			vol = LargeCurrency(m.Volume24hUSD)
		}

		tw.AppendRow(table.Row{
			r.Snapshot.Symbol,
			price,
			theme.Direction(dir, spark),
			mcap,
			vol,
			theme.ByLevel(r.Signals.Volatility, Number(r.Metrics.Volatility, 4)),
			theme.ByLevel(r.Signals.Spread, Percent(r.Metrics.SpreadPct, 2)),
			theme.ByLevel(r.Signals.Liquidity, WholeCurrency(r.Metrics.DepthUSD)),
			Number(r.Metrics.BetaProxy, 2),
		})
	}
	return tw
}

// CorrelationTable shows the pairwise price correlation.
func CorrelationTable(c *compare.Comparison, theme Theme) table.Writer {
	header := table.Row{""}
	for _, l := range c.Labels {
		header = append(header, l)
	}
	tw := newTable("Price Correlation", header)

	for i, l := range c.Labels {
		row := table.Row{l}
		for j := range c.Labels {
			v := c.Correlation[i][j]
			cell := Number(v, 2)
			if v != nil && i != j && *v >= 0.8 {
				cell = theme.Info(cell)
			}
			row = append(row, cell)
		}
		tw.AppendRow(row)
	}
	return tw
}
