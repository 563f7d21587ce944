package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/compare"
)

// RiskFactors lists the notable conditions of a report, most severe first.
func RiskFactors(r *analyzer.Report) []string {
	m, s := r.Metrics, r.Signals
	var warnings, notes []string

	if s.Volatility == analysis.LevelHigh {
		warnings = append(warnings, "[WARNING] High Volatility: CV "+Number(m.Volatility, 4))
	}
	if s.Spread == analysis.LevelHigh {
		warnings = append(warnings, "[WARNING] Wide Bid-Ask Spread: "+Percent(m.SpreadPct, 2))
	}
	if s.VolumeDelta >= analysis.LevelWarn {
		warnings = append(warnings, "[WARNING] Significant Volume Discrepancy: "+SignedPercent(m.VolumeDeltaPct, 1))
	}
	if s.Imbalance == analysis.LevelWarn {
		notes = append(notes, "[NOTE] High Order Book Imbalance: "+Number(m.Imbalance, 2))
	}
	if m.HasFlag(analysis.FlagImbalanceNoAsks) {
		notes = append(notes, "[NOTE] Order book has no ask volume")
	}
	if s.Liquidity == analysis.LevelWarn {
		notes = append(notes, "[NOTE] Thin Order Book: ±2% depth "+WholeCurrency(m.DepthUSD))
	}
	for _, w := range r.Warnings {
		notes = append(notes, "[NOTE] Partial Data: "+w)
	}
	return append(warnings, notes...)
}

// Confidence is "Low" for partial data or a critical volume divergence.
func Confidence(r *analyzer.Report) string {
	if r.Partial || r.Signals.VolumeDelta == analysis.LevelHigh {
		return "Low"
	}
	return "High"
}

// Markdown renders a standalone Markdown report.
func Markdown(r *analyzer.Report) string {
	var b strings.Builder
	plain := NewTheme(false)
	s := r.Snapshot

	fmt.Fprintf(&b, "# %s Analysis Report\n\n", s.Symbol)
	b.WriteString("## TOKEN OVERVIEW\n")
	if m := s.Market; m != nil {
		fmt.Fprintf(&b, "Symbol: %s | Name: %s | Rank: %s | Market Cap: %s | Price: %s\n",
			s.Symbol, s.Name, rank(m.MarketCapRank), LargeCurrency(m.MarketCapUSD), Price(m.PriceUSD))
		updated := Dash
		if !m.LastUpdated.IsZero() {
			updated = m.LastUpdated.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(&b, "Data Sources: CoinGecko (last updated: %s) + Binance %s (live)\n", updated, s.Pair)
	}

	b.WriteString("\n## QUANTITATIVE METRICS\n\n")
	b.WriteString(MetricTable(r, plain).RenderMarkdown() + "\n")

	b.WriteString("\n## TECHNICAL & RISK\n\n")
	b.WriteString(TechnicalTable(r.Metrics).RenderMarkdown() + "\n")

	b.WriteString("\n## PATTERN RECOGNITION\n")
	fmt.Fprintf(&b, "- Trend: %s\n", Title(r.Metrics.Technical.Trend))
	fmt.Fprintf(&b, "- Volatility environment: %s\n", volatilityEnvironment(r.Signals.Volatility))

	b.WriteString("\n## RISK FACTORS\n")
	factors := RiskFactors(r)
	if len(factors) == 0 {
		b.WriteString("- None detected\n")
	}
	for _, f := range factors {
		b.WriteString("- " + f + "\n")
	}

	b.WriteString("\n## REFERENCE DATA\n")
	fmt.Fprintf(&b, "- Analysis Timestamp: %s\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- History Window: %d days\n", r.Days)
	fmt.Fprintf(&b, "- Served From Cache: %t\n", r.Cached)
	fmt.Fprintf(&b, "- Data Confidence: %s\n", Confidence(r))
	return b.String()
}

func volatilityEnvironment(l analysis.Level) string {
	switch l {
	case analysis.LevelHigh:
		return "HIGH"
	case analysis.LevelWarn:
		return "ELEVATED"
	case analysis.LevelOK:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

// ComparisonMarkdown renders the comparison tables followed by each report.
func ComparisonMarkdown(c *compare.Comparison) string {
	var b strings.Builder
	plain := NewTheme(false)

	b.WriteString("# Token Comparison\n\n")
	b.WriteString(ComparisonTable(c, plain).RenderMarkdown() + "\n")
	if len(c.Labels) > 1 {
		b.WriteString("\n## Price Correlation\n\n")
		b.WriteString(CorrelationTable(c, plain).RenderMarkdown() + "\n")
	}
	if failures := c.Failures(); len(failures) > 0 {
		b.WriteString("\n## Failed Tokens\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "- %s: %s\n", strings.ToUpper(f.Symbol), client.Describe(f.Err))
		}
	}
	for _, item := range c.Succeeded() {
		b.WriteString("\n---\n\n")
		b.WriteString(Markdown(item.Report))
	}
	return b.String()
}
