// Package compare analyzes several tokens in parallel and lines the results
// up for side-by-side display.
//
// A bounded worker pool feeds symbols to the analyzer. Results keep the
// input order, and a failed token is recorded with its error instead of
// aborting the run. When a benchmark symbol is configured its volatility is
// fetched first and passed to every analysis so the beta proxy is defined.
//
// Example usage:
//
//	c := compare.New(tokenAnalyzer, compare.DefaultConfig())
//	result, err := c.Compare(ctx, []string{"btc", "eth", "sol"}, analyzer.Options{Days: 30})
//
// Price series are aligned by UTC day before correlating, so coins with
// different history lengths only correlate over the days they share.
package compare
