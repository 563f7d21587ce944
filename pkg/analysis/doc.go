// Package analysis computes market-structure metrics from a token snapshot.
//
// Every metric is a pure function returning *float64, where nil means the
// metric is undefined for the input (too few points, empty book side, zero
// denominator). Undefined values encode as JSON null and classify to
// LevelNone.
//
// Core metrics:
//   - Volatility: coefficient of variation of prices (population stddev / mean)
//   - SpreadPct: (best ask - best bid) / best bid * 100
//   - Imbalance: bid size / ask size over the top N levels
//   - VolumeDeltaPct: exchange 24h volume vs aggregator 24h volume
//
// Classification thresholds are always passed in explicitly.
package analysis
