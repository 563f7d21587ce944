package analysis

import (
	"encoding/json"
	"math"
)

// Level is an ordinal severity. LevelNone marks an undefined metric.
type Level int

const (
	LevelNone Level = iota
	LevelOK
	LevelWarn
	LevelHigh
)

// String returns "OK", "WARN", "HIGH" or "" for LevelNone.
func (l Level) String() string {
	switch l {
	case LevelOK:
		return "OK"
	case LevelWarn:
		return "WARN"
	case LevelHigh:
		return "HIGH"
	default:
		return ""
	}
}

// MarshalJSON encodes LevelNone as null.
func (l Level) MarshalJSON() ([]byte, error) {
	if l == LevelNone {
		return []byte("null"), nil
	}
	return json.Marshal(l.String())
}

// UnmarshalJSON accepts the strings produced by MarshalJSON.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = LevelNone
	if s == nil {
		return nil
	}
	switch *s {
	case "OK":
		*l = LevelOK
	case "WARN":
		*l = LevelWarn
	case "HIGH":
		*l = LevelHigh
	}
	return nil
}

// BandThresholds classify a metric where bigger is worse.
type BandThresholds struct {
	High   float64 `yaml:"high" json:"high"`
	Medium float64 `yaml:"medium" json:"medium"`
}

// DivergenceThresholds classify an absolute percentage divergence.
type DivergenceThresholds struct {
	Warning  float64 `yaml:"warning" json:"warning"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// RangeThresholds mark values outside [Low, High] as a warning.
type RangeThresholds struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// LiquidityThresholds mark thin books.
type LiquidityThresholds struct {
	MinDepthUSD float64 `yaml:"min_depth_usd" json:"min_depth_usd"`
}

// Thresholds groups every classification boundary.
type Thresholds struct {
	Volatility  BandThresholds       `yaml:"volatility" json:"volatility"`
	Spread      BandThresholds       `yaml:"spread" json:"spread"`
	VolumeDelta DivergenceThresholds `yaml:"volume_delta" json:"volume_delta"`
	Imbalance   RangeThresholds      `yaml:"imbalance" json:"imbalance"`
	Liquidity   LiquidityThresholds  `yaml:"liquidity" json:"liquidity"`
}

// DefaultThresholds returns the shipped classification boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Volatility:  BandThresholds{High: 0.05, Medium: 0.02},
		Spread:      BandThresholds{High: 0.5, Medium: 0.2},
		VolumeDelta: DivergenceThresholds{Warning: 20, Critical: 50},
		Imbalance:   RangeThresholds{Low: 0.5, High: 2.0},
		Liquidity:   LiquidityThresholds{MinDepthUSD: 100000},
	}
}

// ClassifyBand returns HIGH above t.High, WARN above t.Medium, else OK.
func ClassifyBand(v *float64, t BandThresholds) Level {
	switch {
	case v == nil:
		return LevelNone
	case *v > t.High:
		return LevelHigh
	case *v > t.Medium:
		return LevelWarn
	default:
		return LevelOK
	}
}

// ClassifyVolatility classifies a coefficient of variation.
func ClassifyVolatility(v *float64, t BandThresholds) Level {
	return ClassifyBand(v, t)
}

// ClassifySpread classifies a spread percentage.
func ClassifySpread(v *float64, t BandThresholds) Level {
	return ClassifyBand(v, t)
}

// ClassifyVolumeDelta classifies |v| against the divergence thresholds.
func ClassifyVolumeDelta(v *float64, t DivergenceThresholds) Level {
	if v == nil {
		return LevelNone
	}
	abs := math.Abs(*v)
	switch {
	case abs > t.Critical:
		return LevelHigh
	case abs > t.Warning:
		return LevelWarn
	default:
		return LevelOK
	}
}

// ClassifyImbalance returns WARN outside [t.Low, t.High].
func ClassifyImbalance(v *float64, t RangeThresholds) Level {
	switch {
	case v == nil:
		return LevelNone
	case *v < t.Low || *v > t.High:
		return LevelWarn
	default:
		return LevelOK
	}
}

// ClassifyDepth returns WARN below the minimum depth.
func ClassifyDepth(v *float64, t LiquidityThresholds) Level {
	switch {
	case v == nil:
		return LevelNone
	case *v < t.MinDepthUSD:
		return LevelWarn
	default:
		return LevelOK
	}
}
