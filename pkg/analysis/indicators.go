package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Trend labels derived from the SMA stack.
const (
	TrendBullish = "BULLISH"
	TrendBearish = "BEARISH"
	TrendNeutral = "NEUTRAL"
)

// MinTechnicalPoints is the history length needed for SMA50.
const MinTechnicalPoints = 50

// annualFactor annualizes daily ratios; crypto trades every day.
var annualFactor = math.Sqrt(365)

// Technical holds momentum indicators of a price series.
type Technical struct {
	RSI   *float64 `json:"rsi"`
	SMA20 *float64 `json:"sma_20"`
	SMA50 *float64 `json:"sma_50"`
	Trend string   `json:"trend"`
}

// ComputeTechnical returns RSI(14) with simple averages, SMA20, SMA50 and the
// trend label. Below MinTechnicalPoints everything is undefined and the
// trend is neutral.
func ComputeTechnical(prices []float64) Technical {
	t := Technical{Trend: TrendNeutral}
	if len(prices) < MinTechnicalPoints {
		return t
	}

	t.RSI = RSI(prices, 14)
	sma20 := SMA(prices, 20)
	sma50 := SMA(prices, 50)
	t.SMA20 = Float(sma20)
	t.SMA50 = Float(sma50)

	last := prices[len(prices)-1]
	switch {
	case last > sma20 && sma20 > sma50:
		t.Trend = TrendBullish
	case last < sma20 && sma20 < sma50:
		t.Trend = TrendBearish
	}
	return t
}

// SMA returns the mean of the last period values, or NaN if there are fewer.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	return stat.Mean(values[len(values)-period:], nil)
}

// RSI returns the relative strength index over the last period changes,
// using simple (not smoothed) averages of gains and losses.
func RSI(prices []float64, period int) *float64 {
	if period <= 0 || len(prices) < period+1 {
		return nil
	}
	var gain, loss float64
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		if gain == 0 {
			return nil
		}
		return Float(100)
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return Float(100 - 100/(1+rs))
}

// Risk holds risk-adjusted return figures.
type Risk struct {
	MaxDrawdownPct *float64 `json:"max_drawdown_pct"`
	Sharpe         *float64 `json:"sharpe"`
	Sortino        *float64 `json:"sortino"`
}

// ComputeRisk derives max drawdown (percent, <= 0) and annualized Sharpe and
// Sortino ratios from daily prices, with a zero risk-free rate.
func ComputeRisk(prices []float64) Risk {
	if len(prices) < 2 {
		return Risk{}
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	if len(returns) < 2 {
		return Risk{}
	}

	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 {
		zero := 0.0
		return Risk{MaxDrawdownPct: Float(maxDrawdown(prices) * 100), Sharpe: &zero, Sortino: &zero}
	}

	r := Risk{
		MaxDrawdownPct: Float(maxDrawdown(prices) * 100),
		Sharpe:         Float(mean / std * annualFactor),
	}

	var downside []float64
	for _, v := range returns {
		if v < 0 {
			downside = append(downside, v)
		}
	}
	// Sortino stays undefined without at least two losing days.
	if len(downside) >= 2 {
		if downStd := stat.StdDev(downside, nil); downStd > 0 {
			r.Sortino = Float(mean / downStd * annualFactor)
		}
	}
	return r
}

func maxDrawdown(prices []float64) float64 {
	peak := prices[0]
	worst := 0.0
	for _, p := range prices {
		if p > peak {
			peak = p
		}
		if peak > 0 {
			if dd := (p - peak) / peak; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// MACD holds the latest MACD line, signal line and histogram.
type MACD struct {
	Line      *float64 `json:"line"`
	Signal    *float64 `json:"signal"`
	Histogram *float64 `json:"histogram"`
}

// ComputeMACD uses EMAs seeded with the first value. It needs at least slow points.
func ComputeMACD(prices []float64, fast, slow, signal int) MACD {
	if fast <= 0 || slow <= fast || signal <= 0 || len(prices) < slow {
		return MACD{}
	}
	emaFast := EMA(prices, fast)
	emaSlow := EMA(prices, slow)

	line := make([]float64, len(prices))
	for i := range prices {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig := EMA(line, signal)

	last := len(prices) - 1
	return MACD{
		Line:      Float(line[last]),
		Signal:    Float(sig[last]),
		Histogram: Float(line[last] - sig[last]),
	}
}

// EMA returns the exponential moving average series with alpha 2/(span+1).
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2 / (float64(span) + 1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// FibLevel is one retracement level.
type FibLevel struct {
	Ratio float64 `json:"ratio"`
	Price float64 `json:"price"`
}

// Fibonacci holds retracement levels between the period high and low.
type Fibonacci struct {
	High   float64    `json:"high"`
	Low    float64    `json:"low"`
	Levels []FibLevel `json:"levels"`
}

var fibRatios = []float64{0.236, 0.382, 0.5, 0.618, 0.786}

// ComputeFibonacci returns nil for an empty series.
func ComputeFibonacci(prices []float64) *Fibonacci {
	if len(prices) == 0 {
		return nil
	}
	high, low := prices[0], prices[0]
	for _, p := range prices[1:] {
		high = math.Max(high, p)
		low = math.Min(low, p)
	}
	diff := high - low

	f := &Fibonacci{High: high, Low: low, Levels: make([]FibLevel, 0, len(fibRatios))}
	for _, r := range fibRatios {
		f.Levels = append(f.Levels, FibLevel{Ratio: r, Price: high - diff*r})
	}
	return f
}

// BetaProxy is the token's volatility relative to a benchmark's.
func BetaProxy(cv, benchmarkCV *float64) *float64 {
	if cv == nil || benchmarkCV == nil || *benchmarkCV == 0 {
		return nil
	}
	return Float(*cv / *benchmarkCV)
}
