package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultImbalanceLevels is the number of book levels per side used by Imbalance.
const DefaultImbalanceLevels = 10

// DefaultDepthBandPct is the band around the mid price used by DepthWithin.
const DefaultDepthBandPct = 2.0

// BookLevel is one price level.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Book is an order book with bids sorted descending and asks ascending.
type Book struct {
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
}

// Float returns a pointer to v, or nil if v is NaN or infinite.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Volatility returns the coefficient of variation of prices. It is undefined
// with fewer than two points or a zero mean.
func Volatility(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}
	mean, std := stat.PopMeanStdDev(prices, nil)
	if mean == 0 {
		return nil
	}
	return Float(std / mean)
}

// SpreadPct returns the bid-ask spread as a percentage of the best bid.
func SpreadPct(book *Book) *float64 {
	if book == nil || len(book.Bids) == 0 || len(book.Asks) == 0 {
		return nil
	}
	bid, ask := book.Bids[0].Price, book.Asks[0].Price
	if bid == 0 {
		return nil
	}
	return Float((ask - bid) / bid * 100)
}

// Imbalance returns total bid size over total ask size across the top n
// levels of each side. noAsks is true when the ask side has no volume, in
// which case the value is undefined.
func Imbalance(book *Book, n int) (value *float64, noAsks bool) {
	if book == nil {
		return nil, false
	}
	if n <= 0 {
		n = DefaultImbalanceLevels
	}
	bidVolume := sumSizes(book.Bids, n)
	askVolume := sumSizes(book.Asks, n)
	if askVolume == 0 {
		return nil, true
	}
	return Float(bidVolume / askVolume), false
}

// VolumeDeltaPct returns (cex - aggregator) / aggregator * 100. The sign says
// whether the exchange trades more or less than the aggregate.
func VolumeDeltaPct(cex, aggregator float64) *float64 {
	if aggregator == 0 {
		return nil
	}
	return Float((cex - aggregator) / aggregator * 100)
}

// DepthWithin returns the USD notional resting within bandPct of the mid price
// on both sides of the book.
func DepthWithin(book *Book, bandPct float64) *float64 {
	if book == nil || len(book.Bids) == 0 || len(book.Asks) == 0 {
		return nil
	}
	mid := (book.Bids[0].Price + book.Asks[0].Price) / 2
	lower := mid * (1 - bandPct/100)
	upper := mid * (1 + bandPct/100)

	depth := 0.0
	for _, l := range book.Bids {
		if l.Price < lower {
			break
		}
		depth += l.Price * l.Size
	}
	for _, l := range book.Asks {
		if l.Price > upper {
			break
		}
		depth += l.Price * l.Size
	}
	return Float(depth)
}

// BollingerWidth returns the width of 2-sigma Bollinger bands over the last
// period prices as a percentage of their SMA.
func BollingerWidth(prices []float64, period int) *float64 {
	if period < 2 || len(prices) < period {
		return nil
	}
	window := prices[len(prices)-period:]
	mean, std := stat.MeanStdDev(window, nil)
	if mean == 0 {
		return nil
	}
	return Float((4 * std) / mean * 100)
}

// VolumeChange compares the last volume with the mean of the trailing window
// (including the last point), in percent.
func VolumeChange(volumes []float64, window int) *float64 {
	if len(volumes) == 0 {
		return nil
	}
	if window <= 0 || window > len(volumes) {
		window = len(volumes)
	}
	avg := stat.Mean(volumes[len(volumes)-window:], nil)
	if avg == 0 {
		return nil
	}
	last := volumes[len(volumes)-1]
	return Float((last - avg) / avg * 100)
}

func sumSizes(levels []BookLevel, n int) float64 {
	if len(levels) > n {
		levels = levels[:n]
	}
	total := 0.0
	for _, l := range levels {
		total += l.Size
	}
	return total
}
