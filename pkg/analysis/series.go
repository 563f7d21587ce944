package analysis

import (
	"strings"

	"gonum.org/v1/gonum/stat"
)

// sparkRunes are the sparkline glyphs from lowest to highest.
var sparkRunes = []rune(" ▂▃▄▅▆▇█")

// Direction compares the last point of a series with the first.
type Direction int

const (
	Flat Direction = iota
	Up
	Down
)

// Sparkline renders values as width glyphs, sampling evenly when there are
// more values than width. A flat series renders at mid height.
func Sparkline(values []float64, width int) (string, Direction) {
	if len(values) == 0 {
		return "", Flat
	}
	if width <= 0 {
		width = 10
	}

	sampled := values
	if len(values) > width {
		step := float64(len(values)) / float64(width)
		sampled = make([]float64, width)
		for i := range sampled {
			sampled[i] = values[int(float64(i)*step)]
		}
	}

	lo, hi := sampled[0], sampled[0]
	for _, v := range sampled {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var b strings.Builder
	top := float64(len(sparkRunes) - 1)
	for _, v := range sampled {
		idx := 3
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * top)
		}
		b.WriteRune(sparkRunes[idx])
	}

	dir := Flat
	switch first, last := sampled[0], sampled[len(sampled)-1]; {
	case last > first:
		dir = Up
	case last < first:
		dir = Down
	}
	return b.String(), dir
}

// Correlation returns the Pearson correlation of two equal-length series.
// It is undefined for mismatched lengths, fewer than two points or a
// constant series.
func Correlation(x, y []float64) *float64 {
	if len(x) != len(y) || len(x) < 2 {
		return nil
	}
	return Float(stat.Correlation(x, y, nil))
}
