package compare

import (
	"strings"
	"time"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
)

// Comparison is the result of Compare.
type Comparison struct {
	// Items in input order.
	Items []Item

	// BenchmarkCV is the benchmark volatility used for the beta proxy.
	BenchmarkCV *float64

	// Labels name the rows and columns of Correlation, one per successful
	// item in input order.
	Labels []string

	// Correlation is the Pearson correlation of daily prices. Cells are nil
	// when fewer than two common days exist or a series is constant.
	Correlation [][]*float64
}

func newComparison(items []Item, benchmarkCV *float64) *Comparison {
	c := &Comparison{Items: items, BenchmarkCV: benchmarkCV}

	var reports []*analyzer.Report
	for _, item := range items {
		if item.Report == nil {
			continue
		}
		reports = append(reports, item.Report)
		c.Labels = append(c.Labels, label(item))
	}
	c.Correlation = CorrelationMatrix(reports)
	return c
}

func label(item Item) string {
	if s := item.Report.Snapshot.Symbol; s != "" {
		return strings.ToUpper(s)
	}
	return strings.ToUpper(item.Symbol)
}

// Succeeded returns the items with a report.
func (c *Comparison) Succeeded() []Item {
	var out []Item
	for _, item := range c.Items {
		if !item.Failed() {
			out = append(out, item)
		}
	}
	return out
}

// Failures returns the items that could not be analyzed.
func (c *Comparison) Failures() []Item {
	var out []Item
	for _, item := range c.Items {
		if item.Failed() {
			out = append(out, item)
		}
	}
	return out
}

// CorrelationMatrix correlates the price series of reports pairwise over the
// days all of them share.
func CorrelationMatrix(reports []*analyzer.Report) [][]*float64 {
	series := AlignDaily(reports)

	n := len(reports)
	matrix := make([][]*float64, n)
	for i := range matrix {
		matrix[i] = make([]*float64, n)
		for j := 0; j < n; j++ {
			if j < i {
				matrix[i][j] = matrix[j][i]
				continue
			}
			matrix[i][j] = analysis.Correlation(series[i], series[j])
		}
	}
	return matrix
}

// AlignDaily returns one price series per report restricted to the UTC days
// present in every report, oldest first. Several points on one day are
// averaged. Reports without timestamps are aligned on their trailing points.
func AlignDaily(reports []*analyzer.Report) [][]float64 {
	if len(reports) == 0 {
		return nil
	}
	for _, r := range reports {
		if len(r.Timestamps()) != len(r.Prices()) || len(r.Prices()) == 0 {
			return alignTail(reports)
		}
	}

	daily := make([]map[string]float64, len(reports))
	for i, r := range reports {
		daily[i] = dailyMeans(r.Timestamps(), r.Prices())
	}

	var common []string
	for _, day := range sortedDays(reports[0].Timestamps()) {
		shared := true
		for _, d := range daily[1:] {
			if _, ok := d[day]; !ok {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, day)
		}
	}

	out := make([][]float64, len(reports))
	for i := range reports {
		out[i] = make([]float64, len(common))
		for j, day := range common {
			out[i][j] = daily[i][day]
		}
	}
	return out
}

func dailyMeans(ts []time.Time, prices []float64) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, t := range ts {
		day := t.UTC().Format(time.DateOnly)
		sums[day] += prices[i]
		counts[day]++
	}
	for day := range sums {
		sums[day] /= float64(counts[day])
	}
	return sums
}

// sortedDays returns the distinct days of ts in order of first appearance;
// history is already chronological.
func sortedDays(ts []time.Time) []string {
	seen := make(map[string]bool)
	var days []string
	for _, t := range ts {
		day := t.UTC().Format(time.DateOnly)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return days
}

func alignTail(reports []*analyzer.Report) [][]float64 {
	n := -1
	for _, r := range reports {
		if l := len(r.Prices()); n < 0 || l < n {
			n = l
		}
	}
	out := make([][]float64, len(reports))
	for i, r := range reports {
		p := r.Prices()
		out[i] = p[len(p)-n:]
	}
	return out
}
