package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/compare"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var htmlTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"currency":  Price,
	"large":     LargeCurrency,
	"percent":   Percent,
	"signed":    SignedPercent,
	"change":    func(v float64, precision int) string { return SignedPercent(&v, precision) },
	"number":    Number,
	"whole":     WholeCurrency,
	"title":     Title,
	"level":     levelLabel,
	"levelCSS":  levelClass,
	"describe":  client.Describe,
	"risks":     RiskFactors,
	"sparkline": func(v []float64) string { s, _ := analysis.Sparkline(v, 30); return s },
}).ParseFS(templateFS, "templates/report.html.tmpl"))

func levelClass(l analysis.Level) string {
	switch l {
	case analysis.LevelHigh:
		return "high"
	case analysis.LevelWarn:
		return "warn"
	case analysis.LevelOK:
		return "ok"
	default:
		return "none"
	}
}

// ComparisonItem is the JSON form of one compared token.
type ComparisonItem struct {
	Symbol string           `json:"symbol"`
	Report *analyzer.Report `json:"report,omitempty"`
	Error  string           `json:"error,omitempty"`
	Kind   string           `json:"error_kind,omitempty"`
}

// ComparisonDocument is the JSON form of a comparison.
type ComparisonDocument struct {
	GeneratedAt time.Time        `json:"generated_at"`
	BenchmarkCV *float64         `json:"benchmark_cv"`
	Items       []ComparisonItem `json:"items"`
	Labels      []string         `json:"correlation_labels"`
	Correlation [][]*float64     `json:"correlation"`
}

// NewComparisonDocument converts c for JSON export.
func NewComparisonDocument(c *compare.Comparison, now time.Time) ComparisonDocument {
	doc := ComparisonDocument{
		GeneratedAt: now.UTC(),
		BenchmarkCV: c.BenchmarkCV,
		Labels:      c.Labels,
		Correlation: c.Correlation,
	}
	for _, item := range c.Items {
		ci := ComparisonItem{Symbol: item.Symbol, Report: item.Report}
		if item.Err != nil {
			ci.Error = client.Describe(item.Err)
			ci.Kind = string(client.KindOf(item.Err))
		}
		doc.Items = append(doc.Items, ci)
	}
	return doc
}

// JSON encodes v indented.
func JSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}

type htmlPage struct {
	Title       string
	GeneratedAt time.Time
	Reports     []*analyzer.Report
	Comparison  *compare.Comparison
}

// HTML renders reports as a standalone page. c may be nil.
func HTML(title string, reports []*analyzer.Report, c *compare.Comparison, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, htmlPage{
		Title:       title,
		GeneratedAt: now.UTC(),
		Reports:     reports,
		Comparison:  c,
	})
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// FormatForPath guesses an output format from a file extension. ok is false
// for unknown extensions.
func FormatForPath(path string) (format string, ok bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", true
	case ".html", ".htm":
		return "html", true
	case ".md", ".markdown":
		return "markdown", true
	case ".txt":
		return "terminal", true
	}
	return "", false
}
