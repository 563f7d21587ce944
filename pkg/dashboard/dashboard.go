// Package dashboard holds the view model shared by the browser dashboard and
// the terminal watch mode.
//
// A Model moves through Idle, Loading, Loaded and Failed. Transitions return
// a new Model; a failure or a reload keeps the last loaded report so the
// display never blanks out. Render turns any state into a View.
package dashboard

import (
	"encoding/json"
	"time"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/render"
)

// Status is the lifecycle state of a Model.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

// String returns the lower-case state name.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalJSON encodes the state name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Model is an immutable dashboard state.
type Model struct {
	status    Status
	symbol    string
	report    *analyzer.Report
	err       error
	updatedAt time.Time
}

// New returns an idle model.
func New() Model {
	return Model{}
}

// Status returns the current state.
func (m Model) Status() Status { return m.status }

// Report returns the last loaded report, possibly from before a failure.
func (m Model) Report() *analyzer.Report { return m.report }

// Err returns the failure of the Failed state.
func (m Model) Err() error { return m.err }

// Load starts loading symbol. A report for another symbol is dropped.
func (m Model) Load(symbol string) Model {
	next := Model{status: StatusLoading, symbol: symbol}
	if m.symbol == symbol {
		next.report = m.report
		next.updatedAt = m.updatedAt
	}
	return next
}

// Loaded records a successful analysis.
func (m Model) Loaded(r *analyzer.Report, at time.Time) Model {
	symbol := m.symbol
	if symbol == "" {
		symbol = r.Symbol
	}
	return Model{status: StatusLoaded, symbol: symbol, report: r, updatedAt: at}
}

// Failed records a failed analysis and keeps the previous report.
func (m Model) Failed(err error) Model {
	return Model{status: StatusFailed, symbol: m.symbol, report: m.report, err: err, updatedAt: m.updatedAt}
}

// Card is one headline metric.
type Card struct {
	Title string         `json:"title"`
	Value string         `json:"value"`
	Level analysis.Level `json:"level"`
	Label string         `json:"label"`
}

// View is everything a front end needs to draw the dashboard.
type View struct {
	Status     Status      `json:"status"`
	HasData    bool        `json:"has_data"`
	Symbol     string      `json:"symbol"`
	Title      string      `json:"title"`
	Price      string      `json:"price"`
	Cards      []Card      `json:"cards"`
	Prices     []float64   `json:"prices"`
	Timestamps []time.Time `json:"timestamps"`
	Warnings   []string    `json:"warnings,omitempty"`
	Banner     string      `json:"banner,omitempty"`
	Cached     bool        `json:"cached"`
	UpdatedAt  *time.Time  `json:"updated_at,omitempty"`
}

// Render produces the view for the current state: four metric cards, the
// price series and, in the Failed state, an error banner.
func (m Model) Render() View {
	v := View{
		Status: m.status,
		Symbol: m.symbol,
		Title:  m.symbol,
		Price:  render.Dash,
		Cards:  cards(nil),
	}
	if m.status == StatusFailed && m.err != nil {
		v.Banner = "error: " + client.Describe(m.err)
	}
	if !m.updatedAt.IsZero() {
		at := m.updatedAt
		v.UpdatedAt = &at
	}

	r := m.report
	if r == nil {
		return v
	}
	v.HasData = true
	v.Title = r.Snapshot.Symbol
	if r.Snapshot.Name != "" {
		v.Title = r.Snapshot.Name + " (" + r.Snapshot.Symbol + ")"
	}
	if r.Snapshot.Market != nil {
		v.Price = render.Price(r.Snapshot.Market.PriceUSD)
	}
	v.Cards = cards(r)
	v.Prices = r.Prices()
	v.Timestamps = r.Timestamps()
	v.Warnings = r.Warnings
	v.Cached = r.Cached
	return v
}

func cards(r *analyzer.Report) []Card {
	var m analysis.Result
	var s analysis.Signals
	if r != nil {
		m, s = r.Metrics, r.Signals
	}
	return []Card{
		card("Volatility (CV)", render.Number(m.Volatility, 4), s.Volatility),
		card("Spread", render.Percent(m.SpreadPct, 2), s.Spread),
		card("Volume Delta", render.SignedPercent(m.VolumeDeltaPct, 1), s.VolumeDelta),
		card("Imbalance", render.Number(m.Imbalance, 2), s.Imbalance),
	}
}

func card(title, value string, level analysis.Level) Card {
	label := level.String()
	if label == "" {
		label = render.Dash
	}
	return Card{Title: title, Value: value, Level: level, Label: label}
}
