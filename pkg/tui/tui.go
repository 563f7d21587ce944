// Package tui implements the --watch full-screen view: a price line chart,
// four metric cards and a status line, refreshed on an interval.
package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mum4k/termdash"
	"github.com/mum4k/termdash/cell"
	"github.com/mum4k/termdash/container"
	"github.com/mum4k/termdash/container/grid"
	"github.com/mum4k/termdash/keyboard"
	"github.com/mum4k/termdash/linestyle"
	"github.com/mum4k/termdash/terminal/tcell"
	"github.com/mum4k/termdash/terminal/terminalapi"
	"github.com/mum4k/termdash/widgets/linechart"
	"github.com/mum4k/termdash/widgets/text"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/dashboard"
)

const redrawInterval = 250 * time.Millisecond

// LoadFunc produces a fresh report.
type LoadFunc func(ctx context.Context) (*analyzer.Report, error)

// Watch drives the dashboard model from a LoadFunc and draws it.
type Watch struct {
	symbol   string
	interval time.Duration
	load     LoadFunc
	now      func() time.Time
	logger   zerolog.Logger

	mu    sync.Mutex
	model dashboard.Model

	chart  *linechart.LineChart
	cards  []*text.Text
	status *text.Text
}

// New creates a watch view for symbol that reloads every interval.
func New(symbol string, interval time.Duration, load LoadFunc) (*Watch, error) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	w := &Watch{
		symbol:   symbol,
		interval: interval,
		load:     load,
		now:      time.Now,
		logger:   log.With().Str("component", "tui").Logger(),
		model:    dashboard.New(),
	}

	chart, err := linechart.New(
		linechart.AxesCellOpts(cell.FgColor(cell.ColorNumber(244))),
		linechart.YLabelCellOpts(cell.FgColor(cell.ColorGreen)),
		linechart.XLabelCellOpts(cell.FgColor(cell.ColorGreen)),
	)
	if err != nil {
		return nil, fmt.Errorf("create line chart: %w", err)
	}
	w.chart = chart

	for i := 0; i < 4; i++ {
		card, err := text.New(text.WrapAtWords())
		if err != nil {
			return nil, fmt.Errorf("create card widget: %w", err)
		}
		w.cards = append(w.cards, card)
	}

	status, err := text.New(text.WrapAtWords())
	if err != nil {
		return nil, fmt.Errorf("create status widget: %w", err)
	}
	w.status = status

	if err := w.draw(w.model.Render()); err != nil {
		return nil, err
	}
	return w, nil
}

// View returns the current rendered view.
func (w *Watch) View() dashboard.View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.model.Render()
}

// Refresh loads once and redraws, moving the model through Loading to
// Loaded or Failed.
func (w *Watch) Refresh(ctx context.Context) {
	w.update(func(m dashboard.Model) dashboard.Model { return m.Load(w.symbol) })

	report, err := w.load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Debug().Err(err).Str("symbol", w.symbol).Msg("Refresh failed")
		w.update(func(m dashboard.Model) dashboard.Model { return m.Failed(err) })
		return
	}
	w.update(func(m dashboard.Model) dashboard.Model { return m.Loaded(report, w.now()) })
}

func (w *Watch) update(fn func(dashboard.Model) dashboard.Model) {
	w.mu.Lock()
	w.model = fn(w.model)
	view := w.model.Render()
	w.mu.Unlock()

	if err := w.draw(view); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to draw dashboard")
	}
}

// draw writes v into the widgets.
func (w *Watch) draw(v dashboard.View) error {
	labels := make(map[int]string, len(v.Timestamps))
	for i, ts := range v.Timestamps {
		labels[i] = ts.Format("01-02")
	}
	if err := w.chart.Series("price", v.Prices,
		linechart.SeriesCellOpts(cell.FgColor(cell.ColorCyan)),
		linechart.SeriesXLabels(labels),
	); err != nil {
		return fmt.Errorf("update chart: %w", err)
	}

	for i, c := range v.Cards {
		if i >= len(w.cards) {
			break
		}
		widget := w.cards[i]
		widget.Reset()
		if err := widget.Write(c.Title + "\n\n"); err != nil {
			return err
		}
		if err := widget.Write(c.Value+"\n", text.WriteCellOpts(cell.Bold())); err != nil {
			return err
		}
		if err := widget.Write(c.Label, text.WriteCellOpts(cell.FgColor(levelColor(c.Level)))); err != nil {
			return err
		}
	}

	w.status.Reset()
	line := fmt.Sprintf("%s  %s  [%s]", v.Title, v.Price, v.Status)
	if v.UpdatedAt != nil {
		line += "  updated " + v.UpdatedAt.Format("15:04:05")
	}
	if v.Cached {
		line += "  (cached)"
	}
	if err := w.status.Write(line + "   q: quit  r: refresh\n"); err != nil {
		return err
	}
	for _, warning := range v.Warnings {
		if err := w.status.Write("! "+warning+"\n", text.WriteCellOpts(cell.FgColor(cell.ColorYellow))); err != nil {
			return err
		}
	}
	if v.Banner != "" {
		if err := w.status.Write(v.Banner, text.WriteCellOpts(cell.FgColor(cell.ColorRed))); err != nil {
			return err
		}
	}
	return nil
}

func levelColor(l analysis.Level) cell.Color {
	switch l {
	case analysis.LevelHigh:
		return cell.ColorRed
	case analysis.LevelWarn:
		return cell.ColorYellow
	case analysis.LevelOK:
		return cell.ColorGreen
	default:
		return cell.ColorDefault
	}
}

func (w *Watch) layout() ([]container.Option, error) {
	titles := []string{" Volatility ", " Spread ", " Volume Delta ", " Imbalance "}
	var cardCols []grid.Element
	for i, c := range w.cards {
		cardCols = append(cardCols, grid.ColWidthPerc(25,
			grid.Widget(c, container.Border(linestyle.Light), container.BorderTitle(titles[i])),
		))
	}

	builder := grid.New()
	builder.Add(
		grid.RowHeightPerc(60,
			grid.Widget(w.chart,
				container.Border(linestyle.Light),
				container.BorderTitle(" Price (USD) "),
			),
		),
		grid.RowHeightPerc(25, cardCols...),
		grid.RowHeightPerc(15,
			grid.Widget(w.status, container.Border(linestyle.Light), container.BorderTitle(" Status ")),
		),
	)
	return builder.Build()
}

// Run takes over the terminal until ctx is done or the user quits.
func (w *Watch) Run(ctx context.Context) error {
	t, err := tcell.New(tcell.ColorMode(terminalapi.ColorMode256))
	if err != nil {
		return fmt.Errorf("initialize terminal: %w", err)
	}
	defer t.Close()

	opts, err := w.layout()
	if err != nil {
		return fmt.Errorf("build layout: %w", err)
	}
	root, err := container.New(t, opts...)
	if err != nil {
		return fmt.Errorf("create root container: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	refresh := make(chan struct{}, 1)
	quit := func(k *terminalapi.Keyboard) {
		switch k.Key {
		case 'q', 'Q', keyboard.KeyEsc, keyboard.KeyCtrlC:
			cancel()
		case 'r', 'R':
			select {
			case refresh <- struct{}{}:
			default:
			}
		}
	}

	go w.loop(ctx, refresh)

	return termdash.Run(ctx, t, root,
		termdash.KeyboardSubscriber(quit),
		termdash.RedrawInterval(redrawInterval),
	)
}

func (w *Watch) loop(ctx context.Context, refresh <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Refresh(ctx)
		case <-refresh:
			w.Refresh(ctx)
		}
	}
}
