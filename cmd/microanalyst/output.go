package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/compare"
	"github.com/JackSmack1971/microanalyst-tools/pkg/config"
	"github.com/JackSmack1971/microanalyst-tools/pkg/render"
)

// exportPath returns --save, or a timestamped file name in the working
// directory for file-only formats.
func exportPath(save, name, format string, now time.Time) string {
	if save != "" {
		return save
	}
	return fmt.Sprintf("%s_%s.%s", strings.ToLower(name), now.Format("20060102_150405"), format)
}

func (s *session) terminalOptions(theme render.Theme) render.TerminalOptions {
	return render.TerminalOptions{
		Theme:   theme,
		Charts:  s.opts.charts,
		Compact: s.cfg.Display.Compact,
	}
}

// emitReport renders one report in the session format. Terminal and
// Markdown go to stdout unless --save is set; JSON and HTML are always
// written to a file.
func (s *session) emitReport(r *analyzer.Report) error {
	switch s.format {
	case config.FormatTerminal:
		if s.opts.save == "" {
			return render.NewTerminal(s.stdout, s.terminalOptions(s.theme)).Report(r)
		}
		var buf bytes.Buffer
		if err := render.NewTerminal(&buf, s.terminalOptions(render.NewTheme(false))).Report(r); err != nil {
			return err
		}
		return s.save(s.opts.save, buf.Bytes())

	case config.FormatMarkdown:
		md := render.Markdown(r)
		if s.opts.save == "" {
			_, err := fmt.Fprint(s.stdout, md)
			return err
		}
		return s.save(s.opts.save, []byte(md))

	case config.FormatJSON:
		data, err := render.JSON(r)
		if err != nil {
			return err
		}
		return s.save(exportPath(s.opts.save, r.Symbol, "json", s.now()), data)

	case config.FormatHTML:
		data, err := render.HTML(reportTitle(r), []*analyzer.Report{r}, nil, s.now())
		if err != nil {
			return err
		}
		return s.save(exportPath(s.opts.save, r.Symbol, "html", s.now()), data)
	}
	return fmt.Errorf("unsupported output format %q", s.format)
}

// emitComparison renders a comparison in the session format.
func (s *session) emitComparison(c *compare.Comparison) error {
	switch s.format {
	case config.FormatTerminal:
		if s.opts.save == "" {
			return render.NewTerminal(s.stdout, s.terminalOptions(s.theme)).Comparison(c)
		}
		var buf bytes.Buffer
		if err := render.NewTerminal(&buf, s.terminalOptions(render.NewTheme(false))).Comparison(c); err != nil {
			return err
		}
		return s.save(s.opts.save, buf.Bytes())

	case config.FormatMarkdown:
		md := render.ComparisonMarkdown(c)
		if s.opts.save == "" {
			_, err := fmt.Fprint(s.stdout, md)
			return err
		}
		return s.save(s.opts.save, []byte(md))

	case config.FormatJSON:
		data, err := render.JSON(render.NewComparisonDocument(c, s.now()))
		if err != nil {
			return err
		}
		return s.save(exportPath(s.opts.save, "comparison", "json", s.now()), data)

	case config.FormatHTML:
		var reports []*analyzer.Report
		for _, item := range c.Succeeded() {
			reports = append(reports, item.Report)
		}
		data, err := render.HTML("Token Comparison", reports, c, s.now())
		if err != nil {
			return err
		}
		return s.save(exportPath(s.opts.save, "comparison", "html", s.now()), data)
	}
	return fmt.Errorf("unsupported output format %q", s.format)
}

func (s *session) save(path string, data []byte) error {
	if err := render.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	fmt.Fprintf(s.stderr, "Report saved to %s\n", path)
	return nil
}

func reportTitle(r *analyzer.Report) string {
	if r.Snapshot.Name != "" {
		return fmt.Sprintf("%s (%s) Analysis", r.Snapshot.Name, r.Snapshot.Symbol)
	}
	return strings.ToUpper(r.Symbol) + " Analysis"
}
