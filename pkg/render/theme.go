package render

import (
	"github.com/fatih/color"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
)

// ColorEnabled decides whether output is colored. A non-empty NO_COLOR
// always wins, then --no-color, then whether the output is a terminal.
func ColorEnabled(noColorFlag, isTTY bool, getenv func(string) string) bool {
	if getenv("NO_COLOR") != "" {
		return false
	}
	if noColorFlag {
		return false
	}
	return isTTY
}

// Theme maps severities to colors. The zero value prints plain text.
type Theme struct {
	enabled bool
	high    *color.Color
	warn    *color.Color
	ok      *color.Color
	info    *color.Color
	muted   *color.Color
	heading *color.Color
}

// NewTheme returns a theme that colors only when enabled is true.
func NewTheme(enabled bool) Theme {
	t := Theme{
		enabled: enabled,
		high:    color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow),
		ok:      color.New(color.FgGreen),
		info:    color.New(color.FgCyan),
		muted:   color.New(color.Faint),
		heading: color.New(color.Bold),
	}
	for _, c := range []*color.Color{t.high, t.warn, t.ok, t.info, t.muted, t.heading} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return t
}

// Enabled reports whether the theme emits ANSI escapes.
func (t Theme) Enabled() bool {
	return t.enabled
}

func (t Theme) paint(c *color.Color, s string) string {
	if !t.enabled || c == nil {
		return s
	}
	return c.Sprint(s)
}

// Level renders a severity label, or a dash for LevelNone.
func (t Theme) Level(l analysis.Level) string {
	return t.ByLevel(l, levelLabel(l))
}

// ByLevel colors s with the color of l.
func (t Theme) ByLevel(l analysis.Level, s string) string {
	switch l {
	case analysis.LevelHigh:
		return t.paint(t.high, s)
	case analysis.LevelWarn:
		return t.paint(t.warn, s)
	case analysis.LevelOK:
		return t.paint(t.ok, s)
	default:
		return s
	}
}

// Direction colors s green when rising and red when falling.
func (t Theme) Direction(d analysis.Direction, s string) string {
	switch d {
	case analysis.Up:
		return t.paint(t.ok, s)
	case analysis.Down:
		return t.paint(t.high, s)
	default:
		return s
	}
}

// Warn colors a warning line.
func (t Theme) Warn(s string) string { return t.paint(t.warn, s) }

// Error colors an error line.
func (t Theme) Error(s string) string { return t.paint(t.high, s) }

// Info colors informational text.
func (t Theme) Info(s string) string { return t.paint(t.info, s) }

// Muted dims s.
func (t Theme) Muted(s string) string { return t.paint(t.muted, s) }

// Heading bolds s.
func (t Theme) Heading(s string) string { return t.paint(t.heading, s) }

func levelLabel(l analysis.Level) string {
	if l == analysis.LevelNone {
		return Dash
	}
	return l.String()
}
