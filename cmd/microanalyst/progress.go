package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
)

var stageDescriptions = map[analyzer.Step]string{
	analyzer.StepSearch:    "Resolving Token ID",
	analyzer.StepMarket:    "Fetching Market Data",
	analyzer.StepOrderBook: "Querying Order Books",
	analyzer.StepAnalysis:  "Computing Metrics",
}

// eraseLine clears the terminal line after a carriage return.
const eraseLine = "\r\033[K"

// progress draws a single transient status line on a terminal. It is a
// no-op when disabled. In plain mode lines are overwritten with spaces
// instead of the erase-line escape.
type progress struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	plain   bool
	width   int
}

func newProgress(w io.Writer, enabled, plain bool) *progress {
	return &progress{w: w, enabled: enabled, plain: plain}
}

// Step matches analyzer.ProgressFunc.
func (p *progress) Step(step analyzer.Step, symbol string) {
	if !p.enabled {
		return
	}
	desc, ok := stageDescriptions[step]
	if !ok {
		desc = string(step)
	}
	line := fmt.Sprintf("%s: %s...", strings.ToUpper(symbol), desc)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.plain {
		pad := ""
		if n := p.width - len(line); n > 0 {
			pad = strings.Repeat(" ", n)
		}
		fmt.Fprint(p.w, "\r"+line+pad)
	} else {
		fmt.Fprint(p.w, eraseLine+line)
	}
	if len(line) > p.width {
		p.width = len(line)
	}
}

// Done clears the status line.
func (p *progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.width == 0 {
		return
	}
	if p.plain {
		fmt.Fprint(p.w, "\r"+strings.Repeat(" ", p.width)+"\r")
	} else {
		fmt.Fprint(p.w, eraseLine)
	}
	p.width = 0
}
