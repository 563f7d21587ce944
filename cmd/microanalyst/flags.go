package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/JackSmack1971/microanalyst-tools/pkg/compare"
	"github.com/JackSmack1971/microanalyst-tools/pkg/config"
	"github.com/JackSmack1971/microanalyst-tools/pkg/logging"
)

// usageError marks argument errors. They exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, a ...any) error {
	return usageError{fmt.Errorf(format, a...)}
}

const usageHeader = `Usage: microanalyst <symbol> [flags]
       microanalyst --compare btc,eth,sol [flags]

Analyze a cryptocurrency token with CoinGecko and Binance market data.

Flags:
`

// options are the parsed command line arguments.
type options struct {
	symbol      string
	compare     []string
	charts      bool
	output      string
	save        string
	configPath  string
	noColor     bool
	interactive bool
	days        int
	watch       bool
	logLevel    string

	// set records which flags were given explicitly.
	set map[string]bool
}

func newFlagSet(opts *options, compareList *string) *flag.FlagSet {
	fs := flag.NewFlagSet("microanalyst", flag.ContinueOnError)
	fs.StringVar(compareList, "compare", "", "comma-separated tokens to compare (2-10)")
	fs.BoolVar(&opts.charts, "charts", false, "show ASCII price and volume charts")
	fs.StringVar(&opts.output, "output", "", "output format: terminal, json, html, markdown")
	fs.StringVar(&opts.save, "save", "", "write the report to this file")
	fs.StringVar(&opts.configPath, "config", "", "path to config file")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	fs.BoolVar(&opts.interactive, "interactive", false, "pick among multiple search matches")
	fs.BoolVar(&opts.interactive, "i", false, "shorthand for --interactive")
	fs.IntVar(&opts.days, "days", 0, "days of price history (default from config, 30)")
	fs.BoolVar(&opts.watch, "watch", false, "full-screen live view, refreshed periodically")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error, off")
	return fs
}

// usage writes the help text to w.
func usage(w io.Writer) {
	var opts options
	var list string
	fs := newFlagSet(&opts, &list)
	fs.SetOutput(w)
	fmt.Fprint(w, usageHeader)
	fs.PrintDefaults()
}

// parseArgs parses args, allowing flags before and after the symbol.
func parseArgs(args []string) (options, error) {
	opts := options{set: make(map[string]bool)}
	var compareList string
	fs := newFlagSet(&opts, &compareList)
	fs.SetOutput(io.Discard)

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return opts, err
			}
			return opts, usageError{err}
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	switch len(positional) {
	case 0:
	case 1:
		opts.symbol = strings.ToLower(strings.TrimSpace(positional[0]))
	default:
		return opts, usageErrorf("expected one symbol, got %d (use --compare for several)", len(positional))
	}

	if opts.set["compare"] {
		symbols, err := compare.ParseSymbols(compareList)
		if err != nil {
			return opts, usageError{err}
		}
		opts.compare = symbols
	}

	if err := opts.validate(); err != nil {
		return opts, usageError{err}
	}
	return opts, nil
}

func (o options) validate() error {
	if o.output != "" && !config.ValidFormat(o.output) {
		return fmt.Errorf("invalid output format %q", o.output)
	}
	if o.set["days"] && o.days <= 0 {
		return fmt.Errorf("--days must be positive, got %d", o.days)
	}
	if o.logLevel != "" && !logging.ValidLevel(o.logLevel) {
		return fmt.Errorf("invalid log level %q", o.logLevel)
	}
	if o.watch && len(o.compare) > 0 {
		return errors.New("--watch cannot be combined with --compare")
	}
	if o.watch && (o.output != "" && o.output != config.FormatTerminal || o.save != "") {
		return errors.New("--watch only supports terminal output")
	}
	if o.symbol != "" && len(o.compare) > 0 {
		return errors.New("give either a symbol or --compare, not both")
	}
	return nil
}
