// Command microanalyst analyzes cryptocurrency tokens from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/JackSmack1971/microanalyst-tools/internal/app"
	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/compare"
	"github.com/JackSmack1971/microanalyst-tools/pkg/config"
	"github.com/JackSmack1971/microanalyst-tools/pkg/logging"
	"github.com/JackSmack1971/microanalyst-tools/pkg/prompt"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/coingecko"
	"github.com/JackSmack1971/microanalyst-tools/pkg/render"
	"github.com/JackSmack1971/microanalyst-tools/pkg/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	c := &cli{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		stdinTTY:  logging.IsTerminal(os.Stdin),
		stdoutTTY: logging.IsTerminal(os.Stdout),
		stderrTTY: logging.IsTerminal(os.Stderr),
		getenv:    os.Getenv,
		now:       time.Now,
	}
	code := c.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// cli holds the process environment so tests can substitute it.
type cli struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	stdinTTY  bool
	stdoutTTY bool
	stderrTTY bool
	getenv    func(string) string
	now       func() time.Time
}

// session is the state of one invocation after flags and config are known.
type session struct {
	*cli
	opts   options
	cfg    config.Config
	app    *app.App
	theme  render.Theme
	format string
	days   int
	logger zerolog.Logger

	// plainStderr forbids ANSI escapes on stderr.
	plainStderr bool
}

func (c *cli) interactiveTTY() bool {
	return c.stdinTTY && c.stdoutTTY
}

func (c *cli) run(ctx context.Context, args []string) int {
	opts, err := parseArgs(args)
	if errors.Is(err, flag.ErrHelp) {
		usage(c.stdout)
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(c.stderr, "error: %v\n\n", err)
		usage(c.stderr)
		return 2
	}

	if opts.symbol == "" && len(opts.compare) == 0 && !c.interactiveTTY() {
		usage(c.stderr)
		return 2
	}
	if opts.watch && !c.stdoutTTY {
		fmt.Fprintln(c.stderr, "error: --watch requires a terminal")
		return 2
	}

	noLogColor := !render.ColorEnabled(opts.noColor, c.stderrTTY, c.getenv)
	bootstrap := logging.Setup(logging.Config{Level: logging.LevelWarn, Pretty: c.stderrTTY, NoColor: noLogColor, Output: c.stderr})
	cfg := config.Load(opts.configPath, bootstrap)
	level := logging.LogLevel(cfg.Logging.Level)
	if opts.logLevel != "" {
		level = logging.LogLevel(opts.logLevel)
	}
	logger := logging.Setup(logging.Config{
		Level:   level,
		Pretty:  cfg.Logging.Pretty || c.stderrTTY,
		NoColor: noLogColor,
		Output:  c.stderr,
	})

	if opts.interactive && !c.interactiveTTY() {
		logger.Debug().Msg("Ignoring --interactive without a terminal")
		opts.interactive = false
	}

	s := &session{
		cli:    c,
		opts:   opts,
		cfg:    cfg,
		theme:  render.NewTheme(render.ColorEnabled(opts.noColor, c.stdoutTTY, c.getenv)),
		format: resolveFormat(opts, cfg),
		days:   cfg.Defaults.Days,
		logger: logger,

		plainStderr: noLogColor,
	}
	if opts.set["days"] {
		s.days = opts.days
	}

	if s.opts.symbol == "" && len(s.opts.compare) == 0 {
		symbol, err := prompt.New(c.stdin, c.stderr).Ask("Enter token symbol:")
		if err != nil {
			fmt.Fprintln(c.stderr, "error: no symbol given")
			return 1
		}
		s.opts.symbol = strings.ToLower(symbol)
		s.opts.interactive = true
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %v\n", err)
		return 1
	}
	defer a.Close()
	s.app = a

	switch {
	case s.opts.watch:
		return s.watch(ctx)
	case len(s.opts.compare) > 0:
		return s.compare(ctx)
	default:
		return s.single(ctx)
	}
}

// resolveFormat picks --output, then the --save extension, then the
// configured default.
func resolveFormat(opts options, cfg config.Config) string {
	if opts.output != "" {
		return opts.output
	}
	if opts.save != "" {
		if f, ok := render.FormatForPath(opts.save); ok {
			return f
		}
	}
	return cfg.Defaults.OutputFormat
}

func (s *session) fail(symbol string, err error) {
	fmt.Fprintf(s.stderr, "error: %s: %s\n", symbol, client.Describe(err))
}

func (s *session) single(ctx context.Context) int {
	symbol := s.opts.symbol
	prog := newProgress(s.stderr, s.stderrTTY, s.plainStderr)

	opts := analyzer.Options{Days: s.days, Progress: prog.Step}
	if symbol != compare.DefaultConfig().Benchmark {
		opts.BenchmarkCV = s.comparer().BenchmarkCV(ctx, analyzer.Options{Days: s.days})
	}

	var (
		report *analyzer.Report
		err    error
	)
	if s.opts.interactive {
		report, err = s.analyzeInteractive(ctx, symbol, opts, prog)
	} else {
		report, err = s.app.Analyzer.Analyze(ctx, symbol, opts)
	}
	prog.Done()

	if errors.Is(err, prompt.ErrCancelled) {
		fmt.Fprintln(s.stderr, "Cancelled.")
		return 1
	}
	if err != nil {
		s.fail(symbol, err)
		return 1
	}
	if err := s.emitReport(report); err != nil {
		fmt.Fprintf(s.stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// analyzeInteractive lets the user pick among the search matches before
// analyzing the chosen coin.
func (s *session) analyzeInteractive(ctx context.Context, symbol string, opts analyzer.Options, prog *progress) (*analyzer.Report, error) {
	ctx, _ = client.WithCacheTrace(ctx)
	prog.Step(analyzer.StepSearch, symbol)
	coins, err := s.app.CoinGecko.Search(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(coins) == 0 {
		return s.app.Analyzer.Analyze(ctx, symbol, opts)
	}

	prog.Done()
	coin, err := prompt.New(s.stdin, s.stderr).SelectCoin(preferExact(coins, symbol))
	if err != nil {
		return nil, err
	}
	return s.app.Analyzer.AnalyzeCoin(ctx, symbol, coin, opts)
}

// preferExact moves the best exact symbol match to the front so it is the
// default choice.
func preferExact(coins []coingecko.Coin, symbol string) []coingecko.Coin {
	best, ok := coingecko.PickCoin(coins, symbol)
	if !ok {
		return coins
	}
	out := []coingecko.Coin{best}
	for _, c := range coins {
		if c.ID != best.ID {
			out = append(out, c)
		}
	}
	return out
}

func (s *session) comparer() *compare.Comparer {
	return compare.New(s.app.Analyzer, compare.DefaultConfig())
}

func (s *session) compare(ctx context.Context) int {
	upper := make([]string, len(s.opts.compare))
	for i, sym := range s.opts.compare {
		upper[i] = strings.ToUpper(sym)
	}
	fmt.Fprintf(s.stderr, "Comparing %d tokens: %s\n", len(upper), strings.Join(upper, ", "))

	prog := newProgress(s.stderr, s.stderrTTY, s.plainStderr)
	result, err := s.comparer().Compare(ctx, s.opts.compare, analyzer.Options{Days: s.days, Progress: prog.Step})
	prog.Done()
	if err != nil {
		fmt.Fprintf(s.stderr, "error: %v\n", err)
		return 1
	}

	for _, item := range result.Failures() {
		s.fail(item.Symbol, item.Err)
	}
	if len(result.Succeeded()) == 0 {
		return 1
	}
	if err := s.emitComparison(result); err != nil {
		fmt.Fprintf(s.stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (s *session) watch(ctx context.Context) int {
	symbol := s.opts.symbol
	load := func(ctx context.Context) (*analyzer.Report, error) {
		return s.app.Analyzer.Analyze(ctx, symbol, analyzer.Options{Days: s.days})
	}

	w, err := tui.New(symbol, s.cfg.Server.StreamInterval, load)
	if err != nil {
		fmt.Fprintf(s.stderr, "error: %v\n", err)
		return 1
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(s.stderr, "error: %v\n", err)
		return 1
	}
	if v := w.View(); !v.HasData && v.Banner != "" {
		fmt.Fprintln(s.stderr, v.Banner)
		return 1
	}
	return 0
}
