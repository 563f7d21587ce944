package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
)

// Bounds on the number of tokens in one comparison list.
const (
	MinSymbols = 2
	MaxSymbols = 10
)

var (
	// ErrNoSymbols is returned when Compare is called without symbols.
	ErrNoSymbols = errors.New("no symbols to compare")

	// ErrTooFewSymbols and ErrTooManySymbols are returned by ParseSymbols.
	ErrTooFewSymbols  = fmt.Errorf("comparison requires at least %d tokens", MinSymbols)
	ErrTooManySymbols = fmt.Errorf("comparison limited to %d tokens max", MaxSymbols)
)

// ParseSymbols splits a comma-separated list, lower-cases and de-duplicates
// the entries and checks the list length.
func ParseSymbols(list string) ([]string, error) {
	seen := make(map[string]bool)
	var symbols []string
	for _, part := range strings.Split(list, ",") {
		s := strings.ToLower(strings.TrimSpace(part))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	switch {
	case len(symbols) < MinSymbols:
		return nil, ErrTooFewSymbols
	case len(symbols) > MaxSymbols:
		return nil, ErrTooManySymbols
	}
	return symbols, nil
}

// Analyzer is the single-token analysis used by the pool.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string, opts analyzer.Options) (*analyzer.Report, error)
}

// Config holds comparison configuration.
type Config struct {
	// MaxConcurrency is the number of tokens analyzed at once. CoinGecko
	// pacing serializes the upstream calls anyway, so a small pool suffices.
	MaxConcurrency int

	// Timeout bounds each token analysis.
	Timeout time.Duration

	// Benchmark is the symbol whose volatility feeds the beta proxy. Empty
	// disables the benchmark.
	Benchmark string
}

// DefaultConfig returns 4 workers, a 2 minute per-token timeout and BTC as
// the benchmark.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        2 * time.Minute,
		Benchmark:      "btc",
	}
}

// Item is the outcome for one requested symbol. Exactly one of Report and
// Err is set.
type Item struct {
	Symbol string
	Report *analyzer.Report
	Err    error
}

// Failed reports whether the token could not be analyzed.
func (i Item) Failed() bool {
	return i.Err != nil
}

// Comparer runs comparisons.
type Comparer struct {
	analyzer Analyzer
	config   Config
	logger   zerolog.Logger
}

// New creates a comparer.
func New(a Analyzer, config Config) *Comparer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	return &Comparer{
		analyzer: a,
		config:   config,
		logger:   log.With().Str("component", "compare").Logger(),
	}
}

// Compare analyzes every symbol. It only fails for an empty symbol list;
// per-token failures are reported in the returned items.
func (c *Comparer) Compare(ctx context.Context, symbols []string, opts analyzer.Options) (*Comparison, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	start := time.Now()

	if opts.BenchmarkCV == nil && c.config.Benchmark != "" {
		opts.BenchmarkCV = c.BenchmarkCV(ctx, opts)
	}

	items := make([]Item, len(symbols))
	queue := make(chan int, len(symbols))
	for i := range symbols {
		queue <- i
	}
	close(queue)

	workers := c.config.MaxConcurrency
	if workers > len(symbols) {
		workers = len(symbols)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go c.worker(ctx, symbols, opts, queue, items, &wg, w)
	}
	wg.Wait()

	result := newComparison(items, opts.BenchmarkCV)

	c.logger.Debug().
		Int("tokens", len(symbols)).
		Int("failed", len(result.Failures())).
		Dur("duration", time.Since(start)).
		Msg("Comparison complete")

	return result, nil
}

// worker analyzes queued indices. Each index is written by exactly one
// worker, so items needs no lock.
func (c *Comparer) worker(ctx context.Context, symbols []string, opts analyzer.Options, queue <-chan int, items []Item, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for i := range queue {
		symbol := strings.TrimSpace(symbols[i])
		item := Item{Symbol: symbol}

		if err := ctx.Err(); err != nil {
			item.Err = fmt.Errorf("%s: %w", symbol, err)
			items[i] = item
			continue
		}

		tokenCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		report, err := c.analyzer.Analyze(tokenCtx, symbol, opts)
		cancel()

		if err != nil {
			c.logger.Warn().Err(err).Int("worker_id", workerID).Str("symbol", symbol).Msg("Token analysis failed")
			item.Err = err
		} else {
			item.Report = report
		}
		items[i] = item
		processed++
	}

	c.logger.Debug().Int("worker_id", workerID).Int("tokens_processed", processed).Msg("Worker completed")
}

// BenchmarkCV analyzes the configured benchmark and returns its volatility,
// or nil if it is disabled or cannot be computed.
func (c *Comparer) BenchmarkCV(ctx context.Context, opts analyzer.Options) *float64 {
	if c.config.Benchmark == "" {
		return nil
	}
	benchCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	opts.Progress = nil
	report, err := c.analyzer.Analyze(benchCtx, c.config.Benchmark, opts)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", c.config.Benchmark).Msg("Benchmark unavailable, beta proxy disabled")
		return nil
	}
	return report.Metrics.Volatility
}
