// Package analyzer builds a token report: it resolves the symbol, fetches
// CoinGecko and Binance data in parallel and runs the metrics engine.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/metrics"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/binance"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/coingecko"
)

var (
	// ErrEmptySymbol is returned for a blank symbol.
	ErrEmptySymbol = errors.New("symbol is required")

	// ErrInvalidDays is returned when the history window is not positive.
	ErrInvalidDays = errors.New("days must be positive")
)

// MarketSource is the aggregator side (CoinGecko).
type MarketSource interface {
	Resolve(ctx context.Context, symbol string) (coingecko.Coin, error)
	FetchMarketDataByID(ctx context.Context, id string) (*coingecko.MarketData, error)
	FetchPriceHistoryByID(ctx context.Context, id string, days int) (*coingecko.PriceHistory, error)
}

// ExchangeSource is the exchange side (Binance).
type ExchangeSource interface {
	Pair(symbol string) string
	FetchOrderBook(ctx context.Context, symbol string) (*binance.OrderBook, error)
	FetchTicker(ctx context.Context, symbol string) (*binance.Ticker24h, error)
}

// Step identifies a phase of an analysis for progress reporting.
type Step string

const (
	StepSearch    Step = "search"
	StepMarket    Step = "market"
	StepOrderBook Step = "orderbook"
	StepAnalysis  Step = "analysis"
)

// ProgressFunc is called when a step starts. It may be called from several
// goroutines at once.
type ProgressFunc func(step Step, symbol string)

// Options tune one analysis.
type Options struct {
	// Days of price history, must be positive.
	Days int

	// BenchmarkCV enables the beta proxy.
	BenchmarkCV *float64

	// Progress receives step notifications. Optional.
	Progress ProgressFunc
}

// Analyzer runs token analyses. It is safe for concurrent use.
type Analyzer struct {
	market     MarketSource
	exchange   ExchangeSource
	thresholds analysis.Thresholds
	now        func() time.Time
	logger     zerolog.Logger
}

// New creates an analyzer.
func New(market MarketSource, exchange ExchangeSource, thresholds analysis.Thresholds) *Analyzer {
	return &Analyzer{
		market:     market,
		exchange:   exchange,
		thresholds: thresholds,
		now:        time.Now,
		logger:     log.With().Str("component", "analyzer").Logger(),
	}
}

// Thresholds returns the classification thresholds in use.
func (a *Analyzer) Thresholds() analysis.Thresholds {
	return a.thresholds
}

// Analyze resolves symbol through the market source and analyzes the coin.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, opts Options) (*Report, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}

	// The symbol lookup counts toward the report's cached flag.
	ctx, _ = client.EnsureCacheTrace(ctx)
	notify(opts.Progress, StepSearch, symbol)
	coin, err := a.market.Resolve(ctx, symbol)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return a.AnalyzeCoin(ctx, symbol, coin, opts)
}

// AnalyzeCoin analyzes an already resolved coin. requested is the symbol the
// user asked for and is echoed in the report. Lookups made under a
// client.WithCacheTrace ctx count toward Report.Cached.
func (a *Analyzer) AnalyzeCoin(ctx context.Context, requested string, coin coingecko.Coin, opts Options) (*Report, error) {
	if opts.Days <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidDays, opts.Days)
	}
	start := a.now()
	ctx, trace := client.EnsureCacheTrace(ctx)

	snap := Snapshot{
		Symbol: strings.ToUpper(coin.Symbol),
		CoinID: coin.ID,
		Name:   coin.Name,
		Pair:   a.exchange.Pair(coin.Symbol),
	}

	var (
		mu       sync.Mutex
		warnings []string
	)
	warn := func(what string, err error) {
		a.logger.Warn().Err(err).Str("symbol", snap.Pair).Str("error_kind", string(client.KindOf(err))).
			Msgf("%s unavailable, continuing with partial data", what)
		mu.Lock()
		warnings = append(warnings, fmt.Sprintf("%s unavailable: %s", what, client.Describe(err)))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	notify(opts.Progress, StepMarket, snap.Symbol)
	g.Go(func() error {
		md, err := a.market.FetchMarketDataByID(gctx, coin.ID)
		if err != nil {
			return err
		}
		snap.Market = md
		return nil
	})
	g.Go(func() error {
		h, err := a.market.FetchPriceHistoryByID(gctx, coin.ID, opts.Days)
		if err != nil {
			return err
		}
		snap.History = h
		return nil
	})

	notify(opts.Progress, StepOrderBook, snap.Pair)
	g.Go(func() error {
		book, err := a.exchange.FetchOrderBook(gctx, coin.Symbol)
		if err != nil {
			warn("order book", err)
			return nil
		}
		snap.OrderBook = book
		return nil
	})
	g.Go(func() error {
		t, err := a.exchange.FetchTicker(gctx, coin.Symbol)
		if err != nil {
			warn("ticker", err)
			return nil
		}
		snap.Ticker = t
		return nil
	})

	if err := g.Wait(); err != nil {
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("%s: %w", requested, err)
	}

	notify(opts.Progress, StepAnalysis, snap.Symbol)
	result := analysis.Compute(inputFor(&snap, opts.BenchmarkCV))

	report := &Report{
		Symbol:      requested,
		Days:        opts.Days,
		Snapshot:    snap,
		Metrics:     result,
		Signals:     analysis.Classify(result, a.thresholds),
		Partial:     len(warnings) > 0,
		Warnings:    warnings,
		Cached:      trace.AllCached(),
		GeneratedAt: a.now().UTC(),
	}

	outcome := metrics.OutcomeOK
	if report.Partial {
		outcome = metrics.OutcomePartial
	}
	metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
	elapsed := a.now().Sub(start)
	metrics.AnalysisDuration.Observe(elapsed.Seconds())

	a.logger.Debug().
		Str("symbol", report.Snapshot.Symbol).
		Bool("partial", report.Partial).
		Bool("cache_hit", report.Cached).
		Dur("duration", elapsed).
		Msg("Analysis complete")

	return report, nil
}

func notify(p ProgressFunc, step Step, symbol string) {
	if p != nil {
		p(step, symbol)
	}
}

// inputFor converts the snapshot into metrics engine input.
func inputFor(s *Snapshot, benchmarkCV *float64) analysis.Input {
	in := analysis.Input{
		BenchmarkCV:     benchmarkCV,
		ImbalanceLevels: analysis.DefaultImbalanceLevels,
	}
	if s.History != nil {
		in.Prices = s.History.Prices
		in.Volumes = s.History.Volumes
	}
	if s.Market != nil {
		in.AggregatorVol = s.Market.Volume24hUSD
	}
	if s.OrderBook != nil {
		in.Book = BookFrom(s.OrderBook)
	}
	if s.Ticker != nil {
		in.CEXVolume = analysis.Float(s.Ticker.QuoteVolume.InexactFloat64())
	}
	return in
}

// BookFrom converts an exchange order book to the engine's float book.
func BookFrom(b *binance.OrderBook) *analysis.Book {
	convert := func(levels []binance.Level) []analysis.BookLevel {
		out := make([]analysis.BookLevel, len(levels))
		for i, l := range levels {
			out[i] = analysis.BookLevel{Price: l.Price.InexactFloat64(), Size: l.Quantity.InexactFloat64()}
		}
		return out
	}
	return &analysis.Book{Bids: convert(b.Bids), Asks: convert(b.Asks)}
}
