// Package app wires configuration into the cache, the provider fetchers and
// the analyzer shared by the microanalyst binaries.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/cache"
	"github.com/JackSmack1971/microanalyst-tools/pkg/config"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/binance"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/coingecko"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config    config.Config
	Cache     *cache.Manager
	CoinGecko *coingecko.Fetcher
	Binance   *binance.Fetcher
	Analyzer  *analyzer.Analyzer
}

// New builds the component graph. The caller must Close the returned App.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	manager, err := cache.Open(ctx, cfg.CacheOptions(), logger.With().Str("component", "cache").Logger())
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	cg, err := coingecko.New(cfg.CoinGeckoConfig(), manager, cfg.TTLPolicy())
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("create coingecko fetcher: %w", err)
	}

	bn, err := binance.New(cfg.BinanceConfig(), manager, cfg.TTLPolicy())
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("create binance fetcher: %w", err)
	}

	logger.Debug().
		Str("cache_backend", manager.Backend()).
		Str("coingecko", cfg.Providers.CoinGecko.BaseURL).
		Str("binance", cfg.Providers.Binance.BaseURL).
		Msg("Components ready")

	return &App{
		Config:    cfg,
		Cache:     manager,
		CoinGecko: cg,
		Binance:   bn,
		Analyzer:  analyzer.New(cg, bn, cfg.Thresholds),
	}, nil
}

// Close releases the cache backend.
func (a *App) Close() error {
	return a.Cache.Close()
}
