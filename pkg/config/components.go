package config

import (
	"github.com/JackSmack1971/microanalyst-tools/pkg/cache"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/binance"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/coingecko"
)

// CacheOptions returns the options for cache.Open.
func (c Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:   c.Cache.Backend,
		Dir:       c.Cache.Dir,
		RedisAddr: c.Cache.RedisAddr,
		MemoryTTL: c.Cache.MemoryTTL,
	}
}

// TTLPolicy returns the per-category cache TTLs.
func (c Config) TTLPolicy() cache.TTLPolicy {
	return cache.TTLPolicy{Market: c.Cache.MarketTTL, Spot: c.Cache.SpotTTL}
}

// RetryPolicy returns the rate-limit retry shared by both providers.
func (c Config) RetryPolicy() client.RetryPolicy {
	p := client.DefaultRetryPolicy()
	p.Enabled = c.Providers.RetryOnRateLimit
	if c.Providers.MaxRateLimitWait > 0 {
		p.MaxWait = c.Providers.MaxRateLimitWait
	}
	return p
}

// CoinGeckoConfig returns the CoinGecko fetcher configuration.
func (c Config) CoinGeckoConfig() coingecko.Config {
	cfg := coingecko.DefaultConfig()
	if c.Providers.CoinGecko.BaseURL != "" {
		cfg.BaseURL = c.Providers.CoinGecko.BaseURL
	}
	cfg.MinInterval = c.Providers.CoinGecko.MinInterval
	cfg.Timeout = c.Providers.Timeout
	cfg.Retry = c.RetryPolicy()
	return cfg
}

// BinanceConfig returns the Binance fetcher configuration.
func (c Config) BinanceConfig() binance.Config {
	cfg := binance.DefaultConfig()
	if c.Providers.Binance.BaseURL != "" {
		cfg.BaseURL = c.Providers.Binance.BaseURL
	}
	if c.Providers.Binance.QuoteAsset != "" {
		cfg.QuoteAsset = c.Providers.Binance.QuoteAsset
	}
	cfg.DepthLimit = c.Providers.Binance.DepthLimit
	cfg.Timeout = c.Providers.Timeout
	cfg.Retry = c.RetryPolicy()
	return cfg
}
