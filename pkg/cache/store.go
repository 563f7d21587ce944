package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in a store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored entry could not be decoded
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a persistent cache layer.
//
// Get returns ErrCacheMiss when the key is absent. Stores are not required to
// filter expired entries; the Manager does that against its own clock.
type Store interface {
	Name() string
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, entry *CacheEntry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Category groups endpoints that share a freshness window.
type Category string

const (
	// CategoryMarket covers market data, profiles and price history.
	CategoryMarket Category = "market"

	// CategorySpot covers order books and 24h tickers.
	CategorySpot Category = "spot"
)

// TTLPolicy maps categories to entry lifetimes.
type TTLPolicy struct {
	Market time.Duration
	Spot   time.Duration
}

// DefaultTTLPolicy returns 5 minutes for market data and 30 seconds for spot data.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Market: 5 * time.Minute,
		Spot:   30 * time.Second,
	}
}

// For returns the TTL of a category. Unknown categories get the spot TTL.
func (p TTLPolicy) For(c Category) time.Duration {
	if c == CategoryMarket {
		return p.Market
	}
	return p.Spot
}
