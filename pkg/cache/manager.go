package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Manager is the layered cache used by the fetchers.
// Both layers are optional; a Manager with neither caches nothing.
type Manager struct {
	memory *memoryLayer
	store  Store
	now    func() time.Time
	logger zerolog.Logger
	stats  Stats
}

// Option configures a Manager.
type Option func(*Manager)

// WithMemoryLayer puts an in-process layer in front of the store. Entries stay
// in memory for at most maxTTL; zero means for their full lifetime.
func WithMemoryLayer(maxTTL time.Duration) Option {
	return func(m *Manager) {
		m.memory = newMemoryLayer(maxTTL)
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger used for degraded store operations.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a cache manager. store may be nil for a memory-only cache.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Backend returns the name of the persistent layer, or "memory".
func (m *Manager) Backend() string {
	if m.store == nil {
		return BackendMemory
	}
	return m.store.Name()
}

// Get returns the cached body for key if a visible entry exists.
// Store failures are logged and reported as a miss.
func (m *Manager) Get(ctx context.Context, key CacheKey) ([]byte, bool) {
	k := key.String()
	now := m.now()

	if m.memory != nil {
		if entry, ok := m.memory.get(k); ok {
			if !entry.IsExpiredAt(now) {
				m.hit(BackendMemory)
				return entry.Value, true
			}
			m.memory.delete(k)
			CacheExpired.WithLabelValues(BackendMemory).Inc()
		}
	}

	if m.store == nil {
		m.miss()
		return nil, false
	}

	entry, err := m.store.Get(ctx, k)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			m.degrade("get", k, err)
		}
		m.miss()
		return nil, false
	}

	if entry.IsExpiredAt(now) {
		if err := m.store.Delete(ctx, k); err != nil {
			m.degrade("delete", k, err)
		}
		CacheExpired.WithLabelValues(m.store.Name()).Inc()
		m.miss()
		return nil, false
	}

	if m.memory != nil {
		m.memory.set(entry, entry.TTLAt(now))
	}
	m.hit(m.store.Name())
	return entry.Value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
// The returned error is informational; the entry may still be in memory.
func (m *Manager) Set(ctx context.Context, key CacheKey, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	now := m.now()
	entry := &CacheEntry{
		Key:       key.String(),
		Value:     append([]byte(nil), value...),
		ExpiresAt: now.Add(ttl),
		CachedAt:  now,
	}

	if m.memory != nil {
		m.memory.set(entry, ttl)
	}
	if m.store == nil {
		return nil
	}
	if err := m.store.Set(ctx, entry, ttl); err != nil {
		m.degrade("set", entry.Key, err)
		return fmt.Errorf("cache set %s: %w", entry.Key, err)
	}
	return nil
}

// Delete removes key from every layer.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	k := key.String()
	if m.memory != nil {
		m.memory.delete(k)
	}
	if m.store == nil {
		return nil
	}
	if err := m.store.Delete(ctx, k); err != nil {
		m.degrade("delete", k, err)
		return fmt.Errorf("cache delete %s: %w", k, err)
	}
	return nil
}

// Clear drops every entry from every layer.
func (m *Manager) Clear(ctx context.Context) error {
	if m.memory != nil {
		m.memory.flush()
	}
	if m.store == nil {
		return nil
	}
	if err := m.store.Clear(ctx); err != nil {
		m.degrade("clear", "*", err)
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Ping checks that the persistent layer is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	return m.store.Ping(ctx)
}

// Stats returns the lookup counters of this manager.
func (m *Manager) Stats() StatsSnapshot {
	return m.stats.Snapshot()
}

// Close releases the persistent layer.
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

func (m *Manager) hit(layer string) {
	m.stats.hits.Inc()
	CacheHits.WithLabelValues(layer).Inc()
}

func (m *Manager) miss() {
	m.stats.misses.Inc()
	CacheMisses.Inc()
}

func (m *Manager) degrade(operation, key string, err error) {
	m.stats.errors.Inc()
	CacheErrors.WithLabelValues(operation).Inc()
	m.logger.Warn().
		Err(err).
		Str("operation", operation).
		Str("key", key).
		Str("layer", m.Backend()).
		Msg("Cache store error, continuing without cache")
}
