package cache

import (
	"encoding/json"
	"time"
)

// CacheEntry is one stored upstream response body.
type CacheEntry struct {
	// Key is the rendered CacheKey
	Key string `json:"key"`

	// Value is the raw JSON response body
	Value json.RawMessage `json:"value"`

	// ExpiresAt is when the entry stops being visible
	ExpiresAt time.Time `json:"expires_at"`

	// CachedAt is when the entry was written
	CachedAt time.Time `json:"cached_at"`
}

// IsExpiredAt reports whether the entry is no longer visible at now.
// An entry is visible only while now < ExpiresAt.
func (e *CacheEntry) IsExpiredAt(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return e.IsExpiredAt(time.Now())
}

// TTLAt returns the remaining lifetime at now, or 0 if already expired.
func (e *CacheEntry) TTLAt(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	return e.TTLAt(time.Now())
}
