package cache

import (
	"testing"
	"time"
)

func TestCacheEntry_IsExpiredAt(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{"expired entry", now.Add(-time.Hour), true},
		{"valid entry", now.Add(time.Hour), false},
		{"expires exactly now", now, true},
		{"one nanosecond left", now.Add(time.Nanosecond), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{ExpiresAt: tt.expires}
			if got := entry.IsExpiredAt(now); got != tt.want {
				t.Errorf("IsExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheEntry_TTLAt(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expires time.Time
		want    time.Duration
	}{
		{"five minutes left", now.Add(5 * time.Minute), 5 * time.Minute},
		{"already expired", now.Add(-time.Minute), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{ExpiresAt: tt.expires}
			if got := entry.TTLAt(now); got != tt.want {
				t.Errorf("TTLAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheEntry_TTL_WallClock(t *testing.T) {
	entry := &CacheEntry{ExpiresAt: time.Now().Add(time.Hour)}
	if entry.IsExpired() {
		t.Error("entry one hour in the future reported expired")
	}
	if ttl := entry.TTL(); ttl <= 59*time.Minute || ttl > time.Hour {
		t.Errorf("TTL() = %v, want about 1h", ttl)
	}
}

func TestTTLPolicy_For(t *testing.T) {
	p := DefaultTTLPolicy()
	if got := p.For(CategoryMarket); got != 5*time.Minute {
		t.Errorf("market TTL = %v, want 5m", got)
	}
	if got := p.For(CategorySpot); got != 30*time.Second {
		t.Errorf("spot TTL = %v, want 30s", got)
	}
	if got := p.For(Category("other")); got != p.Spot {
		t.Errorf("unknown category TTL = %v, want spot TTL", got)
	}
}
