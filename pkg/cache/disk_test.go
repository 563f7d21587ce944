package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDiskStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenDiskStore(dir)
	if err != nil {
		t.Fatalf("OpenDiskStore failed: %v", err)
	}
	entry := &CacheEntry{
		Key:       "coingecko:search:btc",
		Value:     []byte(`{"coins":[]}`),
		ExpiresAt: time.Now().Add(time.Hour),
		CachedAt:  time.Now(),
	}
	if err := store.Set(ctx, entry, time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	store.Close()

	reopened, err := OpenDiskStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, entry.Key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Value) != string(entry.Value) {
		t.Errorf("Value = %s, want %s", got.Value, entry.Value)
	}
}

func TestDiskStore_MissingKey(t *testing.T) {
	store, err := OpenDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskStore failed: %v", err)
	}
	defer store.Close()

	_, err = store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get error = %v, want ErrCacheMiss", err)
	}
}

func TestDiskStore_PurgeExpired(t *testing.T) {
	store, err := OpenDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = store.Set(ctx, &CacheEntry{Key: "old", Value: []byte(`1`), ExpiresAt: now.Add(-time.Second)}, time.Second)
	_ = store.Set(ctx, &CacheEntry{Key: "new", Value: []byte(`2`), ExpiresAt: now.Add(time.Hour)}, time.Hour)

	removed, err := store.PurgeExpired(now)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := store.Get(ctx, "new"); err != nil {
		t.Errorf("fresh entry purged: %v", err)
	}
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		opts    Options
		want    string
		wantErr bool
	}{
		{"memory", Options{Backend: BackendMemory}, "memory", false},
		{"disk", Options{Backend: BackendDisk, Dir: t.TempDir()}, "disk", false},
		{"default is disk", Options{Dir: t.TempDir()}, "disk", false},
		{"unreachable redis degrades", Options{Backend: BackendRedis, RedisAddr: "127.0.0.1:1"}, "memory", false},
		{"unknown backend", Options{Backend: "floppy"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Open(ctx, tt.opts, testLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer m.Close()
			if got := m.Backend(); got != tt.want {
				t.Errorf("Backend() = %q, want %q", got, tt.want)
			}
		})
	}
}
