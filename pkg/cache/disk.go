package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	diskFileName = "cache.db"
	diskLockWait = time.Second
)

var entriesBucket = []byte("entries")

// DiskStore keeps entries in a single bbolt file under a cache directory.
type DiskStore struct {
	db   *bolt.DB
	path string
}

// OpenDiskStore opens (creating if needed) the cache file in dir.
// It fails if another process holds the file lock for longer than a second.
func OpenDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	path := filepath.Join(dir, diskFileName)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: diskLockWait})
	if err != nil {
		return nil, fmt.Errorf("open cache file %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache bucket: %w", err)
	}

	return &DiskStore{db: db, path: path}, nil
}

// Name implements Store.
func (s *DiskStore) Name() string { return "disk" }

// Path returns the cache file location.
func (s *DiskStore) Path() string { return s.path }

// Get implements Store.
func (s *DiskStore) Get(_ context.Context, key string) (*CacheEntry, error) {
	var entry *CacheEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(entriesBucket).Get([]byte(key))
		if data == nil {
			return ErrCacheMiss
		}
		// data is only valid inside the transaction; Unmarshal copies it.
		var e CacheEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Set implements Store. The ttl is carried by entry.ExpiresAt.
func (s *DiskStore) Set(_ context.Context, entry *CacheEntry, _ time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).Put([]byte(entry.Key), data)
	})
}

// Delete implements Store.
func (s *DiskStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).Delete([]byte(key))
	})
}

// Clear implements Store.
func (s *DiskStore) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(entriesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(entriesBucket)
		return err
	})
}

// PurgeExpired removes every entry expired at now and returns how many were dropped.
func (s *DiskStore) PurgeExpired(now time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var e CacheEntry
			if json.Unmarshal(v, &e) != nil || e.IsExpiredAt(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Ping implements Store.
func (s *DiskStore) Ping(_ context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(entriesBucket) == nil {
			return fmt.Errorf("cache bucket missing")
		}
		return nil
	})
}

// Close implements Store.
func (s *DiskStore) Close() error {
	return s.db.Close()
}
