package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Backend names accepted by Open.
const (
	BackendDisk   = "disk"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures the persistent layer.
type Options struct {
	Backend   string
	Dir       string
	RedisAddr string
	MemoryTTL time.Duration
}

// Open builds a Manager for opts. A backend that cannot be reached is logged
// and replaced by a memory-only cache; only an unknown backend name fails.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (*Manager, error) {
	managerOpts := []Option{WithLogger(logger), WithMemoryLayer(opts.MemoryTTL)}

	switch opts.Backend {
	case BackendMemory:
		return NewManager(nil, WithLogger(logger), WithMemoryLayer(0)), nil

	case BackendDisk, "":
		store, err := OpenDiskStore(opts.Dir)
		if err != nil {
			logger.Warn().Err(err).Str("dir", opts.Dir).Msg("Disk cache unavailable, using memory only")
			return NewManager(nil, WithLogger(logger), WithMemoryLayer(0)), nil
		}
		if removed, err := store.PurgeExpired(time.Now()); err != nil {
			logger.Warn().Err(err).Msg("Failed to purge expired disk cache entries")
		} else if removed > 0 {
			CacheExpired.WithLabelValues(store.Name()).Add(float64(removed))
			logger.Debug().Int("removed", removed).Str("path", store.Path()).Msg("Purged expired disk cache entries")
		}
		return NewManager(store, managerOpts...), nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", opts.RedisAddr).Msg("Redis cache unavailable, using memory only")
			client.Close()
			return NewManager(nil, WithLogger(logger), WithMemoryLayer(0)), nil
		}
		return NewManager(NewRedisStore(client), managerOpts...), nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
