package client

import (
	"context"

	"go.uber.org/atomic"
)

type traceKey struct{}

// CacheTrace counts how the requests made under one context were served.
type CacheTrace struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// WithCacheTrace returns a context whose GetJSON calls are counted by the
// returned trace. It is safe to share across goroutines.
func WithCacheTrace(ctx context.Context) (context.Context, *CacheTrace) {
	t := &CacheTrace{}
	return context.WithValue(ctx, traceKey{}, t), t
}

// EnsureCacheTrace returns the trace already carried by ctx, or attaches a
// new one.
func EnsureCacheTrace(ctx context.Context) (context.Context, *CacheTrace) {
	if t, ok := ctx.Value(traceKey{}).(*CacheTrace); ok {
		return ctx, t
	}
	return WithCacheTrace(ctx)
}

// Hits returns the number of responses served from cache.
func (t *CacheTrace) Hits() int64 { return t.hits.Load() }

// Misses returns the number of responses fetched upstream.
func (t *CacheTrace) Misses() int64 { return t.misses.Load() }

// AllCached reports whether at least one request was made and none missed.
func (t *CacheTrace) AllCached() bool {
	return t.hits.Load() > 0 && t.misses.Load() == 0
}

func recordTrace(ctx context.Context, cached bool) {
	t, ok := ctx.Value(traceKey{}).(*CacheTrace)
	if !ok {
		return
	}
	if cached {
		t.hits.Inc()
	} else {
		t.misses.Inc()
	}
}
