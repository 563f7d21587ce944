// Package cache memoizes upstream market-data responses with a per-entry TTL.
//
// The cache is layered:
//
//   - an optional in-memory L1 (patrickmn/go-cache) that absorbs repeated
//     lookups inside one process
//   - a persistent L2 Store: a bbolt file on disk (default), Redis, or nothing
//
// Entries are only visible while now < ExpiresAt. Expired entries are dropped
// lazily on lookup; there is no other eviction.
//
// # Basic Usage
//
//	store, err := cache.OpenDiskStore(dir)
//	if err != nil {
//		return err
//	}
//	manager := cache.NewManager(store, cache.WithMemoryLayer(30*time.Second))
//	defer manager.Close()
//
//	key := cache.CacheKey{
//		Provider: "coingecko",
//		Endpoint: "/coins/{id}/market_chart",
//		Symbol:   "bitcoin",
//		Params:   url.Values{"days": []string{"30"}},
//	}
//
//	if body, ok := manager.Get(ctx, key); ok {
//		// served from cache
//	}
//	_ = manager.Set(ctx, key, body, policy.For(cache.CategoryMarket))
//
// # Failure Mode
//
// Store errors (disk I/O, Redis outages, corrupt records) never escape Get:
// they are logged, counted in microanalyst_cache_errors_total and reported as
// a miss so that callers fall through to the network.
//
// # Metrics
//
//   - microanalyst_cache_hits_total{layer} - Cache hits by layer (memory, disk, redis)
//   - microanalyst_cache_misses_total - Cache misses
//   - microanalyst_cache_errors_total{operation} - Store errors by operation
package cache
