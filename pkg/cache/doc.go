// Package cache provides GraphQL response caching with a Redis backend.
//
// The GraphQL client consults this cache only for queries whose request
// headers carry "Cache-Control: max-age=N" without no-cache/no-store. This
// mirrors the directives the analytics backend honors server side: slow moving
// protocol aggregates are requested with a one day max-age, live transaction
// feeds with no-cache.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Backend:   "analytics",
//		Query:     query,
//		Variables: map[string]any{"duration": "month"},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - query the backend
//	}
//
//	if d := cache.ParseCacheControl(req.Header); d.Cacheable() {
//		_ = manager.Set(ctx, key, cache.NewEntry(data, d.MaxAge))
//	}
//
// # Background Refresh
//
// A query may also carry "X-Agnostic-Cache-Refresh-Trigger: F" with F in
// (0, 1). Once an entry is older than F of its lifetime the client still serves
// it, and re-runs the query in the background to replace it.
//
// # Storage
//
// Entries are JSON encoded, snappy compressed, and stored with a Redis TTL
// equal to the remaining entry lifetime. Keys are deterministic:
// "gql:<backend>:<query hash>:<sorted variables>".
//
// # Metrics
//
//   - graphql_cache_hits_total{backend} - Cache hits
//   - graphql_cache_misses_total{backend} - Cache misses
//   - graphql_cache_written_bytes_total{backend} - Compressed bytes written
//   - graphql_cache_errors_total{operation} - Cache operation errors
package cache
