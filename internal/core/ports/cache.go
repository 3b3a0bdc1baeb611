package ports

import (
	"context"
	"time"
)

// FetchFunc loads fresh data from the slow path (typically the relational
// store) on a cache miss. The cache treats the result as opaque; errors
// propagate to the caller uncached.
type FetchFunc func(ctx context.Context) (any, error)

// QueryCache is the read-through cache contract handlers program against.
// Implementations must never surface a cache-tier outage as an error: all
// infrastructure failures degrade to an in-process fallback or to a miss
// that forces the caller to recompute.
type QueryCache interface {
	// Get unmarshals the cached value for key into dest. ok=false on miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value under key with TTL on every healthy backend.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Del removes key from every healthy backend and the fallback store.
	Del(ctx context.Context, key string) error
	// GetOrSet returns the cached value or invokes fetch and caches its
	// non-nil result. Fetch errors are returned verbatim.
	GetOrSet(ctx context.Context, key string, fetch FetchFunc, ttl time.Duration) (any, error)
	// ClearPattern deletes keys matching a glob pattern in batches.
	ClearPattern(ctx context.Context, pattern string) error
	// Counter is embedded so rate limiting shares the same tiering.
	Counter
}

// Counter provides TTL-scoped atomic counters. A window's TTL is attached
// when the counter is first created and is not refreshed by later
// increments (fixed-window semantics).
type Counter interface {
	// Incr increments the counter at key, creating it at 1 with ttl.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
