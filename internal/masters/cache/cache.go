// Package cache provides the cache-aside layer over the master data
// repository: a Cache backend contract, Redis and in-memory backends, and
// CachedRepository, which wraps any Repository with read-through caching
// and per-write invalidation.
package cache

import (
	"context"
	"time"
)

// Cache is the backend contract: get/set/delete on opaque string keys with
// a TTL. No ordering or transactional guarantees are required beyond
// atomic single-key set/delete. DeletePrefix backs precise per-write
// invalidation and the administrative flush.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}
