package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"masters/internal/masters/models"
	"masters/internal/masters/service"
	"masters/internal/masters/store"
	"masters/pkg/domain"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "masters_cache_hits_total",
		Help: "Cache hits by entry kind",
	}, []string{"kind"})
	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "masters_cache_misses_total",
		Help: "Cache misses by entry kind",
	}, []string{"kind"})
	cacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "masters_cache_invalidations_total",
		Help: "Write-triggered cache invalidations",
	})
)

// CachedRepository wraps a Repository with cache-aside reads and
// write-triggered invalidation. The cache is strictly a performance layer:
// for the same committed state, reads return the same results with the
// cache enabled or disabled. Cache transport failures degrade to the
// underlying repository.
//
// On a write, the record's key prefix and the type's list and tree
// prefixes are invalidated after the underlying write commits and before
// the call returns. A crash in between leaves stale entries no longer
// than the TTL, which is an accepted degradation.
type CachedRepository struct {
	inner service.Repository
	cache Cache
	keys  *Keys
	ttl   time.Duration
	log   *slog.Logger
	group singleflight.Group
}

func NewCachedRepository(inner service.Repository, backend Cache, keys *Keys, ttl time.Duration, log *slog.Logger) *CachedRepository {
	return &CachedRepository{
		inner: inner,
		cache: backend,
		keys:  keys,
		ttl:   ttl,
		log:   log,
	}
}

func (c *CachedRepository) Get(ctx context.Context, typeSlug string, f store.Filter) ([]*models.MasterData, error) {
	key := c.keys.List(typeSlug, store.ScopeFrom(ctx), f)
	return c.readList(ctx, "list", key, func() ([]*models.MasterData, error) {
		return c.inner.Get(ctx, typeSlug, f)
	})
}

func (c *CachedRepository) Find(ctx context.Context, typeSlug string, id domain.RecordID) (*models.MasterData, error) {
	key := c.keys.Record(typeSlug, id, store.ScopeFrom(ctx))
	if raw, ok := c.lookup(ctx, "record", key); ok {
		var d models.MasterData
		if err := json.Unmarshal(raw, &d); err == nil {
			return &d, nil
		}
	}
	d, err := c.inner.Find(ctx, typeSlug, id)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, key, d)
	return d, nil
}

func (c *CachedRepository) Create(ctx context.Context, typeSlug string, attrs models.RecordAttrs) (*models.MasterData, error) {
	d, err := c.inner.Create(ctx, typeSlug, attrs)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, typeSlug, d.ID)
	return d, nil
}

func (c *CachedRepository) Update(ctx context.Context, typeSlug string, id domain.RecordID, attrs models.RecordAttrs) (*models.MasterData, error) {
	d, err := c.inner.Update(ctx, typeSlug, id, attrs)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, typeSlug, id)
	return d, nil
}

func (c *CachedRepository) Delete(ctx context.Context, typeSlug string, id domain.RecordID) error {
	if err := c.inner.Delete(ctx, typeSlug, id); err != nil {
		return err
	}
	c.invalidate(ctx, typeSlug, id)
	return nil
}

func (c *CachedRepository) GetHierarchical(ctx context.Context, typeSlug string, parentID *domain.RecordID) ([]*models.MasterData, error) {
	key := c.keys.Tree(typeSlug, store.ScopeFrom(ctx), parentID)
	return c.readList(ctx, "tree", key, func() ([]*models.MasterData, error) {
		return c.inner.GetHierarchical(ctx, typeSlug, parentID)
	})
}

func (c *CachedRepository) Search(ctx context.Context, typeSlug string, query string, f store.Filter) ([]*models.MasterData, error) {
	f.Search = query
	key := c.keys.List(typeSlug, store.ScopeFrom(ctx), f)
	return c.readList(ctx, "list", key, func() ([]*models.MasterData, error) {
		return c.inner.Search(ctx, typeSlug, query, f)
	})
}

// Flush drops every cached entry under the configured prefix. This is an
// explicit administrative action; per-write correctness never relies on it.
func (c *CachedRepository) Flush(ctx context.Context) error {
	return c.cache.DeletePrefix(ctx, c.keys.Prefix())
}

// readList runs the cache-aside read path for list-shaped results.
// Concurrent misses on the same key collapse into one load.
func (c *CachedRepository) readList(ctx context.Context, kind, key string, load func() ([]*models.MasterData, error)) ([]*models.MasterData, error) {
	if raw, ok := c.lookup(ctx, kind, key); ok {
		var rows []*models.MasterData
		if err := json.Unmarshal(raw, &rows); err == nil {
			return rows, nil
		}
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		rows, err := load()
		if err != nil {
			return nil, err
		}
		c.fill(ctx, key, rows)
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*models.MasterData), nil
}

func (c *CachedRepository) lookup(ctx context.Context, kind, key string) ([]byte, bool) {
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed, falling through", "key", key, "error", err)
		return nil, false
	}
	if ok {
		cacheHits.WithLabelValues(kind).Inc()
		return raw, true
	}
	cacheMisses.WithLabelValues(kind).Inc()
	return nil, false
}

func (c *CachedRepository) fill(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
}

// invalidate clears every entry a write can affect: the record across all
// tenancy scopes plus the type's lists and trees. Runs before the write
// returns to its caller.
func (c *CachedRepository) invalidate(ctx context.Context, typeSlug string, id domain.RecordID) {
	cacheInvalidations.Inc()
	for _, prefix := range []string{
		c.keys.RecordPrefix(typeSlug, id),
		c.keys.ListPrefix(typeSlug),
		c.keys.TreePrefix(typeSlug),
	} {
		if err := c.cache.DeletePrefix(ctx, prefix); err != nil {
			c.log.Warn("cache invalidation failed", "prefix", prefix, "error", err)
		}
	}
}
