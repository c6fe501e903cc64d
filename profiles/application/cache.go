package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/lrucache"
	"github.com/lhudash/chisa-api/pkg/metrics"
	"github.com/lhudash/chisa-api/profiles/domain"
	"github.com/sirupsen/logrus"
)

// CacheStats is reported by the monitoring endpoint.
type CacheStats struct {
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	TTL       string  `json:"ttl"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRatio  float64 `json:"hit_ratio"`
}

// ProfileCache fronts the profile store with a bounded LRU. One mutex
// serializes every check-then-fill sequence so concurrent misses for a user
// run one after another instead of interleaving their store calls.
type ProfileCache struct {
	mu      sync.Mutex
	cache   *lrucache.Cache[string, domain.Profile]
	store   domain.Store
	metrics *metrics.Metrics

	hits      int64
	misses    int64
	evictions int64
}

type CacheOption func(*cacheOptions)

type cacheOptions struct {
	metrics *metrics.Metrics
	clock   func() time.Time
}

// WithMetrics mirrors hit/miss/eviction counters to prometheus.
func WithMetrics(m *metrics.Metrics) CacheOption {
	return func(o *cacheOptions) { o.metrics = m }
}

// WithClock overrides the cache clock. Tests only.
func WithClock(now func() time.Time) CacheOption {
	return func(o *cacheOptions) { o.clock = now }
}

func NewProfileCache(store domain.Store, capacity int, ttl time.Duration, opts ...CacheOption) *ProfileCache {
	var o cacheOptions
	for _, opt := range opts {
		opt(&o)
	}

	pc := &ProfileCache{store: store, metrics: o.metrics}

	lruOpts := []lrucache.Option[string, domain.Profile]{
		lrucache.WithEvictCallback(func(key string, _ domain.Profile, expired bool) {
			atomic.AddInt64(&pc.evictions, 1)
			pc.metrics.RecordCacheEviction(expired)
			logrus.Debugf("[CACHE] Evicted profile %s (expired=%v)", key, expired)
		}),
	}
	if o.clock != nil {
		lruOpts = append(lruOpts, lrucache.WithClock[string, domain.Profile](o.clock))
	}

	pc.cache = lrucache.New[string, domain.Profile](capacity, ttl, lruOpts...)
	return pc
}

// GetUserData returns the cached profile or loads it from the store. A store
// failure is logged and reported as a miss.
func (c *ProfileCache) GetUserData(ctx context.Context, userID string) (domain.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.cache.Get(userID); ok {
		c.recordLookup(true)
		return p, true
	}
	c.recordLookup(false)

	p, err := c.fetch(ctx, userID)
	if err != nil {
		var notFound pkgError.NotFoundError
		if errors.As(err, &notFound) {
			logrus.Debugf("[CACHE] Profile %s not in store", userID)
		} else {
			logrus.WithError(err).WithField("user_id", userID).Error("[CACHE] Failed to load profile from store")
		}
		return domain.Profile{}, false
	}

	c.cache.Put(userID, p)
	c.metrics.SetCacheSize(c.cache.Len())
	return p, true
}

// fetch isolates panics from the store so the lock is always released and the
// cache left untouched.
func (c *ProfileCache) fetch(ctx context.Context, userID string) (p domain.Profile, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("profile store panicked")
			logrus.Errorf("[CACHE] Store panic for %s: %v", userID, r)
		}
	}()
	return c.store.FetchByID(ctx, userID)
}

// SetUserData caches the profile and writes it through to the store. Store
// errors are logged only.
func (c *ProfileCache) SetUserData(ctx context.Context, userID string, p domain.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p.UserID = userID
	c.cache.Put(userID, p)
	c.metrics.SetCacheSize(c.cache.Len())

	if err := c.store.Upsert(ctx, p); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("[CACHE] Failed to persist profile")
	}
}

// Invalidate drops the cached profile for userID.
func (c *ProfileCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Delete(userID)
	c.metrics.SetCacheSize(c.cache.Len())
}

func (c *ProfileCache) Stats() CacheStats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)

	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return CacheStats{
		Size:      c.cache.Len(),
		Capacity:  c.cache.Capacity(),
		TTL:       c.cache.TTL().String(),
		Hits:      hits,
		Misses:    misses,
		Evictions: atomic.LoadInt64(&c.evictions),
		HitRatio:  ratio,
	}
}

func (c *ProfileCache) recordLookup(hit bool) {
	if hit {
		atomic.AddInt64(&c.hits, 1)
	} else {
		atomic.AddInt64(&c.misses, 1)
	}
	c.metrics.RecordCacheLookup(hit)
}
