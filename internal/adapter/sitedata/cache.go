package sitedata

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/couchcryptid/snow-flow-etl/internal/domain"
	"github.com/couchcryptid/snow-flow-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// CachedSource wraps a SeriesSource with an in-memory LRU cache.
//
// The collector rewrites records in place, so a cached record is reloaded once
// it is older than the TTL or, when the inner source can report record
// versions, as soon as its version changes.
type CachedSource struct {
	inner   domain.SeriesSource
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// versioner is implemented by sources that can cheaply tell whether a record
// changed without loading it.
type versioner interface {
	Version(ctx context.Context, element, triplet string) (Version, error)
}

// NewCachedSource creates a cache decorator around a series source. A ttl of
// zero disables age-based expiry. metrics may be nil.
func NewCachedSource(inner domain.SeriesSource, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
	}
}

func (c *CachedSource) Series(ctx context.Context, element, triplet string) (domain.DailySeries, error) {
	key := element + "|" + triplet
	if e, ok := c.cache.get(key); ok {
		if c.fresh(ctx, element, triplet, e) {
			c.observe(element, "hit")
			return e.value, nil
		}
		c.observe(element, "stale")
		c.cache.remove(key)
	} else {
		c.observe(element, "miss")
	}

	// Stat before reading so a rewrite that races the load is caught next time.
	var version Version
	if v, ok := c.inner.(versioner); ok {
		version, _ = v.Version(ctx, element, triplet)
	}
	loadedAt := c.clock.Now()

	s, err := c.inner.Series(ctx, element, triplet)
	if err != nil {
		c.load(element, err)
		return s, err
	}
	c.load(element, nil)
	c.cache.put(key, cachedSeries{value: s, version: version, loadedAt: loadedAt})
	return s, nil
}

func (c *CachedSource) fresh(ctx context.Context, element, triplet string, e cachedSeries) bool {
	if c.ttl > 0 && c.clock.Now().Sub(e.loadedAt) >= c.ttl {
		return false
	}
	v, ok := c.inner.(versioner)
	if !ok {
		return true
	}
	current, err := v.Version(ctx, element, triplet)
	return err == nil && current.Equal(e.version)
}

func (c *CachedSource) observe(element, result string) {
	if c.metrics != nil {
		c.metrics.SeriesCache.WithLabelValues(element, result).Inc()
	}
}

func (c *CachedSource) load(element string, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, domain.ErrSeriesNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	c.metrics.SeriesLoads.WithLabelValues(element, outcome).Inc()
}

// lruCache is a thread-safe LRU of parsed records. Callers share the cached
// value slices and must not mutate them.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List // front is most recently used
	entries    map[string]*list.Element
}

type entry struct {
	key   string
	value cachedSeries
}

type cachedSeries struct {
	value    domain.DailySeries
	version  Version
	loadedAt time.Time
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (cachedSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return cachedSeries{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key string, value cachedSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
