package cache

import (
	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheMetrics = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_requests_total",
		Help: "Cache lookups by cache name and result.",
	},
	[]string{
		"name",
		"result",
	},
)

// Cache is an in-memory cache reporting hits and misses to prometheus.
type Cache[K comparable, V any] struct {
	cache      *cache.Cache[K, V]
	metricName string
}

// NewCache returns a cache that never evicts. Entries live until deleted.
func NewCache[K comparable, V any](metricName string) Cache[K, V] {
	return Cache[K, V]{
		cache:      cache.New[K, V](),
		metricName: metricName,
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	val, ok := c.cache.Get(key)
	if ok {
		cacheMetrics.WithLabelValues(c.metricName, "hit").Inc()
		return val, ok
	}
	cacheMetrics.WithLabelValues(c.metricName, "miss").Inc()
	return val, ok
}

func (c *Cache[K, V]) Set(key K, val V) {
	c.cache.Set(key, val)
}

func (c *Cache[K, V]) Len() int {
	return len(c.cache.Keys())
}
