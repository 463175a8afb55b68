package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	gocache "github.com/eko/gocache/v3/cache"
	"github.com/eko/gocache/v3/store"
)

var ErrNotFound = errors.New("key not found")

// TTLCache is a string keyed cache with per item expiration backed by ristretto.
type TTLCache[T any] struct {
	cache      *gocache.Cache[T]
	ristretto  *ristretto.Cache
	metricName string
}

func NewTTLCache[T any](maxItems int64, metricName string) (*TTLCache[T], error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxItems,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	ristrettoStore := store.NewRistretto(ristrettoCache)
	return &TTLCache[T]{
		cache:      gocache.New[T](ristrettoStore),
		ristretto:  ristrettoCache,
		metricName: metricName,
	}, nil
}

// Set stores value and waits until it is visible to Get.
func (c *TTLCache[T]) Set(ctx context.Context, key string, value T, expiration time.Duration) error {
	if err := c.cache.Set(ctx, key, value, store.WithCost(1), store.WithExpiration(expiration)); err != nil {
		return err
	}
	c.ristretto.Wait()
	return nil
}

func (c *TTLCache[T]) Get(ctx context.Context, key string) (T, error) {
	value, err := c.cache.Get(ctx, key)
	if err != nil {
		cacheMetrics.WithLabelValues(c.metricName, "miss").Inc()
		var resultObject T
		if strings.Contains(err.Error(), "value not found") {
			return resultObject, ErrNotFound
		}
		return resultObject, err
	}
	cacheMetrics.WithLabelValues(c.metricName, "hit").Inc()
	return value, nil
}

func (c *TTLCache[T]) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}
