package indexer

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-faster/errors"
	"github.com/shurcooL/graphql"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/cache"
	"github.com/arnac-io/fundquorum/pkg/core"
)

// BigInt is the subgraph scalar used for integer filters.
type BigInt string

const (
	defaultPageSize = 1000
	cacheItems      = 10_000

	DefaultRetryDelay = 200 * time.Millisecond
)

// Client reads fund history from a subgraph.
type Client struct {
	logger   *zap.Logger
	gql      *graphql.Client
	pageSize int
	attempts uint
	delay    time.Duration
	ttl      time.Duration

	withdrawals *cache.TTLCache[[]core.WithdrawalRecord]
	donations   *cache.TTLCache[[]core.Donation]
	checks      *cache.TTLCache[[]core.Check]
}

type Options struct {
	httpClient *http.Client
	pageSize   int
	attempts   uint
	delay      time.Duration
	ttl        time.Duration
}

type Option func(o *Options)

func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		o.httpClient = c
	}
}

func WithPageSize(size int) Option {
	return func(o *Options) {
		o.pageSize = size
	}
}

// WithRetry configures how many times a page request is attempted.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(o *Options) {
		o.attempts = attempts
		o.delay = delay
	}
}

// WithTTL sets how long results are served from cache. Zero disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.ttl = ttl
	}
}

func NewClient(logger *zap.Logger, url string, opts ...Option) (*Client, error) {
	o := &Options{
		pageSize: defaultPageSize,
		attempts: 3,
		delay:    DefaultRetryDelay,
	}
	for i := range opts {
		opts[i](o)
	}
	c := &Client{
		logger:   logger,
		gql:      graphql.NewClient(url, o.httpClient),
		pageSize: o.pageSize,
		attempts: o.attempts,
		delay:    o.delay,
		ttl:      o.ttl,
	}
	var err error
	if c.withdrawals, err = cache.NewTTLCache[[]core.WithdrawalRecord](cacheItems, "indexer_withdrawals"); err != nil {
		return nil, err
	}
	if c.donations, err = cache.NewTTLCache[[]core.Donation](cacheItems, "indexer_donations"); err != nil {
		return nil, err
	}
	if c.checks, err = cache.NewTTLCache[[]core.Check](cacheItems, "indexer_checks"); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) query(ctx context.Context, q any, variables map[string]any) error {
	return retry.Do(func() error {
		return c.gql.Query(ctx, q, variables)
	},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("indexer query failed", zap.Uint("attempt", n+1), zap.Error(err))
		}))
}

// cached serves key from store or loads and stores it.
func cached[T any](ctx context.Context, c *Client, store *cache.TTLCache[T], key string, load func(ctx context.Context) (T, error)) (T, error) {
	if c.ttl > 0 {
		v, err := store.Get(ctx, key)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			c.logger.Warn("indexer cache", zap.String("key", key), zap.Error(err))
		}
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if c.ttl > 0 {
		if err := store.Set(ctx, key, v, c.ttl); err != nil {
			c.logger.Warn("indexer cache", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}

func parseUint(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "bad %s %q", name, s)
	}
	return v, nil
}
