package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageCache stores fetched markup for a short time so repeated searches do
// not hit the site again.
type PageCache interface {
	Get(ctx context.Context, url string) (string, bool, error)
	Set(ctx context.Context, url, html string, ttl time.Duration) error
}

type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, url string) (string, bool, error) {
	html, err := c.client.Get(ctx, c.prefix+url).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return html, true, nil
}

func (c *RedisCache) Set(ctx context.Context, url, html string, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+url, html, ttl).Err()
}

// CachedFetcher serves pages from a cache and fills it on misses. Cache
// failures are logged and never fail a fetch.
type CachedFetcher struct {
	next   Fetcher
	cache  PageCache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedFetcher(next Fetcher, cache PageCache, ttl time.Duration, logger *slog.Logger) *CachedFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFetcher{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With("component", "page_cache"),
	}
}

func (f *CachedFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	html, ok, err := f.cache.Get(ctx, url)
	if err != nil {
		f.logger.Warn("cache read failed", "url", url, "error", err)
	}
	if ok {
		f.logger.Debug("cache hit", "url", url)
		return &Page{URL: url, StatusCode: 200, HTML: html}, nil
	}

	page, err := f.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := f.cache.Set(ctx, url, page.HTML, f.ttl); err != nil {
		f.logger.Warn("cache write failed", "url", url, "error", err)
	}
	return page, nil
}

func (f *CachedFetcher) Close() error {
	return f.next.Close()
}
