package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/offer-extractor/internal/config"
	"github.com/maltedev/offer-extractor/internal/currency"
	"github.com/maltedev/offer-extractor/internal/fetch"
	"github.com/maltedev/offer-extractor/internal/sites"
	"github.com/redis/go-redis/v9"
)

// Setup builds a Service from configuration: the site registry (with
// SITES_FILE overrides), the HTTP fetcher, the optional browser renderer,
// the optional Redis page cache in front of both and the currency
// converter, which shares its rate tables through Redis when configured. The returned close
// function releases everything Setup opened.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, func() error, error) {
	registry, err := sites.LoadRegistry(logger, cfg.Extract.SitesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load sites: %w", err)
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	var fetcher fetch.Fetcher = fetch.NewHTTPFetcher(cfg.HTTPOptions(), logger)
	closers = append(closers, fetcher.Close)

	var renderer fetch.Fetcher
	if cfg.Browser.Enabled {
		b, err := fetch.NewBrowserFetcher(cfg.BrowserOptions(), logger)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("start browser: %w", err)
		}
		renderer = b
		closers = append(closers, b.Close)
	}

	var sharedRates currency.SharedCache
	if cfg.Cache.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			closeAll()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		closers = append(closers, client.Close)

		cache := fetch.NewRedisCache(client, cfg.Cache.Prefix)
		fetcher = fetch.NewCachedFetcher(fetcher, cache, cfg.Cache.TTL, logger)
		if renderer != nil {
			renderer = fetch.NewCachedFetcher(renderer, cache, cfg.Cache.TTL, logger)
		}
		sharedRates = fetch.NewRedisCache(client, cfg.Rates.CachePrefix)
	}

	service := NewService(registry, fetcher, renderer, logger)
	service.SetConverter(currency.NewConverter(cfg.CurrencyOptions(), sharedRates, logger))

	return service, closeAll, nil
}
