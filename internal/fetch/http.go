package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/maltedev/offer-extractor/internal/ratelimit"
)

const maxBodySize = 10 << 20

type HTTPOptions struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	MinDelay       time.Duration
	MaxDelay       time.Duration
	UserAgents     []string
	AcceptLanguage string
}

func DefaultHTTPOptions() HTTPOptions {
	return HTTPOptions{
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		MinDelay:       2 * time.Second,
		MaxDelay:       5 * time.Second,
		UserAgents:     []string{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
		AcceptLanguage: "pt-BR,pt;q=0.9,es;q=0.8,en;q=0.7",
	}
}

// HTTPFetcher downloads pages with a plain HTTP client, rotating user
// agents and pacing requests through an adaptive rate limiter.
type HTTPFetcher struct {
	client  *http.Client
	limiter *ratelimit.AdaptiveRateLimiter
	opts    HTTPOptions
	next    atomic.Uint64
	logger  *slog.Logger
}

func NewHTTPFetcher(opts HTTPOptions, logger *slog.Logger) *HTTPFetcher {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: ratelimit.NewAdaptiveRateLimiter(opts.MinDelay, opts.MaxDelay),
		opts:    opts,
		logger:  logger.With("component", "http_fetcher"),
	}
}

// Fetch downloads url. Server errors and throttling are retried; a 403 is
// reported as ErrBlocked straight away.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	var lastErr error

	for i := 0; i < f.opts.MaxRetries; i++ {
		if i > 0 {
			f.logger.Info("retrying fetch", "attempt", i+1, "url", url)
			if err := sleep(ctx, time.Duration(i)*f.opts.RetryDelay); err != nil {
				return nil, err
			}
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, retry, err := f.fetchOnce(ctx, url)
		if err == nil {
			f.limiter.RecordSuccess()
			return page, nil
		}

		f.limiter.RecordError()
		lastErr = err
		f.logger.Warn("fetch failed", "url", url, "attempt", i+1, "error", err)
		if !retry || ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (*Page, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")
	if f.opts.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", f.opts.AcceptLanguage)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, !errors.Is(err, context.Canceled), fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("%w: status %d", ErrBlocked, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, false, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read body: %v", ErrFetchFailed, err)
	}

	html, err := DecodeWithContentType(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, false, err
	}

	return &Page{URL: resp.Request.URL.String(), StatusCode: resp.StatusCode, HTML: html}, false, nil
}

func (f *HTTPFetcher) userAgent() string {
	if len(f.opts.UserAgents) == 0 {
		return DefaultHTTPOptions().UserAgents[0]
	}
	n := f.next.Add(1) - 1
	return f.opts.UserAgents[n%uint64(len(f.opts.UserAgents))]
}

func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
