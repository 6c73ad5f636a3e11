package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/offer-extractor/internal/ratelimit"
	"github.com/playwright-community/playwright-go"
)

// BrowserFetcher renders pages in headless Chromium for sites that build
// their listings client side.
type BrowserFetcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	limiter ratelimit.RateLimiter
	opts    *BrowserOptions
	logger  *slog.Logger
}

type BrowserOptions struct {
	Headless       bool
	Timeout        time.Duration
	MaxRetries     int
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	// MinDelay and MaxDelay bound the random pause between navigations.
	MinDelay time.Duration
	MaxDelay time.Duration
	// WaitSelector is awaited after navigation unless the request context
	// carries its own (see WithWaitSelector).
	WaitSelector string
	// Scrolls is how many times the page is scrolled to trigger lazy
	// loaded results.
	Scrolls int
}

func DefaultBrowserOptions() *BrowserOptions {
	return &BrowserOptions{
		Headless:       true,
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "pt-BR,pt;q=0.9,es;q=0.8,en;q=0.7",
		TimezoneID:     "America/Sao_Paulo",
		Locale:         "pt-BR",
		Scrolls:        3,
		MinDelay:       2 * time.Second,
		MaxDelay:       5 * time.Second,
	}
}

func NewBrowserFetcher(opts *BrowserOptions, logger *slog.Logger) (*BrowserFetcher, error) {
	if opts == nil {
		opts = DefaultBrowserOptions()
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
		},
	}
	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: opts.ProxyServer}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": opts.AcceptLanguage,
			"DNT":             "1",
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &BrowserFetcher{
		pw:      pw,
		browser: browser,
		context: bctx,
		limiter: ratelimit.NewSimpleRateLimiter(opts.MinDelay, opts.MaxDelay),
		opts:    opts,
		logger:  logger.With("component", "browser_fetcher"),
	}, nil
}

// Fetch navigates to url in a fresh page and returns the rendered markup.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("%w: new page: %v", ErrFetchFailed, err)
	}
	defer page.Close()

	timeout := b.timeout(ctx)
	page.SetDefaultTimeout(float64(timeout.Milliseconds()))

	status, err := b.navigateWithRetry(ctx, page, url, timeout)
	if err != nil {
		return nil, err
	}

	if selector := b.waitSelector(ctx); selector != "" {
		if _, err := page.WaitForSelector(selector); err != nil {
			b.logger.Debug("wait selector not found", "selector", selector, "error", err)
		}
	}
	b.scroll(page)

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("%w: read content: %v", ErrFetchFailed, err)
	}

	return &Page{URL: page.URL(), StatusCode: status, HTML: html}, nil
}

func (b *BrowserFetcher) waitSelector(ctx context.Context) string {
	if s := WaitSelector(ctx); s != "" {
		return s
	}
	return b.opts.WaitSelector
}

func (b *BrowserFetcher) navigateWithRetry(ctx context.Context, page playwright.Page, url string, timeout time.Duration) (int, error) {
	var lastErr error

	for i := 0; i < b.opts.MaxRetries; i++ {
		if i > 0 {
			b.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			if err := sleep(ctx, time.Duration(i)*time.Second); err != nil {
				return 0, err
			}
		}

		resp, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		})
		if err == nil {
			if resp == nil {
				return 0, nil
			}
			if resp.Status() == 403 {
				return resp.Status(), fmt.Errorf("%w: status 403", ErrBlocked)
			}
			return resp.Status(), nil
		}

		lastErr = err
		b.logger.Error("navigation failed", "error", err, "attempt", i+1)
	}

	return 0, fmt.Errorf("%w: after %d retries: %v", ErrFetchFailed, b.opts.MaxRetries, lastErr)
}

// scroll moves down the page so lazily rendered results get attached.
func (b *BrowserFetcher) scroll(page playwright.Page) {
	for i := 0; i < b.opts.Scrolls; i++ {
		if _, err := page.Evaluate(`window.scrollBy(0, window.innerHeight)`); err != nil {
			b.logger.Debug("scroll failed", "error", err)
			return
		}
		page.WaitForTimeout(500)
	}
}

// timeout is the configured timeout, shortened to the context deadline.
func (b *BrowserFetcher) timeout(ctx context.Context) time.Duration {
	timeout := b.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout
}

func (b *BrowserFetcher) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
