package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/maltedev/offer-extractor/internal/currency"
	"github.com/maltedev/offer-extractor/internal/fetch"
)

type Config struct {
	Server  ServerConfig
	Fetch   FetchConfig
	Browser BrowserConfig
	Cache   CacheConfig
	Rates   RatesConfig
	Extract ExtractConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

type FetchConfig struct {
	Timeout        time.Duration
	RateLimitMin   time.Duration
	RateLimitMax   time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	UserAgents     []string
	AcceptLanguage string
}

type BrowserConfig struct {
	Enabled        bool
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	TimezoneID     string
	Locale         string
	Proxy          string
	Scrolls        int
	// WaitSelector applies to profiles that do not name their own.
	WaitSelector string
}

// CacheConfig configures the Redis page cache. An empty Addr disables it.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RatesConfig configures currency conversion. Without an API key only the
// built-in rates are used.
type RatesConfig struct {
	APIKey      string
	BaseURL     string
	TTL         time.Duration
	Timeout     time.Duration
	CachePrefix string
}

type ExtractConfig struct {
	Workers   int
	SitesFile string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			MaxBodyBytes:    int64(getIntOrDefault("SERVER_MAX_BODY_BYTES", 10<<20)),
		},
		Fetch: FetchConfig{
			Timeout:        getDurationOrDefault("FETCH_TIMEOUT", 30*time.Second),
			RateLimitMin:   getDurationOrDefault("FETCH_RATE_LIMIT_MIN", 2*time.Second),
			RateLimitMax:   getDurationOrDefault("FETCH_RATE_LIMIT_MAX", 5*time.Second),
			MaxRetries:     getIntOrDefault("FETCH_MAX_RETRIES", 3),
			RetryDelay:     getDurationOrDefault("FETCH_RETRY_DELAY", 2*time.Second),
			UserAgents:     getStringSliceOrDefault("FETCH_USER_AGENTS", defaultUserAgents()),
			AcceptLanguage: getEnvOrDefault("FETCH_ACCEPT_LANGUAGE", "pt-BR,pt;q=0.9,es;q=0.8,en;q=0.7"),
		},
		Browser: BrowserConfig{
			Enabled:        getBoolOrDefault("BROWSER_ENABLED", false),
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/Sao_Paulo"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "pt-BR"),
			Proxy:          getEnvOrDefault("BROWSER_PROXY", ""),
			Scrolls:        getIntOrDefault("BROWSER_SCROLLS", 3),
			WaitSelector:   getEnvOrDefault("BROWSER_WAIT_SELECTOR", ""),
		},
		Cache: CacheConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			TTL:      getDurationOrDefault("CACHE_TTL", 15*time.Minute),
			Prefix:   getEnvOrDefault("CACHE_PREFIX", "offers:page:"),
		},
		Rates: RatesConfig{
			APIKey:      getEnvOrDefault("EXCHANGE_RATE_API_KEY", ""),
			BaseURL:     getEnvOrDefault("EXCHANGE_RATE_URL", "https://v6.exchangerate-api.com/v6"),
			TTL:         getDurationOrDefault("EXCHANGE_RATE_TTL", 5*time.Hour),
			Timeout:     getDurationOrDefault("EXCHANGE_RATE_TIMEOUT", 10*time.Second),
			CachePrefix: getEnvOrDefault("EXCHANGE_RATE_CACHE_PREFIX", "offers:rates:"),
		},
		Extract: ExtractConfig{
			Workers:   getIntOrDefault("EXTRACT_WORKERS", 4),
			SitesFile: getEnvOrDefault("SITES_FILE", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Extract.Workers < 1 {
		return fmt.Errorf("EXTRACT_WORKERS must be at least 1")
	}

	if c.Fetch.RateLimitMin > c.Fetch.RateLimitMax {
		return fmt.Errorf("FETCH_RATE_LIMIT_MIN cannot be greater than FETCH_RATE_LIMIT_MAX")
	}

	if c.Fetch.MaxRetries < 1 {
		return fmt.Errorf("FETCH_MAX_RETRIES must be at least 1")
	}

	if c.Cache.Addr != "" && c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when REDIS_ADDR is set")
	}

	if c.Rates.TTL <= 0 {
		return fmt.Errorf("EXCHANGE_RATE_TTL must be positive")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

// HTTPOptions maps the fetch section onto the plain HTTP fetcher.
func (c *Config) HTTPOptions() fetch.HTTPOptions {
	return fetch.HTTPOptions{
		Timeout:        c.Fetch.Timeout,
		MaxRetries:     c.Fetch.MaxRetries,
		RetryDelay:     c.Fetch.RetryDelay,
		MinDelay:       c.Fetch.RateLimitMin,
		MaxDelay:       c.Fetch.RateLimitMax,
		UserAgents:     c.Fetch.UserAgents,
		AcceptLanguage: c.Fetch.AcceptLanguage,
	}
}

// CurrencyOptions maps the rates section onto the currency converter.
func (c *Config) CurrencyOptions() currency.Options {
	return currency.Options{
		APIKey:  c.Rates.APIKey,
		BaseURL: c.Rates.BaseURL,
		TTL:     c.Rates.TTL,
		Timeout: c.Rates.Timeout,
	}
}

// BrowserOptions maps the browser section onto the rendering fetcher.
func (c *Config) BrowserOptions() *fetch.BrowserOptions {
	opts := fetch.DefaultBrowserOptions()
	opts.Headless = c.Browser.Headless
	opts.Timeout = c.Browser.Timeout
	opts.MaxRetries = c.Fetch.MaxRetries
	opts.ViewportWidth = c.Browser.ViewportWidth
	opts.ViewportHeight = c.Browser.ViewportHeight
	opts.AcceptLanguage = c.Fetch.AcceptLanguage
	opts.TimezoneID = c.Browser.TimezoneID
	opts.Locale = c.Browser.Locale
	opts.ProxyServer = c.Browser.Proxy
	opts.Scrolls = c.Browser.Scrolls
	opts.WaitSelector = c.Browser.WaitSelector
	opts.MinDelay = c.Fetch.RateLimitMin
	opts.MaxDelay = c.Fetch.RateLimitMax
	if len(c.Fetch.UserAgents) > 0 {
		opts.UserAgent = c.Fetch.UserAgents[0]
	}
	return opts
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}
