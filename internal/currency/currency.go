// Package currency converts prices between currencies with rates from
// exchangerate-api.com. Rate tables are cached per base currency; when the
// API cannot be reached an expired table is reused, and without any table
// a built-in set of approximate rates is used.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const DefaultBaseURL = "https://v6.exchangerate-api.com/v6"

var ErrUnknownRate = errors.New("unknown exchange rate")

// fallbackRates are used when neither the API nor a cached table can answer.
var fallbackRates = map[string]map[string]float64{
	"USD": {"EUR": 0.85, "BRL": 5.34, "GBP": 0.74},
	"EUR": {"USD": 1.17, "BRL": 6.27, "GBP": 0.87},
	"BRL": {"USD": 0.19, "EUR": 0.16, "GBP": 0.14},
	"GBP": {"USD": 1.35, "EUR": 1.15, "BRL": 7.21},
}

type Options struct {
	// APIKey enables live rates. Without it only fallback rates are used.
	APIKey  string
	BaseURL string
	TTL     time.Duration
	Timeout time.Duration
}

// SharedCache lets several processes reuse one fetched table. The Redis
// page cache satisfies it.
type SharedCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type table struct {
	rates   map[string]float64
	fetched time.Time
}

type Converter struct {
	opts   Options
	client *http.Client
	shared SharedCache
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	tables map[string]table
}

// NewConverter builds a converter. shared may be nil.
func NewConverter(opts Options, shared SharedCache, logger *slog.Logger) *Converter {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		shared: shared,
		logger: logger.With("component", "currency"),
		now:    time.Now,
		tables: make(map[string]table),
	}
}

// Convert turns a canonical decimal amount in from into to, rounded to
// two decimals.
func (c *Converter) Convert(ctx context.Context, amount, from, to string) (string, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)

	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return "", fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if from == to {
		return strconv.FormatFloat(v, 'f', 2, 64), nil
	}

	rates, err := c.Rates(ctx, from)
	if err != nil {
		return "", err
	}
	rate, ok := rates[to]
	if !ok {
		return "", fmt.Errorf("%w: %s to %s", ErrUnknownRate, from, to)
	}
	return strconv.FormatFloat(v*rate, 'f', 2, 64), nil
}

// Rates returns the conversion table for base: a fresh cached table, then
// the shared cache, then the API, then an expired table, then the
// fallback rates.
func (c *Converter) Rates(ctx context.Context, base string) (map[string]float64, error) {
	base = strings.ToUpper(base)

	c.mu.RLock()
	cached, ok := c.tables[base]
	c.mu.RUnlock()

	if ok && c.now().Sub(cached.fetched) < c.opts.TTL {
		return cached.rates, nil
	}

	if rates, found := c.readShared(ctx, base); found {
		c.store(base, rates)
		return rates, nil
	}

	if c.opts.APIKey != "" {
		rates, err := c.fetch(ctx, base)
		if err == nil {
			c.store(base, rates)
			c.writeShared(ctx, base, rates)
			return rates, nil
		}
		c.logger.Warn("exchange rate request failed", "base", base, "error", err)
	}

	if ok {
		c.logger.Info("using expired exchange rates", "base", base, "age", c.now().Sub(cached.fetched))
		return cached.rates, nil
	}

	if rates, found := fallbackRates[base]; found {
		return rates, nil
	}
	return nil, fmt.Errorf("%w: no rates for %s", ErrUnknownRate, base)
}

type ratesResponse struct {
	Result          string             `json:"result"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func (c *Converter) fetch(ctx context.Context, base string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", strings.TrimRight(c.opts.BaseURL, "/"), c.opts.APIKey, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates api returned status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if body.Result != "success" || len(body.ConversionRates) == 0 {
		return nil, fmt.Errorf("rates api result %q", body.Result)
	}
	return body.ConversionRates, nil
}

func (c *Converter) store(base string, rates map[string]float64) {
	c.mu.Lock()
	c.tables[base] = table{rates: rates, fetched: c.now()}
	c.mu.Unlock()
}

func (c *Converter) readShared(ctx context.Context, base string) (map[string]float64, bool) {
	if c.shared == nil {
		return nil, false
	}

	raw, ok, err := c.shared.Get(ctx, base)
	if err != nil {
		c.logger.Warn("shared rate cache read failed", "base", base, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var rates map[string]float64
	if err := json.Unmarshal([]byte(raw), &rates); err != nil || len(rates) == 0 {
		return nil, false
	}
	return rates, true
}

func (c *Converter) writeShared(ctx context.Context, base string, rates map[string]float64) {
	if c.shared == nil {
		return
	}

	raw, err := json.Marshal(rates)
	if err != nil {
		return
	}
	if err := c.shared.Set(ctx, base, string(raw), c.opts.TTL); err != nil {
		c.logger.Warn("shared rate cache write failed", "base", base, "error", err)
	}
}
