// Package scraper runs live searches: it builds a site's search URL,
// fetches the page and hands the markup to the site's extractor.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/offer-extractor/internal/currency"
	"github.com/maltedev/offer-extractor/internal/fetch"
	"github.com/maltedev/offer-extractor/internal/models"
	"github.com/maltedev/offer-extractor/internal/parser"
	"github.com/maltedev/offer-extractor/internal/sites"
	"golang.org/x/sync/errgroup"
)

// Result error codes for searches that never reached extraction.
const (
	CodeFetchFailed = "fetch_failed"
	CodeBlocked     = "blocked"
	CodeBadQuery    = "bad_query"
	CodeBadURL      = "bad_url"
)

var (
	ErrInvalidQuery = errors.New("invalid query")
	ErrInvalidURL   = errors.New("invalid url")
)

// Converter turns a canonical decimal amount into another currency.
type Converter interface {
	Convert(ctx context.Context, amount, from, to string) (string, error)
}

// SearchOptions tunes a country-wide search.
type SearchOptions struct {
	Workers int
	// Limit caps the ranked offers; zero keeps them all.
	Limit int
	// Currency, when set, adds a converted price to every offer listed in
	// another currency.
	Currency string
}

type Service struct {
	registry  *sites.Registry
	fetcher   fetch.Fetcher
	renderer  fetch.Fetcher
	converter Converter
	logger    *slog.Logger
}

// NewService wires a registry to its fetchers. renderer may be nil; pages
// of sites flagged for browser rendering then go through fetcher too.
// Prices are converted with built-in rates until SetConverter is called.
func NewService(registry *sites.Registry, fetcher, renderer fetch.Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry:  registry,
		fetcher:   fetcher,
		renderer:  renderer,
		converter: currency.NewConverter(currency.Options{}, nil, logger),
		logger:    logger.With("component", "scraper"),
	}
}

func (s *Service) SetConverter(c Converter) {
	s.converter = c
}

func (s *Service) Registry() *sites.Registry {
	return s.registry
}

// Extract runs the site's extractor over markup that is already at hand.
func (s *Service) Extract(site, html string) (models.Result, error) {
	e, err := s.registry.Get(site)
	if err != nil {
		return models.Result{}, err
	}
	return e.Extract(html), nil
}

// Search fetches the site's results page for query and extracts it.
func (s *Service) Search(ctx context.Context, site, query string) (models.Result, error) {
	e, err := s.registry.Get(site)
	if err != nil {
		return models.Result{}, err
	}
	profile := e.Profile()

	searchURL, err := profile.BuildSearchURL(query)
	if err != nil {
		return models.Result{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	s.logger.Info("searching", "site", profile.ID, "query", query, "url", searchURL)

	page, err := s.fetcherFor(profile).Fetch(fetch.WithWaitSelector(ctx, profile.WaitSelector), searchURL)
	if err != nil {
		return models.Result{}, fmt.Errorf("fetch %s: %w", searchURL, err)
	}

	result := e.Extract(page.HTML)
	s.logger.Info("search finished", "site", profile.ID, "products", result.Total)
	return result, nil
}

// SearchCountry searches every site serving country concurrently. A site
// that fails contributes a failed result instead of aborting the others.
// The offers of all sites are ranked cheapest first, by converted price
// when opts.Currency is set.
func (s *Service) SearchCountry(ctx context.Context, country models.Country, query string, opts SearchOptions) (models.CountryResult, error) {
	extractors := s.registry.ForCountry(country)
	if len(extractors) == 0 {
		return models.CountryResult{}, fmt.Errorf("%w: no sites for country %s", sites.ErrUnknownSite, country)
	}

	target, err := targetCurrency(opts.Currency)
	if err != nil {
		return models.CountryResult{}, err
	}

	results := make([]models.Result, len(extractors))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	for i, e := range extractors {
		profile := e.Profile()
		g.Go(func() error {
			result, err := s.Search(gctx, profile.ID, query)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Warn("site search failed", "site", profile.ID, "error", err)
				result = models.Failed(profile.SourceName(), ErrorCode(err), err.Error())
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return models.CountryResult{}, err
	}

	if target != "" {
		for i := range results {
			s.Convert(ctx, results[i].Products, target)
		}
	}

	return models.CountryResult{
		Country: country,
		Results: results,
		Offers:  models.RankOffers(results, opts.Limit),
	}, nil
}

// Convert sets the converted price of every product listed in a currency
// other than target. Products whose price cannot be converted are left as
// they are.
func (s *Service) Convert(ctx context.Context, products []models.Product, target string) {
	for i := range products {
		p := &products[i]
		if strings.EqualFold(p.Currency, target) {
			continue
		}
		price, err := s.converter.Convert(ctx, p.Price, p.Currency, target)
		if err != nil {
			s.logger.Debug("price not converted", "from", p.Currency, "to", target, "error", err)
			continue
		}
		p.Converted = &models.Money{Price: price, Currency: strings.ToUpper(target)}
	}
}

func targetCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code != "" && !parser.IsCurrencyCode(code) {
		return "", fmt.Errorf("%w: currency %q", ErrInvalidQuery, code)
	}
	return code, nil
}

// Preview fetches one product page and summarizes it.
func (s *Service) Preview(ctx context.Context, rawURL string) (models.Preview, error) {
	u, err := previewURL(rawURL)
	if err != nil {
		return models.Preview{}, err
	}

	page, err := s.fetcher.Fetch(ctx, u.String())
	if err != nil {
		return models.Preview{}, fmt.Errorf("fetch %s: %w", u, err)
	}

	return s.PreviewHTML(u.String(), page.HTML)
}

// PreviewHTML summarizes product page markup that is already at hand.
func (s *Service) PreviewHTML(rawURL, html string) (models.Preview, error) {
	u, err := previewURL(rawURL)
	if err != nil {
		return models.Preview{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Preview{}, fmt.Errorf("parse page: %w", err)
	}

	preview := parser.ExtractPreview(doc, u)
	s.logger.Info("previewed page", "url", preview.URL, "country", preview.Country, "price", preview.Price)
	return preview, nil
}

func previewURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

// ErrorCode maps a search error to the code carried by failed results.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, fetch.ErrBlocked):
		return CodeBlocked
	case errors.Is(err, ErrInvalidQuery):
		return CodeBadQuery
	case errors.Is(err, ErrInvalidURL):
		return CodeBadURL
	default:
		return CodeFetchFailed
	}
}

func (s *Service) fetcherFor(p sites.Profile) fetch.Fetcher {
	if p.Browser && s.renderer != nil {
		return s.renderer
	}
	return s.fetcher
}
