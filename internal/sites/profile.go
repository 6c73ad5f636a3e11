package sites

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/maltedev/offer-extractor/internal/models"
	"github.com/maltedev/offer-extractor/internal/parser"
)

// Profile describes one site: where it lives, how it formats prices and
// which ladders the shared cascade should try on its pages.
type Profile struct {
	ID          string         `yaml:"id"`
	Source      string         `yaml:"source"`
	Country     models.Country `yaml:"country"`
	BaseURL     string         `yaml:"base_url"`
	Currency    string         `yaml:"currency"`
	Store       string         `yaml:"store"`
	StoreSuffix string         `yaml:"store_suffix,omitempty"`
	Locale      parser.Locale  `yaml:"locale"`

	// SearchURL is a template; {query} is query-escaped and {path} is
	// path-escaped.
	SearchURL string `yaml:"search_url"`
	// Browser marks sites that render listings client side.
	Browser bool `yaml:"browser,omitempty"`
	// WaitSelector is awaited by the renderer before the page is read.
	WaitSelector string `yaml:"wait_selector,omitempty"`

	Structured bool                  `yaml:"structured"`
	Selectors  parser.SelectorLadder `yaml:"selectors"`
	Pattern    parser.PatternConfig  `yaml:"pattern,omitempty"`

	// BlockMarkers are matched case-insensitively against the raw page.
	BlockMarkers []string `yaml:"block_markers,omitempty"`
	// Blocked is returned instead of an empty list when a block marker
	// is found.
	Blocked *Placeholder `yaml:"blocked,omitempty"`
}

// Placeholder is the labelled record a profile may emit for blocked pages.
type Placeholder struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
	URL   string `yaml:"url,omitempty"`
}

// Validate checks the fields every extractor relies on.
func (p Profile) Validate() error {
	var errs []error

	if p.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if u, err := url.Parse(p.BaseURL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("base_url %q must be an absolute URL", p.BaseURL))
	}
	if len(p.Currency) != 3 {
		errs = append(errs, fmt.Errorf("currency %q must be a 3-letter code", p.Currency))
	}
	if p.SearchURL != "" && !strings.Contains(p.SearchURL, "{query}") && !strings.Contains(p.SearchURL, "{path}") {
		errs = append(errs, errors.New("search_url must contain {query} or {path}"))
	}
	if !p.Structured && len(p.Selectors.Containers) == 0 && !p.Pattern.Enabled() {
		errs = append(errs, errors.New("at least one strategy must be configured"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("profile %q: %w", p.ID, err)
	}
	return nil
}

// Defaults returns the values records fall back to.
func (p Profile) Defaults() parser.Defaults {
	return parser.Defaults{
		BaseURL:     p.BaseURL,
		Currency:    p.Currency,
		Store:       p.Store,
		StoreSuffix: p.StoreSuffix,
		Locale:      p.Locale,
	}
}

// SourceName is the label results carry.
func (p Profile) SourceName() string {
	if p.Source != "" {
		return p.Source
	}
	return p.ID
}

// BuildSearchURL fills the profile's search template with query.
func (p Profile) BuildSearchURL(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("query is required")
	}
	if p.SearchURL == "" {
		return "", fmt.Errorf("site %s has no search url", p.ID)
	}

	r := strings.NewReplacer(
		"{query}", url.QueryEscape(query),
		"{path}", url.PathEscape(strings.Join(strings.Fields(query), "-")),
	)
	return r.Replace(p.SearchURL), nil
}

// blocked reports whether html carries one of the profile's block markers.
func (p Profile) blocked(html string) bool {
	if len(p.BlockMarkers) == 0 {
		return false
	}
	lower := strings.ToLower(html)
	for _, m := range p.BlockMarkers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// strategies assembles the cascade for this profile in priority order.
func (p Profile) strategies() []parser.Strategy {
	var out []parser.Strategy

	if p.Structured {
		out = append(out, parser.Structured())
	}
	if len(p.Selectors.Containers) > 0 {
		out = append(out, parser.Selectors(p.Selectors))
	}
	if p.Pattern.Enabled() {
		cfg := p.Pattern
		if cfg.Store == "" {
			cfg.Store = p.Store
		}
		if cfg.URL == "" {
			cfg.URL = p.BaseURL
		}
		out = append(out, parser.Pattern(cfg))
	}

	return out
}
