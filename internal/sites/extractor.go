package sites

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/offer-extractor/internal/models"
	"github.com/maltedev/offer-extractor/internal/parser"
)

// Error codes carried by failed results.
const (
	CodeParseFailed   = "parse_failed"
	CodeInternalError = "internal_error"
	CodeUnknownSite   = "unknown_site"
)

// Extractor runs one site profile through the shared extraction cascade.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	profile    Profile
	strategies []parser.Strategy
	logger     *slog.Logger
}

func NewExtractor(profile Profile, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		profile:    profile,
		strategies: profile.strategies(),
		logger:     logger.With("component", "extractor", "site", profile.ID),
	}
}

func (e *Extractor) Profile() Profile {
	return e.profile
}

// Extract returns the products found in html. It never fails: a page that
// cannot be processed yields an empty result carrying an error descriptor.
func (e *Extractor) Extract(html string) (result models.Result) {
	source := e.profile.SourceName()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extraction panicked", "panic", r)
			result = models.Failed(source, CodeInternalError, fmt.Sprint(r))
		}
	}()

	outcome, err := e.run(html)
	if err != nil {
		e.logger.Warn("failed to parse document", "error", err)
		return models.Failed(source, CodeParseFailed, err.Error())
	}

	e.logger.Info("extraction finished",
		"stage", outcome.Stage,
		"products", len(outcome.Products),
	)
	return models.NewResult(source, outcome.Products)
}

func (e *Extractor) run(html string) (parser.Outcome, error) {
	if e.profile.blocked(html) {
		return parser.Outcome{Stage: parser.StageBlocked, Products: e.degraded()}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return parser.Outcome{}, fmt.Errorf("parse html: %w", err)
	}

	return parser.RunCascade(doc, e.strategies, e.profile.Defaults()), nil
}

// degraded is the response for bot-blocked pages: the profile's labelled
// placeholder, or nothing.
func (e *Extractor) degraded() []models.Product {
	p := e.profile.Blocked
	if p == nil {
		return []models.Product{}
	}

	link := p.URL
	if link == "" {
		link = e.profile.BaseURL
	}
	return parser.Finalize([]models.Candidate{models.NewCandidate(
		models.FieldName, p.Name,
		models.FieldPrice, p.Price,
		models.FieldURL, link,
	)}, e.profile.Defaults())
}
