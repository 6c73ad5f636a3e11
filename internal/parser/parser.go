// Package parser turns product listing markup into canonical product
// records. Strategies read candidates out of a parsed document; the cascade
// runs them in order and the builder validates what they find.
package parser

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/offer-extractor/internal/models"
)

// Stage names a step of the extraction cascade.
type Stage string

const (
	StageStructured Stage = "structured"
	StageSelectors  Stage = "selectors"
	StagePattern    Stage = "pattern"
	StageDone       Stage = "done"
	StageBlocked    Stage = "blocked"
)

// Strategy reads raw candidates from a document. Implementations never
// fail; a strategy that finds nothing returns an empty slice.
type Strategy interface {
	Stage() Stage
	Candidates(doc *goquery.Document) []models.Candidate
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc struct {
	Name Stage
	Fn   func(doc *goquery.Document) []models.Candidate
}

func (s StrategyFunc) Stage() Stage { return s.Name }

func (s StrategyFunc) Candidates(doc *goquery.Document) []models.Candidate {
	if s.Fn == nil {
		return nil
	}
	return s.Fn(doc)
}

// Structured, Selectors and Pattern bind the three built-in strategies to
// their configuration.
func Structured() Strategy {
	return StrategyFunc{Name: StageStructured, Fn: ExtractStructured}
}

func Selectors(ladder SelectorLadder) Strategy {
	return StrategyFunc{Name: StageSelectors, Fn: func(doc *goquery.Document) []models.Candidate {
		return ExtractBySelectors(doc, ladder)
	}}
}

func Pattern(cfg PatternConfig) Strategy {
	return StrategyFunc{Name: StagePattern, Fn: func(doc *goquery.Document) []models.Candidate {
		return ExtractByPattern(doc, cfg)
	}}
}
