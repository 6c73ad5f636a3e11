package parser

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/offer-extractor/internal/models"
)

// Outcome is the result of one cascade run. Stage is the strategy that
// produced the products, or StageDone when none did.
type Outcome struct {
	Stage    Stage
	Products []models.Product
}

// RunCascade tries strategies in order and stops at the first one whose
// candidates finalize into at least one valid product.
func RunCascade(doc *goquery.Document, strategies []Strategy, d Defaults) Outcome {
	for _, s := range strategies {
		products := Finalize(s.Candidates(doc), d)
		if len(products) > 0 {
			return Outcome{Stage: s.Stage(), Products: products}
		}
	}
	return Outcome{Stage: StageDone, Products: []models.Product{}}
}
