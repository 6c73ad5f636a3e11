package parser

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/offer-extractor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeDeduplicatesByURL(t *testing.T) {
	candidates := []models.Candidate{
		models.NewCandidate(models.FieldName, "First", models.FieldPrice, "10,00", models.FieldURL, "/p/1"),
		models.NewCandidate(models.FieldName, "Incomplete", models.FieldPrice, "5,00"),
		models.NewCandidate(models.FieldName, "Second", models.FieldPrice, "20,00", models.FieldURL, "/p/2"),
		models.NewCandidate(models.FieldName, "Duplicate", models.FieldPrice, "30,00", models.FieldURL, "https://achar.promo/p/1"),
	}

	products := Finalize(candidates, brDefaults)

	require.Len(t, products, 2)
	assert.Equal(t, "First", products[0].Name)
	assert.Equal(t, "10.00", products[0].Price)
	assert.Equal(t, "Second", products[1].Name)
	for _, p := range products {
		assert.True(t, p.IsValid(), p.Validate())
	}
}

func TestFinalizeEmpty(t *testing.T) {
	products := Finalize(nil, brDefaults)

	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestRunCascade(t *testing.T) {
	doc := newDoc(t, `<p></p>`)

	stub := func(stage Stage, called *int, out ...models.Candidate) Strategy {
		return StrategyFunc{Name: stage, Fn: func(*goquery.Document) []models.Candidate {
			*called++
			return out
		}}
	}
	valid := models.NewCandidate(models.FieldName, "Fone", models.FieldPrice, "10", models.FieldURL, "/p/1")
	invalid := models.NewCandidate(models.FieldName, "Fone")

	t.Run("Advances past strategies without valid products", func(t *testing.T) {
		var structured, selectors, pattern int
		out := RunCascade(doc, []Strategy{
			stub(StageStructured, &structured, invalid),
			stub(StageSelectors, &selectors, valid),
			stub(StagePattern, &pattern, valid),
		}, brDefaults)

		assert.Equal(t, StageSelectors, out.Stage)
		assert.Len(t, out.Products, 1)
		assert.Equal(t, 1, structured)
		assert.Equal(t, 1, selectors)
		assert.Equal(t, 0, pattern)
	})

	t.Run("Stops at the first strategy", func(t *testing.T) {
		var structured, selectors int
		out := RunCascade(doc, []Strategy{
			stub(StageStructured, &structured, valid),
			stub(StageSelectors, &selectors, valid),
		}, brDefaults)

		assert.Equal(t, StageStructured, out.Stage)
		assert.Equal(t, 0, selectors)
	})

	t.Run("Ends in done with an empty list", func(t *testing.T) {
		var n int
		out := RunCascade(doc, []Strategy{stub(StageStructured, &n), stub(StagePattern, &n)}, brDefaults)

		assert.Equal(t, StageDone, out.Stage)
		assert.NotNil(t, out.Products)
		assert.Empty(t, out.Products)
		assert.Equal(t, 2, n)
	})
}
