package parser

import "github.com/maltedev/offer-extractor/internal/models"

// Finalize builds every candidate, drops the ones that fail to build and
// keeps the first record per url in encounter order. The result is never nil.
func Finalize(candidates []models.Candidate, d Defaults) []models.Product {
	products := make([]models.Product, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		p, ok := Build(c, d)
		if !ok {
			continue
		}
		if _, dup := seen[p.URL]; dup {
			continue
		}
		seen[p.URL] = struct{}{}
		products = append(products, p)
	}

	return products
}
