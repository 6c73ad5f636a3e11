package models

import "sort"

// CountryResult is a search over every site of one country: the per-site
// results in registry order plus all their offers ranked by price.
type CountryResult struct {
	Country Country   `json:"country"`
	Results []Result  `json:"results"`
	Offers  []Product `json:"offers"`
}

// RankOffers merges the products of results, cheapest effective price
// first, and keeps at most limit of them. Equal prices keep site order. A
// limit of zero or less keeps every offer. The result is never nil.
func RankOffers(results []Result, limit int) []Product {
	offers := make([]Product, 0)
	for _, r := range results {
		offers = append(offers, r.Products...)
	}

	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].EffectivePrice() < offers[j].EffectivePrice()
	})

	if limit > 0 && len(offers) > limit {
		offers = offers[:limit]
	}
	return offers
}
