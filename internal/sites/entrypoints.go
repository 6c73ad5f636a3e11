package sites

import (
	"log/slog"

	"github.com/maltedev/offer-extractor/internal/models"
)

var builtinExtractors = func() map[string]*Extractor {
	m := make(map[string]*Extractor)
	for _, p := range Builtin() {
		m[p.ID] = NewExtractor(p, slog.Default())
	}
	return m
}()

func extractWith(id, html string) []models.Product {
	return builtinExtractors[id].Extract(html).Products
}

// ExtractAcharPromoProducts extracts products from an achar.promo listing.
func ExtractAcharPromoProducts(html string) []models.Product {
	return extractWith(AcharPromo, html)
}

// ExtractMagaluProducts extracts products from a Magazine Luiza listing.
func ExtractMagaluProducts(html string) []models.Product {
	return extractWith(Magalu, html)
}

// ExtractMercadoLivreProducts extracts products from a Mercado Livre listing.
func ExtractMercadoLivreProducts(html string) []models.Product {
	return extractWith(MercadoLivre, html)
}

// ExtractKuantoKustaProducts extracts offers from a KuantoKusta product page.
func ExtractKuantoKustaProducts(html string) []models.Product {
	return extractWith(KuantoKusta, html)
}

// ExtractIdealoProducts extracts offers from an idealo.es comparison page.
func ExtractIdealoProducts(html string) []models.Product {
	return extractWith(Idealo, html)
}

// ExtractKelkooProducts extracts offers from a kelkoo.es results page.
func ExtractKelkooProducts(html string) []models.Product {
	return extractWith(Kelkoo, html)
}
