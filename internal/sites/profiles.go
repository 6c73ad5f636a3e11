package sites

import (
	"github.com/maltedev/offer-extractor/internal/models"
	"github.com/maltedev/offer-extractor/internal/parser"
)

// Site identifiers.
const (
	AcharPromo   = "acharpromo"
	Magalu       = "magalu"
	MercadoLivre = "mercadolivre"
	KuantoKusta  = "kuantokusta"
	Idealo       = "idealo"
	Kelkoo       = "kelkoo"
)

var (
	text = parser.Text
	attr = parser.Attr
)

// Builtin returns the profiles of every supported site. Each call returns
// fresh values, so callers may modify them.
func Builtin() []Profile {
	return []Profile{
		acharPromoProfile(),
		magaluProfile(),
		mercadoLivreProfile(),
		kuantoKustaProfile(),
		idealoProfile(),
		kelkooProfile(),
	}
}

func acharPromoProfile() Profile {
	return Profile{
		ID:         AcharPromo,
		Source:     "achar.promo",
		Country:    models.CountryBR,
		BaseURL:    "https://achar.promo",
		Currency:   "BRL",
		Store:      "AcharPromo",
		Locale:     parser.LocaleBR,
		SearchURL:  "https://achar.promo/search?q={query}",
		Structured: true,
		Selectors: parser.SelectorLadder{
			Containers: []string{
				`div[class*="product"]`,
				`div[class*="item"]`,
				`article[class*="product"]`,
				`div[class*="card"]`,
				`li[class*="product"]`,
				`div[data-testid*="product"]`,
				`div[data-cy*="product"]`,
			},
			Name: []parser.Probe{
				text("h3"), text("h4"), text("h5"),
				text(`[class*="title"]`), text(`[class*="name"]`),
				attr("a[title]", "title"), attr("span[title]", "title"),
			},
			Price: []parser.Probe{
				text(`[class*="price"]`), text(`[class*="valor"]`), text(`[class*="cost"]`),
				attr("[data-price]", "data-price"),
			},
			Store: []parser.Probe{
				text(`[class*="store"]`), text(`[class*="shop"]`), text(`[class*="merchant"]`),
				text(`[class*="seller"]`), text(`[class*="vendor"]`),
			},
			URL:        []parser.Probe{attr("a[href]", "href")},
			Currencies: []string{"BRL"},
		},
		Pattern: parser.PatternConfig{
			Currencies:      []string{"BRL"},
			PlaceholderName: "Produto encontrado",
		},
	}
}

func magaluProfile() Profile {
	return Profile{
		ID:           Magalu,
		Source:       "magazineluiza.com.br",
		Country:      models.CountryBR,
		BaseURL:      "https://www.magazineluiza.com.br",
		Currency:     "BRL",
		Store:        "Magazine Luiza",
		Locale:       parser.LocaleBR,
		SearchURL:    "https://www.magazineluiza.com.br/busca/{path}/",
		Browser:      true,
		WaitSelector: `[data-testid*="product-card"]`,
		Structured:   true,
		Selectors: parser.SelectorLadder{
			Containers: []string{
				`li[data-testid*="product-card"]`,
				`div[data-testid*="product-card"]`,
				`article[data-testid*="product"]`,
				`[data-testid*="product"]`,
				`[class*="ProductCard"]`,
				`[class*="product-card"]`,
			},
			Name: []parser.Probe{
				{Selector: `[data-testid*="product-title"]`, MinLen: 6},
				{Selector: `[data-testid*="product-name"]`, MinLen: 6},
				{Selector: "h2[data-testid]", MinLen: 6},
				{Selector: "h3[data-testid]", MinLen: 6},
				{Selector: "a[title]", Attr: "title", MinLen: 6},
				{Selector: "img[alt]", Attr: "alt", MinLen: 6},
				{Selector: `[class*="title"]`, MinLen: 6},
				{Selector: `[class*="name"]`, MinLen: 6},
			},
			Price: []parser.Probe{
				text(`[data-testid*="price-value"]`),
				text(`[data-testid*="price"]`),
				text(`[data-testid*="value"]`),
				text(`span[class*="price"]`),
				text(`div[class*="price"]`),
				text(`p[class*="price"]`),
				text(`[class*="Price"]`),
			},
			URL:        []parser.Probe{attr("a[href]", "href"), {Selector: "a[href]", Attr: "href", Scope: parser.ScopeAncestor}},
			Currencies: []string{"BRL"},
		},
	}
}

func mercadoLivreProfile() Profile {
	return Profile{
		ID:         MercadoLivre,
		Source:     "mercadolivre.com.br",
		Country:    models.CountryBR,
		BaseURL:    "https://www.mercadolivre.com.br",
		Currency:   "BRL",
		Store:      "Mercado Livre",
		Locale:     parser.LocaleBR,
		SearchURL:  "https://lista.mercadolivre.com.br/{path}",
		Structured: true,
		Selectors: parser.SelectorLadder{
			Containers: []string{
				"div.ui-search-result",
				"li.ui-search-layout__item",
				"div.poly-card",
				`article[data-testid="result"]`,
				`div[class*="ui-search-result"]`,
			},
			Name: []parser.Probe{
				{Selector: "h2.ui-search-item__title", MinLen: 6},
				{Selector: "h2.poly-component__title", MinLen: 6},
				{Selector: "a.poly-component__title", MinLen: 6},
				{Selector: "a.ui-search-link", Attr: "title", MinLen: 6},
				{Selector: `h2[class*="title"]`, MinLen: 6},
				{Selector: `a[class*="item__title"]`, MinLen: 6},
			},
			Price: []parser.Probe{
				text("div.ui-search-price__second-line span.andes-money-amount__fraction"),
				text("div.poly-price__current span.andes-money-amount__fraction"),
				text("span.andes-money-amount__fraction"),
				text("span.price-tag-fraction"),
				text(`span[class*="price-tag"]`),
				text(`span[class*="money-amount"]`),
			},
			Store: []parser.Probe{
				text("span.poly-component__seller"),
				text(`p[class*="seller"]`),
			},
			Currency:   []parser.Probe{text("span.andes-money-amount__currency-symbol")},
			URL:        []parser.Probe{attr("a.poly-component__title", "href"), attr("a[href]", "href")},
			Currencies: []string{"BRL"},
		},
	}
}

func kuantoKustaProfile() Profile {
	return Profile{
		ID:         KuantoKusta,
		Source:     "kuantokusta.pt",
		Country:    models.CountryPT,
		BaseURL:    "https://www.kuantokusta.pt",
		Currency:   "EUR",
		Store:      "KuantoKusta - PT",
		Locale:     parser.LocaleEU,
		SearchURL:  "https://www.kuantokusta.pt/search?q={query}",
		Structured: true,
		Selectors: parser.SelectorLadder{
			Containers: []string{
				`div[data-test-id="offer-card"]`,
				`div[data-test-id="product-card"]`,
				`div[class*="ProductCard"]`,
			},
			Name: []parser.Probe{
				text(`h3[data-test-id="offer-product-name"]`),
				text(`[data-test-id="product-card-name"]`),
				text("h3"),
				text("h2"),
			},
			Price: []parser.Probe{
				text(`span[data-test-id="offer-total-price"]`),
				text(`span[data-test-id="offer-price"]`),
				text(`[data-test-id*="price"]`),
				text(`[class*="price"]`),
			},
			Store: []parser.Probe{
				{Selector: "img[alt]", Attr: "alt", MinLen: 2},
				{Selector: "[data-store-name]", Attr: "data-store-name", Scope: parser.ScopeSelf},
				attr("[data-store-name]", "data-store-name"),
			},
			URL: []parser.Probe{
				{Selector: "a[href]", Attr: "href", Scope: parser.ScopeAncestor},
				attr("a[href]", "href"),
			},
			Currencies: []string{"EUR"},
		},
		Pattern: parser.PatternConfig{
			Currencies:      []string{"EUR"},
			PlaceholderName: "Produto encontrado",
		},
	}
}

func idealoProfile() Profile {
	return Profile{
		ID:         Idealo,
		Source:     "idealo.es",
		Country:    models.CountryES,
		BaseURL:    "https://www.idealo.es",
		Currency:   "EUR",
		Store:      "Idealo",
		Locale:     parser.LocaleEU,
		SearchURL:  "https://www.idealo.es/resultados.html?q={query}",
		Structured: true,
		Selectors: parser.SelectorLadder{
			Containers: []string{
				"li.productOffers-listItem",
				`div[class*="sr-resultItem"]`,
				`div[class*="offerList-item"]`,
			},
			Name: []parser.Probe{
				text("span.productOffers-listItemTitleInner"),
				text(`[class*="resultItemTitle"]`),
				text(`[class*="title"]`),
			},
			Price: []parser.Probe{
				text("a.productOffers-listItemOfferPrice"),
				text(`[class*="price"]`),
			},
			Store: []parser.Probe{
				text("span.productOffers-listItemShop"),
				attr("img.productOffers-listItemShopLogo", "alt"),
				text(`[class*="shop"]`),
			},
			URL: []parser.Probe{
				attr("a.productOffers-listItemOfferPrice", "href"),
				attr("a.productOffers-listItemTitle", "href"),
				attr("a[href]", "href"),
			},
			Currencies: []string{"EUR"},
		},
		Pattern: parser.PatternConfig{
			Currencies:      []string{"EUR"},
			PlaceholderName: "Producto encontrado",
		},
	}
}

func kelkooProfile() Profile {
	return Profile{
		ID:           Kelkoo,
		Source:       "kelkoo.es",
		Country:      models.CountryES,
		BaseURL:      "https://www.kelkoo.es",
		Currency:     "EUR",
		Store:        "Kelkoo Partner Store",
		StoreSuffix:  " (Available in Spain)",
		Locale:       parser.LocaleEU,
		SearchURL:    "https://www.kelkoo.es/buscar?consulta={query}",
		Browser:      true,
		WaitSelector: `div[class*="product"]`,
		Structured:   true,
		Selectors: parser.SelectorLadder{
			Containers: []string{
				`div[class*="product"]`,
				`div[class*="item"]`,
				`div[class*="card"]`,
				`div[class*="offer"]`,
				`li[class*="product"]`,
				`article[class*="product"]`,
			},
			Name: []parser.Probe{
				{Selector: "h3", MinLen: 6},
				{Selector: "h4", MinLen: 6},
				{Selector: "h2", MinLen: 6},
				{Selector: "h1", MinLen: 6},
				{Selector: `[class*="title"]`, MinLen: 6},
				{Selector: `[class*="name"]`, MinLen: 6},
				{Selector: "a[title]", Attr: "title", MinLen: 6},
				{Selector: "img[alt]", Attr: "alt", MinLen: 6},
			},
			Price: []parser.Probe{
				text(`[class*="price"]`), text(`[class*="cost"]`), text(`[class*="amount"]`),
			},
			Store: []parser.Probe{
				{Selector: `[class*="shop"]`, MinLen: 3},
				{Selector: `[class*="store"]`, MinLen: 3},
				{Selector: `[class*="merchant"]`, MinLen: 3},
				{Selector: `[class*="vendor"]`, MinLen: 3},
				{Selector: `img[alt*="tienda"]`, Attr: "alt", MinLen: 3},
				{Selector: `img[alt*="shop"]`, Attr: "alt", MinLen: 3},
			},
			URL:        []parser.Probe{attr("a[href]", "href")},
			Currencies: []string{"EUR", "USD", "GBP"},
		},
		BlockMarkers: []string{"Please enable JS", "captcha"},
		Blocked: &Placeholder{
			Name:  "Kelkoo protected page - no listing available",
			Price: "0",
		},
	}
}
