package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/offer-extractor/internal/models"
)

// ExtractPreview summarizes a single product page. Meta tags (Open Graph,
// Twitter, product:price) win; embedded structured data and then the page
// text fill what they leave out. Country and default currency follow the
// page's host.
func ExtractPreview(doc *goquery.Document, pageURL *url.URL) models.Preview {
	country := models.CountryForHost(pageURL.Hostname())
	locale := LocaleFor(country)
	base := pageURL.String()

	product := models.Candidate{}
	if candidates := ExtractStructured(doc); len(candidates) > 0 {
		product = candidates[0]
	}

	p := models.Preview{URL: base, Country: country}

	p.Title = CleanName(firstNonEmpty(
		metaContent(doc, "og:title", "twitter:title"),
		doc.Find("title").First().Text(),
		product.First(NameFields...),
	))
	if p.Title == "" {
		p.Title = pageURL.Hostname()
	}

	p.Description = metaContent(doc, "og:description", "twitter:description", "description")

	if img, ok := ResolveURL(base, metaContent(doc, "og:image", "twitter:image")); ok {
		p.ImageURL = img
	}

	price, marked := previewPrice(doc, product, locale)
	p.Price = price
	p.Currency = firstNonEmpty(
		DetectCurrency(metaContent(doc, "product:price:currency", "og:price:currency")),
		DetectCurrency(itemprop(doc, "priceCurrency")),
		DetectCurrency(product.First(CurrencyFields...)),
		marked,
		country.Currency(),
	)

	return p
}

// LocaleFor is the number convention shops of country usually print.
func LocaleFor(country models.Country) Locale {
	switch country {
	case models.CountryBR:
		return LocaleBR
	case models.CountryPT, models.CountryES, models.CountryDE:
		return LocaleEU
	default:
		return LocaleGeneric
	}
}

// previewPrice returns the page price and, when it came from the page text,
// the currency marking it.
func previewPrice(doc *goquery.Document, product models.Candidate, locale Locale) (string, string) {
	for _, raw := range []string{metaContent(doc, "product:price:amount", "og:price:amount"), itemprop(doc, "price")} {
		if raw == "" {
			continue
		}
		if _, decimal := priceValue(raw); decimal != "" {
			return decimal, ""
		}
		if price, ok := NormalizePrice(raw, locale); ok {
			return price, ""
		}
	}

	if price, ok := readPrice(product, locale); ok {
		return price, ""
	}

	if found, code, ok := FindMarkedPrice(visibleText(doc.Find("body")), allCurrencies); ok {
		if price, ok := NormalizePrice(found, locale); ok {
			return price, code
		}
	}
	return "", ""
}

// metaContent returns the content of the first meta tag whose property or
// name is one of names, in order.
func metaContent(doc *goquery.Document, names ...string) string {
	for _, n := range names {
		sel := doc.Find(`meta[property="` + n + `"], meta[name="` + n + `"]`).First()
		if v := strings.TrimSpace(sel.AttrOr("content", "")); v != "" {
			return v
		}
	}
	return ""
}

func itemprop(doc *goquery.Document, prop string) string {
	sel := doc.Find(`[itemprop="` + prop + `"]`).First()
	if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(sel.Text())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
