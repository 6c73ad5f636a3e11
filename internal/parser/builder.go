package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/maltedev/offer-extractor/internal/models"
	"golang.org/x/text/unicode/norm"
)

// Defaults carries the per-site values a record falls back to.
type Defaults struct {
	BaseURL     string
	Currency    string
	Store       string
	StoreSuffix string
	Locale      Locale
}

// Synonym lists, most preferred first. Title-like keys win over
// description-like keys.
var (
	NameFields     = []string{models.FieldName, "title", "productName", "displayName", "headline", "description"}
	PriceFields    = []string{models.FieldPrice, "cost", "valor", "currentPrice", "salePrice", "lowPrice", "amount", "priceValue"}
	URLFields      = []string{models.FieldURL, "link", "productUrl", "href", "permalink"}
	StoreFields    = []string{models.FieldStore, "shop", "merchant", "seller", "storeName", "vendor"}
	CurrencyFields = []string{models.FieldCurrency, "priceCurrency", "currencyId", "currencyCode"}
)

var (
	whitespace = regexp.MustCompile(`\s+`)

	boilerplateSuffixes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*[-–|]\s*frete\s+gr[aá]tis.*$`),
		regexp.MustCompile(`(?i)\s*frete\s+gr[aá]tis\s*$`),
		regexp.MustCompile(`(?i)\s*[-–|]\s*portes\s+gr[aá]tis.*$`),
		regexp.MustCompile(`(?i)\s*[-–|]\s*env[ií]o\s+gratis.*$`),
		regexp.MustCompile(`(?i)\s*[-–|]\s*free\s+shipping.*$`),
		regexp.MustCompile(`(?i)\s*\|\s*mercado\s*livre.*$`),
		regexp.MustCompile(`(?i)\s*\|\s*(magazine\s+luiza|magalu|kuantokusta|idealo|kelkoo)\b.*$`),
	}
)

// CleanName collapses whitespace and strips shipping banners and
// marketplace suffixes appended to product titles.
func CleanName(name string) string {
	name = norm.NFC.String(name)
	name = strings.TrimSpace(whitespace.ReplaceAllString(name, " "))
	for _, re := range boilerplateSuffixes {
		name = re.ReplaceAllString(name, "")
	}
	return strings.TrimSpace(name)
}

// Build turns a candidate into a product. It returns false when name, price
// or url cannot be resolved; that is filtering, not an error.
func Build(c models.Candidate, d Defaults) (models.Product, bool) {
	name := CleanName(c.First(NameFields...))
	if name == "" {
		return models.Product{}, false
	}

	price, ok := readPrice(c, d.Locale)
	if !ok {
		return models.Product{}, false
	}

	link, ok := ResolveURL(d.BaseURL, c.First(URLFields...))
	if !ok {
		return models.Product{}, false
	}

	currency := DetectCurrency(c.First(CurrencyFields...))
	if currency == "" {
		currency = d.Currency
	}
	if currency == "" {
		currency = "USD"
	}

	return models.Product{
		Name:     name,
		Price:    price,
		Currency: currency,
		Store:    storeLabel(CleanName(c.First(StoreFields...)), d),
		URL:      link,
	}, true
}

// readPrice prefers a canonical decimal over locale parsing of the raw
// price text.
func readPrice(c models.Candidate, locale Locale) (string, bool) {
	if d := c.First(models.FieldDecimal); d != "" {
		if v, err := strconv.ParseFloat(d, 64); err == nil && v >= 0 {
			return d, true
		}
	}
	return NormalizePrice(c.First(PriceFields...), locale)
}

func storeLabel(store string, d Defaults) string {
	if store == "" {
		store = d.Store
	}
	if store == "" {
		store = "Unknown Store"
	}
	if d.StoreSuffix != "" && !strings.HasSuffix(store, d.StoreSuffix) {
		store += d.StoreSuffix
	}
	return store
}

// ResolveURL makes ref absolute against base. Absolute http(s) references
// pass through unchanged; empty, fragment-only and non-http references are
// rejected.
func ResolveURL(base, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", false
		}
		return ref, true
	}

	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return "", false
	}
	return b.ResolveReference(u).String(), true
}
