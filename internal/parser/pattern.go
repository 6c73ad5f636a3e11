package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/offer-extractor/internal/models"
	"golang.org/x/net/html"
)

const (
	amount    = `(` + amountBody + `)`
	wordStart = `(?:^|[^\p{L}\p{N}])`
)

var markedPrices = map[string]*regexp.Regexp{
	"BRL": regexp.MustCompile(`R\$\s*` + amount),
	"EUR": regexp.MustCompile(`€\s*` + amount + `|` + wordStart + amount + `\s*(?:€|EUR\b)`),
	"GBP": regexp.MustCompile(`£\s*` + amount),
	"USD": regexp.MustCompile(`(?:^|[^R])(?:US)?\$\s*` + amount),
}

// FindMarkedPrice returns the earliest currency-marked amount in text among
// the given ISO codes, together with the matching code.
func FindMarkedPrice(text string, codes []string) (string, string, bool) {
	best, bestCode, bestAt := "", "", -1

	for _, code := range codes {
		re, ok := markedPrices[strings.ToUpper(code)]
		if !ok {
			continue
		}
		m := re.FindStringSubmatchIndex(text)
		if m == nil || (bestAt >= 0 && m[0] >= bestAt) {
			continue
		}
		for g := 2; g+1 < len(m); g += 2 {
			if m[g] >= 0 {
				best, bestCode, bestAt = strings.TrimSpace(text[m[g]:m[g+1]]), strings.ToUpper(code), m[0]
				break
			}
		}
	}

	return best, bestCode, bestAt >= 0
}

// PatternConfig drives the last-resort fallback. An empty PlaceholderName
// disables it.
type PatternConfig struct {
	Currencies      []string `yaml:"currencies"`
	PlaceholderName string   `yaml:"placeholder_name"`
	Store           string   `yaml:"store"`
	URL             string   `yaml:"url"`
}

// Enabled reports whether the fallback may emit a record.
func (p PatternConfig) Enabled() bool {
	return p.PlaceholderName != "" && len(p.Currencies) > 0
}

// ExtractByPattern scans the visible page text for a currency-marked amount
// and emits at most one generic candidate carrying the placeholder name.
func ExtractByPattern(doc *goquery.Document, p PatternConfig) []models.Candidate {
	if !p.Enabled() {
		return nil
	}

	price, code, ok := FindMarkedPrice(visibleText(doc.Selection), p.Currencies)
	if !ok {
		return nil
	}

	return []models.Candidate{models.NewCandidate(
		models.FieldName, p.PlaceholderName,
		models.FieldPrice, price,
		models.FieldCurrency, code,
		models.FieldStore, p.Store,
		models.FieldURL, p.URL,
	)}
}

var hiddenElements = map[string]bool{"script": true, "style": true, "noscript": true, "template": true}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "br": true, "dd": true, "div": true,
	"dl": true, "dt": true, "figcaption": true, "figure": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// visibleText returns the text of s without script, style and noscript
// content. Block elements are separated by a space so a heading never runs
// into the price below it.
func visibleText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if hiddenElements[n.Data] {
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(b.String(), " "))
}
