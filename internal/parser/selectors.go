package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/offer-extractor/internal/models"
)

// Scope says where a probe looks relative to the matched container.
type Scope string

const (
	ScopeDescendant Scope = ""
	ScopeSelf       Scope = "self"
	ScopeAncestor   Scope = "ancestor"
)

// Probe reads one field value out of a container: the text of the first
// matching element, or one of its attributes when Attr is set.
type Probe struct {
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr,omitempty"`
	Scope    Scope  `yaml:"scope,omitempty"`
	MinLen   int    `yaml:"min_len,omitempty"`
}

// Text probes an element's text; Attr probes an attribute.
func Text(selector string) Probe { return Probe{Selector: selector} }

func Attr(selector, attr string) Probe { return Probe{Selector: selector, Attr: attr} }

// SelectorLadder lists container selectors from most to least specific, and
// per field the probes to try in order.
type SelectorLadder struct {
	Containers []string `yaml:"containers"`
	Name       []Probe  `yaml:"name"`
	Price      []Probe  `yaml:"price"`
	Store      []Probe  `yaml:"store"`
	URL        []Probe  `yaml:"url"`
	Currency   []Probe  `yaml:"currency,omitempty"`
	// Currencies are the ISO codes whose markers are searched in the
	// container text when no price probe matches.
	Currencies []string `yaml:"currencies,omitempty"`
	// ExcludeNames rejects names containing any of these substrings.
	ExcludeNames []string `yaml:"exclude_names,omitempty"`
}

// ExtractBySelectors commits to the first container selector that matches
// anything and builds one candidate per matched container. Containers
// without a usable name and price are dropped.
func ExtractBySelectors(doc *goquery.Document, ladder SelectorLadder) []models.Candidate {
	for _, selector := range ladder.Containers {
		containers := doc.Find(selector)
		if containers.Length() == 0 {
			continue
		}

		var out []models.Candidate
		containers.Each(func(_ int, card *goquery.Selection) {
			if c, ok := ladder.candidate(card); ok {
				out = append(out, c)
			}
		})
		return out
	}

	return nil
}

func (l SelectorLadder) candidate(card *goquery.Selection) (models.Candidate, bool) {
	name := firstValue(card, l.Name, l.usableName)
	if name == "" {
		return nil, false
	}

	price := firstValue(card, l.Price, hasDigit)
	if price == "" {
		if found, _, ok := FindMarkedPrice(visibleText(card), l.Currencies); ok {
			price = found
		}
	}
	if price == "" {
		return nil, false
	}

	c := models.NewCandidate(
		models.FieldName, name,
		models.FieldPrice, price,
		models.FieldStore, firstValue(card, l.Store, notEmpty),
		models.FieldURL, firstValue(card, l.URL, notEmpty),
	)

	currency := DetectCurrency(price)
	if currency == "" {
		currency = DetectCurrency(firstValue(card, l.Currency, notEmpty))
	}
	c.Set(models.FieldCurrency, currency)

	return c, true
}

func (l SelectorLadder) usableName(v string) bool {
	lower := strings.ToLower(v)
	for _, ex := range l.ExcludeNames {
		if strings.Contains(lower, strings.ToLower(ex)) {
			return false
		}
	}
	return v != ""
}

// firstValue walks probes in order and returns the first value accepted
// by usable.
func firstValue(card *goquery.Selection, probes []Probe, usable func(string) bool) string {
	for _, p := range probes {
		if v := p.read(card, usable); v != "" {
			return v
		}
	}
	return ""
}

func (p Probe) read(card *goquery.Selection, usable func(string) bool) string {
	var found string
	p.matches(card).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v := p.value(s)
		if utf8.RuneCountInString(v) < p.MinLen || !usable(v) {
			return true
		}
		found = v
		return false
	})
	return found
}

func (p Probe) matches(card *goquery.Selection) *goquery.Selection {
	switch p.Scope {
	case ScopeSelf:
		if p.Selector == "" {
			return card
		}
		return card.Filter(p.Selector)
	case ScopeAncestor:
		return card.ParentsFiltered(p.Selector).First()
	default:
		return card.Find(p.Selector)
	}
}

func (p Probe) value(s *goquery.Selection) string {
	if p.Attr != "" {
		v, _ := s.Attr(p.Attr)
		return strings.TrimSpace(whitespace.ReplaceAllString(v, " "))
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(s.Text(), " "))
}

func notEmpty(v string) bool { return v != "" }

func hasDigit(v string) bool { return priceDigits.MatchString(v) }
