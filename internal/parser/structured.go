package parser

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/offer-extractor/internal/models"
)

// maxJSONStarts bounds how many opening braces of one script are tried as
// the start of a JSON value.
const maxJSONStarts = 256

var plainDecimal = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ExtractStructured collects product candidates from embedded data blocks:
// linked-data scripts typed "Product" and ad-hoc JSON blobs found in other
// scripts. Blocks that do not parse are skipped.
func ExtractStructured(doc *goquery.Document) []models.Candidate {
	var out []models.Candidate

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		scriptType, _ := s.Attr("type")
		if strings.Contains(strings.ToLower(scriptType), "ld+json") {
			out = append(out, linkedDataCandidates(raw)...)
			return
		}
		out = append(out, scriptCandidates(raw)...)
	})

	return out
}

func linkedDataCandidates(raw string) []models.Candidate {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil
	}

	var out []models.Candidate
	for _, node := range flattenLinkedData(data) {
		if hasType(node, "Product") {
			out = append(out, productCandidate(node))
		}
	}
	return out
}

// flattenLinkedData turns a single node, an array of nodes, a @graph
// container or an ItemList into a flat list of typed nodes.
func flattenLinkedData(v any) []map[string]any {
	var out []map[string]any

	switch t := v.(type) {
	case []any:
		for _, item := range t {
			out = append(out, flattenLinkedData(item)...)
		}
	case map[string]any:
		out = append(out, t)
		if graph, ok := t["@graph"]; ok {
			out = append(out, flattenLinkedData(graph)...)
		}
		if elements, ok := t["itemListElement"].([]any); ok {
			for _, el := range elements {
				m, ok := el.(map[string]any)
				if !ok {
					continue
				}
				if item, ok := m["item"]; ok {
					out = append(out, flattenLinkedData(item)...)
				} else {
					out = append(out, m)
				}
			}
		}
	}

	return out
}

func hasType(node map[string]any, want string) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

func productCandidate(node map[string]any) models.Candidate {
	c := models.NewCandidate(
		models.FieldName, text(node["name"]),
		models.FieldURL, text(node["url"]),
	)

	offer := firstOffer(node["offers"])
	if offer == nil {
		return c
	}

	price, decimal := priceValue(offer["price"])
	if price == "" {
		price, decimal = priceValue(offer["lowPrice"])
	}
	c.Set(models.FieldPrice, price)
	c.Set(models.FieldDecimal, decimal)
	c.Set(models.FieldCurrency, text(offer["priceCurrency"]))
	if u := text(offer["url"]); u != "" {
		c[models.FieldURL] = u
	}
	if seller, ok := offer["seller"].(map[string]any); ok {
		c.Set(models.FieldStore, text(seller["name"]))
	}

	return c
}

// firstOffer returns the offer object, taking the first element of a list.
func firstOffer(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

func scriptCandidates(raw string) []models.Candidate {
	lower := strings.ToLower(raw)
	if !strings.Contains(lower, "price") && !strings.Contains(lower, "valor") && !strings.Contains(lower, "cost") {
		return nil
	}

	var out []models.Candidate
	attempts := 0
	for i := 0; i < len(raw) && attempts < maxJSONStarts; {
		j := strings.IndexAny(raw[i:], "{[")
		if j < 0 {
			break
		}
		start := i + j
		attempts++

		dec := json.NewDecoder(strings.NewReader(raw[start:]))
		dec.UseNumber()

		var v any
		if err := dec.Decode(&v); err != nil {
			i = start + 1
			continue
		}

		walkProducts(v, &out)
		i = start + int(dec.InputOffset())
	}

	return out
}

// walkProducts visits every object in v and emits the product-shaped ones.
// Keys are visited in sorted order so repeated runs agree.
func walkProducts(v any, out *[]models.Candidate) {
	switch t := v.(type) {
	case map[string]any:
		if hasType(t, "Product") {
			*out = append(*out, productCandidate(t))
			return
		}
		if c, ok := adHocCandidate(t); ok {
			*out = append(*out, c)
			return
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkProducts(t[k], out)
		}
	case []any:
		for _, item := range t {
			walkProducts(item, out)
		}
	}
}

// adHocCandidate accepts an object carrying a name-like and a price-like key.
func adHocCandidate(obj map[string]any) (models.Candidate, bool) {
	c := make(models.Candidate)

	for _, k := range NameFields {
		c.Set(k, text(obj[k]))
	}
	for _, k := range URLFields {
		c.Set(k, text(obj[k]))
	}
	for _, k := range StoreFields {
		switch v := obj[k].(type) {
		case map[string]any:
			c.Set(k, text(v["name"]))
		default:
			c.Set(k, text(v))
		}
	}
	for _, k := range CurrencyFields {
		c.Set(k, text(obj[k]))
	}
	for _, k := range PriceFields {
		price, decimal := priceValue(obj[k])
		if price != "" && c.First(PriceFields...) == "" {
			c.Set(models.FieldDecimal, decimal)
		}
		c.Set(k, price)
	}

	if c.First(NameFields...) == "" || c.First(PriceFields...) == "" {
		return nil, false
	}
	return c, true
}

// priceValue reads a price that may be a number, a string or an object
// such as {"value": 49.9, "currency": "BRL"}. Besides the raw text it
// returns the canonical decimal when the value is machine typed: a JSON
// number or a plain dot-decimal string ("49.9"). Other strings are left to
// the site's locale rules.
func priceValue(v any) (string, string) {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return t.String(), FormatNumber(f)
		}
	case float64:
		return FormatNumber(t), FormatNumber(t)
	case string:
		s := strings.TrimSpace(t)
		if plainDecimal.MatchString(s) {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return s, FormatNumber(f)
			}
		}
		return s, ""
	case map[string]any:
		for _, k := range []string{"value", "amount", "current", "price"} {
			if price, decimal := priceValue(t[k]); price != "" {
				return price, decimal
			}
		}
	}
	return "", ""
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
