package models

import (
	"math"
	"strconv"
	"strings"
)

// Product is one validated offer extracted from a listing page.
type Product struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Store    string `json:"store"`
	URL      string `json:"url"`
	// Converted is set when a search asks for prices in another currency.
	Converted *Money `json:"converted_price,omitempty"`
}

// Money is a canonical decimal amount in one currency.
type Money struct {
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// EffectivePrice is the converted price when there is one, else the listed
// price. Unreadable prices compare as +Inf.
func (p *Product) EffectivePrice() float64 {
	price := p.Price
	if p.Converted != nil {
		price = p.Converted.Price
	}
	v, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return math.Inf(1)
	}
	return v
}

// Candidate field keys used by the strategies. Structured data may carry
// other keys (title, productName, valor, ...); the record builder resolves
// those through its synonym lists.
const (
	FieldName     = "name"
	FieldPrice    = "price"
	FieldURL      = "url"
	FieldStore    = "store"
	FieldCurrency = "currency"
	// FieldDecimal holds a price already in canonical dot-decimal form, set
	// by strategies that read machine-typed numbers. It wins over FieldPrice.
	FieldDecimal = "decimal"
)

// Candidate is an unvalidated set of fields gathered by one strategy for
// one product. Any subset of fields may be missing.
type Candidate map[string]string

// NewCandidate returns a candidate holding the non-empty pairs of kv.
func NewCandidate(kv ...string) Candidate {
	c := make(Candidate, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		c.Set(kv[i], kv[i+1])
	}
	return c
}

// Set stores value under key when the trimmed value is non-empty.
func (c Candidate) Set(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	c[key] = value
}

// First returns the first non-empty value among keys, in order.
func (c Candidate) First(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c[k]); v != "" {
			return v
		}
	}
	return ""
}

// Result is the envelope returned by a site extractor.
type Result struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Source   string    `json:"source"`
	Error    *Error    `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// NewResult wraps products for source. A nil slice becomes an empty one so
// the JSON form is always an array.
func NewResult(source string, products []Product) Result {
	if products == nil {
		products = make([]Product, 0)
	}
	return Result{
		Products: products,
		Total:    len(products),
		Source:   source,
	}
}

// Failed returns an empty result carrying a diagnostic.
func Failed(source, code, message string) Result {
	r := NewResult(source, nil)
	r.Error = &Error{Code: code, Message: message}
	return r
}

// Validate reports the invariants a product violates.
func (p *Product) Validate() []string {
	var errors []string

	if p.Name == "" {
		errors = append(errors, "name is required")
	}

	if p.URL == "" {
		errors = append(errors, "url is required")
	}

	if p.Price == "" {
		errors = append(errors, "price is required")
	} else if v, err := strconv.ParseFloat(p.Price, 64); err != nil || v < 0 {
		errors = append(errors, "price must be a non-negative number")
	}

	if p.Currency == "" {
		errors = append(errors, "currency is required")
	}

	if p.Store == "" {
		errors = append(errors, "store is required")
	}

	return errors
}

func (p *Product) IsValid() bool {
	return len(p.Validate()) == 0
}
