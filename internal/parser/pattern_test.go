package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMarkedPrice(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		codes []string
		price string
		code  string
		found bool
	}{
		{name: "Real", text: "Oferta R$ 49,90 no Pix", codes: []string{"BRL"}, price: "49,90", code: "BRL", found: true},
		{name: "Euro after amount", text: "desde 1.299,00 € con envio", codes: []string{"EUR"}, price: "1.299,00", code: "EUR", found: true},
		{name: "Euro before amount", text: "Preço €12,99", codes: []string{"EUR"}, price: "12,99", code: "EUR", found: true},
		{name: "Space grouped thousands", text: "1 299,00 €", codes: []string{"EUR"}, price: "1 299,00", code: "EUR", found: true},
		{name: "Earliest across codes", text: "£10.00 or $12.00", codes: []string{"USD", "GBP"}, price: "10.00", code: "GBP", found: true},
		{name: "Model number before euro", text: "Sony WH-1000XM6 2025 299,99 €", codes: []string{"EUR"}, price: "299,99", code: "EUR", found: true},
		{name: "Sales count after real", text: "R$ 49,90 150 vendidos", codes: []string{"BRL"}, price: "49,90", code: "BRL", found: true},
		{name: "Grouped thousands then count", text: "R$ 1 299,00 150 vendidos", codes: []string{"BRL"}, price: "1 299,00", code: "BRL", found: true},
		{name: "Real is not dollar", text: "R$ 10,00", codes: []string{"USD"}, found: false},
		{name: "No marker", text: "apenas 49,90", codes: []string{"BRL", "EUR"}, found: false},
		{name: "Unknown code", text: "R$ 10,00", codes: []string{"XYZ"}, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, code, found := FindMarkedPrice(tt.text, tt.codes)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.price, price)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestExtractByPattern(t *testing.T) {
	doc := newDoc(t, `<html><head><script>var cached = "R$ 10,00";</script><style>.p:after{content:"R$ 1,00"}</style></head>
		<body><p>Oferta imperdível: R$ 49,90 no Pix</p><p>Outra: R$ 59,90</p></body></html>`)

	cfg := PatternConfig{
		Currencies:      []string{"BRL"},
		PlaceholderName: "Produto encontrado",
		Store:           "AcharPromo",
		URL:             "https://achar.promo",
	}

	products := Finalize(ExtractByPattern(doc, cfg), brDefaults)

	require.Len(t, products, 1)
	assert.Equal(t, "Produto encontrado", products[0].Name)
	assert.Equal(t, "49.90", products[0].Price)
	assert.Equal(t, "BRL", products[0].Currency)
	assert.Equal(t, "AcharPromo", products[0].Store)
	assert.Equal(t, "https://achar.promo", products[0].URL)
}

func TestExtractByPatternDisabled(t *testing.T) {
	doc := newDoc(t, `<p>R$ 49,90</p>`)

	assert.Empty(t, ExtractByPattern(doc, PatternConfig{Currencies: []string{"BRL"}}))
	assert.Empty(t, ExtractByPattern(doc, PatternConfig{PlaceholderName: "Produto encontrado"}))
}

func TestExtractByPatternNoPrice(t *testing.T) {
	doc := newDoc(t, `<p>Nenhum resultado</p>`)

	assert.Empty(t, ExtractByPattern(doc, PatternConfig{Currencies: []string{"BRL"}, PlaceholderName: "Produto encontrado"}))
}

func TestExtractByPatternIgnoresTrailingCounts(t *testing.T) {
	doc := newDoc(t, `<div><h3>Oferta</h3><p>R$ 49,90 150 vendidos</p></div>`)

	products := Finalize(ExtractByPattern(doc, PatternConfig{Currencies: []string{"BRL"}, PlaceholderName: "Produto encontrado"}), brDefaults)

	require.Len(t, products, 1)
	assert.Equal(t, "49.90", products[0].Price)
}

func TestVisibleTextSeparatesBlocks(t *testing.T) {
	doc := newDoc(t, `<div><h3>Sony WH-1000XM6 2025</h3><span>299,99 €</span><script>var p = "1,00 €"</script></div>`)

	assert.Equal(t, "Sony WH-1000XM6 2025 299,99 €", visibleText(doc.Find("div")))
}
