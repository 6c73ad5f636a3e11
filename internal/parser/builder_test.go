package parser

import (
	"testing"

	"github.com/maltedev/offer-extractor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var brDefaults = Defaults{
	BaseURL:  "https://achar.promo",
	Currency: "BRL",
	Store:    "AcharPromo",
	Locale:   LocaleBR,
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"  Fone   Bluetooth\n JBL  ", "Fone Bluetooth JBL"},
		{"Fone Bluetooth JBL - Frete grátis para todo o Brasil", "Fone Bluetooth JBL"},
		{"Smartphone Galaxy A15 | Mercado Livre", "Smartphone Galaxy A15"},
		{"Auriculares Sony - Envío gratis", "Auriculares Sony"},
		{"Cafeteira Oster | Magazine Luiza", "Cafeteira Oster"},
		{"Headphones - Free Shipping", "Headphones"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanName(tt.in))
		})
	}
}

func TestBuild(t *testing.T) {
	t.Run("Resolves synonyms and defaults", func(t *testing.T) {
		c := models.Candidate{"title": "Fone JBL", "valor": "R$ 49,90", "link": "/p/9"}

		p, ok := Build(c, brDefaults)
		require.True(t, ok)
		assert.Equal(t, models.Product{
			Name:     "Fone JBL",
			Price:    "49.90",
			Currency: "BRL",
			Store:    "AcharPromo",
			URL:      "https://achar.promo/p/9",
		}, p)
	})

	t.Run("Title wins over description", func(t *testing.T) {
		c := models.Candidate{"description": "Long text", "title": "Short title", "price": "10", "url": "/x"}

		p, ok := Build(c, brDefaults)
		require.True(t, ok)
		assert.Equal(t, "Short title", p.Name)
	})

	t.Run("Candidate currency and store win", func(t *testing.T) {
		c := models.NewCandidate(
			models.FieldName, "Fone",
			models.FieldPrice, "10",
			models.FieldURL, "https://other.example/p",
			models.FieldCurrency, "usd",
			"seller", "Loja X",
		)

		p, ok := Build(c, brDefaults)
		require.True(t, ok)
		assert.Equal(t, "USD", p.Currency)
		assert.Equal(t, "Loja X", p.Store)
		assert.Equal(t, "https://other.example/p", p.URL)
	})

	t.Run("Store suffix appended once", func(t *testing.T) {
		d := Defaults{BaseURL: "https://www.kelkoo.es", Currency: "EUR", Store: "Kelkoo Partner Store", StoreSuffix: " (Available in Spain)"}
		c := models.NewCandidate(models.FieldName, "Auriculares", models.FieldPrice, "89,95", models.FieldURL, "/o/1")

		p, ok := Build(c, d)
		require.True(t, ok)
		assert.Equal(t, "Kelkoo Partner Store (Available in Spain)", p.Store)

		c.Set(models.FieldStore, "PcComponentes (Available in Spain)")
		p, ok = Build(c, d)
		require.True(t, ok)
		assert.Equal(t, "PcComponentes (Available in Spain)", p.Store)
	})

	t.Run("Canonical decimal skips locale rules", func(t *testing.T) {
		c := models.NewCandidate(models.FieldName, "Mouse", models.FieldPrice, "1.299", models.FieldDecimal, "1.299", models.FieldURL, "/p/2")

		p, ok := Build(c, brDefaults)
		require.True(t, ok)
		assert.Equal(t, "1.299", p.Price)

		c[models.FieldDecimal] = "-1"
		p, ok = Build(c, brDefaults)
		require.True(t, ok)
		assert.Equal(t, "1299", p.Price)
	})

	t.Run("Falls back to USD and Unknown Store", func(t *testing.T) {
		c := models.NewCandidate(models.FieldName, "Thing", models.FieldPrice, "5", models.FieldURL, "https://x.example/t")

		p, ok := Build(c, Defaults{})
		require.True(t, ok)
		assert.Equal(t, "USD", p.Currency)
		assert.Equal(t, "Unknown Store", p.Store)
	})
}

func TestBuildRejectsIncompleteCandidates(t *testing.T) {
	complete := func() models.Candidate {
		return models.NewCandidate(models.FieldName, "Fone", models.FieldPrice, "49,90", models.FieldURL, "/p/1")
	}

	for _, field := range []string{models.FieldName, models.FieldPrice, models.FieldURL} {
		t.Run("missing "+field, func(t *testing.T) {
			c := complete()
			delete(c, field)

			_, ok := Build(c, brDefaults)
			assert.False(t, ok)
		})
	}

	t.Run("unreadable price", func(t *testing.T) {
		c := complete()
		c[models.FieldPrice] = "Consulte"

		_, ok := Build(c, brDefaults)
		assert.False(t, ok)
	})

	t.Run("name that is only boilerplate", func(t *testing.T) {
		c := complete()
		c[models.FieldName] = "   "

		_, ok := Build(c, brDefaults)
		assert.False(t, ok)
	})
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		expected string
		ok       bool
	}{
		{name: "Relative path", ref: "/p/1", expected: "https://achar.promo/p/1", ok: true},
		{name: "Absolute passes through", ref: "https://shop.example/p?id=1", expected: "https://shop.example/p?id=1", ok: true},
		{name: "Protocol relative", ref: "//cdn.example/p", expected: "https://cdn.example/p", ok: true},
		{name: "Fragment only", ref: "#reviews", ok: false},
		{name: "Javascript", ref: "javascript:void(0)", ok: false},
		{name: "Empty", ref: "  ", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveURL("https://achar.promo", tt.ref)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}
