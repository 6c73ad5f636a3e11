package sites

import (
	"log/slog"
	"testing"

	"github.com/maltedev/offer-extractor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(slog.Default())

	assert.Equal(t, []string{AcharPromo, Idealo, Kelkoo, KuantoKusta, Magalu, MercadoLivre}, r.IDs())

	e, err := r.Get(" Magalu ")
	require.NoError(t, err)
	assert.Equal(t, "magazineluiza.com.br", e.Profile().SourceName())

	_, err = r.Get("amazon")
	assert.ErrorIs(t, err, ErrUnknownSite)
}

func TestRegistryForCountry(t *testing.T) {
	r := DefaultRegistry(slog.Default())

	var ids []string
	for _, e := range r.ForCountry(models.CountryES) {
		ids = append(ids, e.Profile().ID)
	}
	assert.Equal(t, []string{Idealo, Kelkoo}, ids)

	assert.Len(t, r.ForCountry(models.CountryBR), 3)
	assert.Empty(t, r.ForCountry(models.CountryGB))
}

func TestRegistryRegister(t *testing.T) {
	r, err := NewRegistry(slog.Default())
	require.NoError(t, err)

	err = r.Register(Profile{ID: "broken"})
	assert.Error(t, err)

	p := acharPromoProfile()
	p.ID = "AcharPromoStaging"
	p.BaseURL = "https://staging.achar.promo"
	require.NoError(t, r.Register(p))

	e, err := r.Get("acharpromostaging")
	require.NoError(t, err)
	assert.Equal(t, "https://staging.achar.promo", e.Profile().BaseURL)
	assert.Len(t, r.Profiles(), 1)
}

func TestBuiltinProfilesAreValid(t *testing.T) {
	for _, p := range Builtin() {
		t.Run(p.ID, func(t *testing.T) {
			assert.NoError(t, p.Validate())
			assert.Equal(t, p.Country.Currency(), p.Currency)
		})
	}
}

func TestBuildSearchURL(t *testing.T) {
	tests := []struct {
		site     Profile
		query    string
		expected string
	}{
		{kuantoKustaProfile(), "sony wh-1000xm6", "https://www.kuantokusta.pt/search?q=sony+wh-1000xm6"},
		{idealoProfile(), "sony wh-1000xm6", "https://www.idealo.es/resultados.html?q=sony+wh-1000xm6"},
		{kelkooProfile(), "sony 1000xm6", "https://www.kelkoo.es/buscar?consulta=sony+1000xm6"},
		{magaluProfile(), " iphone  16 ", "https://www.magazineluiza.com.br/busca/iphone-16/"},
		{mercadoLivreProfile(), "iphone 11", "https://lista.mercadolivre.com.br/iphone-11"},
		{acharPromoProfile(), "fone & cabo", "https://achar.promo/search?q=fone+%26+cabo"},
	}

	for _, tt := range tests {
		t.Run(tt.site.ID, func(t *testing.T) {
			got, err := tt.site.BuildSearchURL(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := idealoProfile().BuildSearchURL("  ")
	assert.Error(t, err)
}

func TestBlockMarkersAreCaseInsensitive(t *testing.T) {
	p := kelkooProfile()

	assert.True(t, p.blocked("<p>please ENABLE js</p>"))
	assert.True(t, p.blocked("<div id=captcha-box></div>"))
	assert.False(t, p.blocked("<p>Auriculares</p>"))
	assert.False(t, idealoProfile().blocked("captcha"))
}
