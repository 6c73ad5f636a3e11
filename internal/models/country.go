package models

import "strings"

// Country is an ISO 3166-1 alpha-2 code.
type Country string

const (
	CountryBR Country = "BR"
	CountryUS Country = "US"
	CountryPT Country = "PT"
	CountryES Country = "ES"
	CountryGB Country = "GB"
	CountryDE Country = "DE"
)

var countryCurrencies = map[Country]string{
	CountryBR: "BRL",
	CountryUS: "USD",
	CountryPT: "EUR",
	CountryES: "EUR",
	CountryDE: "EUR",
	CountryGB: "GBP",
}

// ParseCountry normalizes a country code. The second value is false for
// codes without a known currency.
func ParseCountry(s string) (Country, bool) {
	c := Country(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := countryCurrencies[c]
	return c, ok
}

// Currency returns the country's ISO 4217 currency, or "" when unknown.
func (c Country) Currency() string {
	return countryCurrencies[c]
}

// CountryForHost guesses a shop's country from its host name. Unknown hosts
// count as US shops.
func CountryForHost(host string) Country {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	switch {
	case strings.HasSuffix(host, ".br") || strings.Contains(host, "brazil"):
		return CountryBR
	case strings.HasSuffix(host, ".pt") || strings.Contains(host, "portugal"):
		return CountryPT
	case strings.HasSuffix(host, ".es") || strings.Contains(host, "spain") || strings.Contains(host, "espana"):
		return CountryES
	case strings.HasSuffix(host, ".uk") || strings.HasSuffix(host, ".gb") || strings.Contains(host, "britain"):
		return CountryGB
	case strings.HasSuffix(host, ".de"):
		return CountryDE
	default:
		return CountryUS
	}
}
