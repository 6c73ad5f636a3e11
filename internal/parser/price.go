package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Locale selects the regional number convention a site formats prices in.
type Locale int

const (
	LocaleGeneric Locale = iota
	LocaleEU
	LocaleBR
)

func (l Locale) String() string {
	switch l {
	case LocaleEU:
		return "eu"
	case LocaleBR:
		return "br"
	default:
		return "generic"
	}
}

// UnmarshalText lets profiles spell the locale as "eu", "br" or "generic".
func (l *Locale) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "eu":
		*l = LocaleEU
	case "br":
		*l = LocaleBR
	case "", "generic":
		*l = LocaleGeneric
	default:
		return fmt.Errorf("unknown locale %q", string(text))
	}
	return nil
}

func (l Locale) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// decimalComma reports whether the locale writes decimals with a comma.
func (l Locale) decimalComma() bool {
	return l == LocaleEU || l == LocaleBR
}

// amountBody matches one price number. A space only groups thousands when
// the leading run has one to three digits, and grouping stops after a one or
// two digit decimal part, so "2025 299,99" never reads as one number.
const amountBody = `\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+(?:[.,]\d{1,2})?|\d(?:[\d.,]*\d)?`

var (
	priceDigits = regexp.MustCompile(`\d(?:[\d.,]*\d)?`)
	wordNumber  = regexp.MustCompile(wordStart + `(` + amountBody + `)`)
	looseNumber = regexp.MustCompile(amountBody)
	groupSpaces = regexp.MustCompile(`[ \x{00A0}\x{202F}]`)
)

var allCurrencies = []string{"BRL", "EUR", "GBP", "USD"}

// NormalizePrice converts a locale formatted price ("R$ 1.049,99",
// "1,049.99 €", "349") into a canonical decimal string ("1049.99").
//
// A currency-marked amount wins over bare numbers, so model numbers next to
// the price are ignored. When both separators occur, the one appearing last
// is the decimal mark. A lone separator is a decimal mark only when exactly
// two digits follow its last occurrence; the locale's native decimal mark
// (comma for EU/BR, dot otherwise) is also accepted with a single trailing
// digit. Anything else is a thousands separator and is dropped. The second
// return value is false when no number can be read.
func NormalizePrice(raw string, hint Locale) (string, bool) {
	num := priceToken(raw)
	if num == "" {
		return "", false
	}
	num = groupSpaces.ReplaceAllString(num, "")

	lastDot := strings.LastIndex(num, ".")
	lastComma := strings.LastIndex(num, ",")

	var out string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		dec := lastDot
		if lastComma > lastDot {
			dec = lastComma
		}
		out = stripSeparators(num[:dec]) + "." + num[dec+1:]
	case lastComma >= 0:
		out = splitAt(num, lastComma, hint.decimalComma())
	case lastDot >= 0:
		out = splitAt(num, lastDot, !hint.decimalComma())
	default:
		out = num
	}

	if v, err := strconv.ParseFloat(out, 64); err != nil || v < 0 {
		return "", false
	}
	return out, true
}

// priceToken picks the number NormalizePrice reads: a currency-marked amount,
// then the first number starting at a word boundary, then any digits at all.
func priceToken(raw string) string {
	if found, _, ok := FindMarkedPrice(raw, allCurrencies); ok {
		return found
	}
	if m := wordNumber.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return looseNumber.FindString(raw)
}

func splitAt(num string, at int, native bool) string {
	frac := num[at+1:]
	if len(frac) == 2 || (native && len(frac) == 1) {
		return stripSeparators(num[:at]) + "." + frac
	}
	return stripSeparators(num)
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}

// FormatNumber renders a number taken from structured data at full
// precision. A single fractional digit is padded to two ("12.50").
func FormatNumber(v float64) string {
	out := strconv.FormatFloat(v, 'f', -1, 64)
	if dot := strings.IndexByte(out, '.'); dot >= 0 && len(out)-dot == 2 {
		out += "0"
	}
	return out
}

type currencyMarker struct {
	code   string
	symbol *regexp.Regexp
}

// Order matters: R$ must be seen before the bare dollar sign.
var currencyMarkers = []currencyMarker{
	{code: "BRL", symbol: regexp.MustCompile(`R\$|\bBRL\b`)},
	{code: "EUR", symbol: regexp.MustCompile(`€|\bEUR\b`)},
	{code: "GBP", symbol: regexp.MustCompile(`£|\bGBP\b`)},
	{code: "USD", symbol: regexp.MustCompile(`US\$|\$|\bUSD\b`)},
}

var isoCode = regexp.MustCompile(`^[A-Z]{3}$`)

// IsCurrencyCode reports whether code looks like an ISO 4217 code.
func IsCurrencyCode(code string) bool {
	return isoCode.MatchString(code)
}

// DetectCurrency returns the ISO code of the first currency marker found in
// text, or "" when there is none.
func DetectCurrency(text string) string {
	trimmed := strings.TrimSpace(text)
	if isoCode.MatchString(strings.ToUpper(trimmed)) {
		return strings.ToUpper(trimmed)
	}
	for _, m := range currencyMarkers {
		if m.symbol.MatchString(text) {
			return m.code
		}
	}
	return ""
}
