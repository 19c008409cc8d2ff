package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Locale is the language used for labels, ordering and prices.
var Locale = language.BrazilianPortuguese

// Normalize produces a comparison key: diacritics removed, case folded, and every
// run of characters other than letters and digits collapsed into a single "_".
// "Combos & Promoções", "combos-promocoes" and "combos_promocoes" share one key.
func Normalize(value string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), value)
	if err != nil {
		stripped = value
	}
	stripped = cases.Fold().String(stripped)

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSep := false
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// NewCollator returns a pt-BR collator ignoring case and diacritics.
// Collators are not safe for concurrent use; create one per sort.
func NewCollator() *collate.Collator {
	return collate.New(Locale, collate.IgnoreCase, collate.IgnoreDiacritics)
}

// FormatCurrency renders an amount in minor units for the given ISO currency and
// locale, e.g. "R$ 1.234,50". Unknown codes fall back to BRL.
func FormatCurrency(minor int64, code string, tag language.Tag) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.BRL
	}
	p := message.NewPrinter(tag)
	return p.Sprint(currency.Symbol(unit.Amount(float64(minor) / 100)))
}

// FormatBRL formats centavos as Brazilian reais.
func FormatBRL(cents int64) string {
	return FormatCurrency(cents, "BRL", Locale)
}

// CleanLabel replaces "_" and "-" with spaces, collapses whitespace and lowercases.
func CleanLabel(raw string) string {
	replaced := strings.NewReplacer("_", " ", "-", " ").Replace(raw)
	return strings.ToLower(strings.Join(strings.Fields(replaced), " "))
}

// DisplayLabel turns a raw identifier into a human-readable heading. Overrides are
// looked up by the Normalize key of the cleaned text; otherwise every word is title-cased.
func DisplayLabel(raw string, overrides map[string]string) string {
	cleaned := CleanLabel(raw)
	if cleaned == "" {
		return ""
	}
	if label, ok := overrides[Normalize(cleaned)]; ok && label != "" {
		return label
	}
	return cases.Title(Locale).String(cleaned)
}

// DefaultLabelOverrides restores accents lost in identifiers.
func DefaultLabelOverrides() map[string]string {
	return map[string]string{
		"acai":             "Açaí",
		"promocoes":        "Promoções",
		"combos_promocoes": "Combos & Promoções",
	}
}
