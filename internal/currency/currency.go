// Package currency formats money amounts for prompts and notifications.
package currency

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency describes how one supported currency is rendered.
type Currency struct {
	Code   string
	Symbol string
	Locale language.Tag
}

var currencies = map[string]Currency{
	"TRY": {Code: "TRY", Symbol: "₺", Locale: language.MustParse("tr-TR")},
	"USD": {Code: "USD", Symbol: "$", Locale: language.MustParse("en-US")},
	"EUR": {Code: "EUR", Symbol: "€", Locale: language.MustParse("de-DE")},
	"GBP": {Code: "GBP", Symbol: "£", Locale: language.MustParse("en-GB")},
}

// Default is used for unknown or empty currency codes.
const Default = "TRY"

// Lookup returns the currency for code, falling back to TRY.
func Lookup(code string) Currency {
	if c, ok := currencies[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return c
	}
	return currencies[Default]
}

// Supported reports whether code is one of the known currencies.
func Supported(code string) bool {
	_, ok := currencies[strings.ToUpper(code)]
	return ok
}

// Symbol returns the display symbol of code.
func Symbol(code string) string {
	return Lookup(code).Symbol
}

// Format renders |amount| with two decimals, locale grouping and the symbol as
// suffix, e.g. "1.234,50₺".
func Format(amount float64, code string) string {
	c := Lookup(code)
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "0" + c.Symbol
	}
	p := message.NewPrinter(c.Locale)
	return p.Sprint(number.Decimal(math.Abs(amount), number.Scale(2))) + c.Symbol
}
