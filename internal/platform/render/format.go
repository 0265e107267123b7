package render

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts and free text for a locale.
type Formatter struct {
	printer *message.Printer
	title   cases.Caser
	policy  *bluemonday.Policy
}

// NewFormatter builds a Formatter for a BCP 47 locale such as en-IN. Unknown tags fall back
// to English.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	return Formatter{
		printer: message.NewPrinter(tag),
		title:   cases.Title(tag),
		policy:  bluemonday.StrictPolicy(),
	}
}

// Amount formats a money value with two decimals and locale grouping.
func (f Formatter) Amount(v decimal.Decimal) string {
	return f.printer.Sprint(number.Decimal(v.Round(2).InexactFloat64(), number.Scale(2)))
}

// Quantity formats a quantity without trailing zeros.
func (f Formatter) Quantity(v decimal.Decimal) string {
	if v.Equal(v.Truncate(0)) {
		return f.printer.Sprint(number.Decimal(v.IntPart()))
	}
	return f.printer.Sprint(number.Decimal(v.InexactFloat64(), number.MaxFractionDigits(3)))
}

// Text strips markup and collapses whitespace.
func (f Formatter) Text(s string) string {
	clean := html.UnescapeString(f.policy.Sanitize(s))
	return strings.Join(strings.Fields(clean), " ")
}

// Title sanitises s and title-cases it.
func (f Formatter) Title(s string) string {
	return f.title.String(f.Text(s))
}
