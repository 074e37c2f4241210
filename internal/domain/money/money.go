// Package money holds the decimal helpers shared by every priced entity.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Sum adds up amount(item) over items.
func Sum[T any](items []T, amount func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(amount(item))
	}
	return total
}

// Currency is an ISO 4217 currency together with its minor-unit scale.
type Currency struct {
	Unit  currency.Unit
	Scale int32
}

// NewCurrency parses an ISO code such as "USD" or "JPY".
func NewCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return Currency{}, fmt.Errorf("money: currency %q: %w", code, err)
	}
	return FromUnit(unit), nil
}

// MustCurrency is NewCurrency for package-level defaults and tests.
func MustCurrency(code string) Currency {
	c, err := NewCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// FromUnit uses the standard rounding of unit.
func FromUnit(unit currency.Unit) Currency {
	scale, _ := currency.Standard.Rounding(unit)
	return Currency{Unit: unit, Scale: int32(scale)}
}

// Code returns the ISO code.
func (c Currency) Code() string { return c.Unit.String() }

// Round rounds half away from zero to the currency scale.
func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.Scale)
}

// Formatter renders amounts for one locale and currency.
type Formatter struct {
	tag      language.Tag
	currency Currency
	printer  *message.Printer
	minus    string
	point    string
}

// NewFormatter builds a formatter for tag and cur.
func NewFormatter(tag language.Tag, cur Currency) *Formatter {
	p := message.NewPrinter(tag)
	// The locale's minus sign and decimal separator, read off a sample.
	sample := p.Sprint(number.Decimal(-1.5, number.MinFractionDigits(1), number.MaxFractionDigits(1)))
	one, five := strings.Index(sample, "1"), strings.LastIndex(sample, "5")
	minus, point := "-", "."
	if one >= 0 && five > one {
		minus, point = sample[:one], sample[one+1:five]
	}
	return &Formatter{tag: tag, currency: cur, printer: p, minus: minus, point: point}
}

// Currency returns the formatter's currency.
func (f *Formatter) Currency() Currency { return f.currency }

// Format renders d with the currency symbol and locale digit grouping, e.g. "$ 1,234.50".
// The fraction digits come from the decimal itself, so no precision is lost.
func (f *Formatter) Format(d decimal.Decimal) string {
	rounded := f.currency.Round(d)
	fixed := rounded.Abs().StringFixed(f.currency.Scale)
	_, frac, _ := strings.Cut(fixed, ".")

	digits := f.printer.Sprint(number.Decimal(rounded.Abs().Truncate(0).IntPart()))
	if frac != "" {
		digits += f.point + frac
	}
	if rounded.IsNegative() {
		digits = f.minus + digits
	}
	symbol := f.printer.Sprint(currency.Symbol(f.currency.Unit))
	return symbol + " " + digits
}

// ParseFormatter builds a formatter from a BCP 47 locale and an ISO code.
func ParseFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("money: locale %q: %w", locale, err)
	}
	cur, err := NewCurrency(code)
	if err != nil {
		return nil, err
	}
	return NewFormatter(tag, cur), nil
}
