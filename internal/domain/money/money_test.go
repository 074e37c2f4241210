package money

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestSum(t *testing.T) {
	type line struct {
		qty   int64
		price string
	}
	lines := []line{{5, "10.00"}, {1, "0.99"}, {3, "2.50"}}

	total := Sum(lines, func(l line) decimal.Decimal {
		return decimal.RequireFromString(l.price).Mul(decimal.NewFromInt(l.qty))
	})

	assert.True(t, decimal.RequireFromString("58.49").Equal(total), total.String())
	assert.True(t, Sum([]line(nil), func(line) decimal.Decimal { return decimal.NewFromInt(1) }).IsZero())
}

func TestCurrency_Scale(t *testing.T) {
	tests := []struct {
		code  string
		scale int32
	}{
		{"USD", 2},
		{"eur", 2},
		{"JPY", 0},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c, err := NewCurrency(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.scale, c.Scale)
		})
	}

	_, err := NewCurrency("DOLLARS")
	assert.Error(t, err)
}

func TestCurrency_RoundHalfAwayFromZero(t *testing.T) {
	usd := MustCurrency("USD")

	assert.Equal(t, "0.13", usd.Round(decimal.RequireFromString("0.125")).StringFixed(2))
	assert.Equal(t, "-0.13", usd.Round(decimal.RequireFromString("-0.125")).StringFixed(2))
	assert.Equal(t, "10.00", usd.Round(decimal.RequireFromString("9.999")).StringFixed(2))

	jpy := MustCurrency("JPY")
	assert.Equal(t, "1235", jpy.Round(decimal.RequireFromString("1234.5")).String())
}

func TestFormatter_Format(t *testing.T) {
	f := NewFormatter(language.AmericanEnglish, MustCurrency("USD"))

	out := f.Format(decimal.RequireFromString("1234.5"))

	assert.Contains(t, out, "$")
	assert.Contains(t, out, "1,234.50")
	assert.Equal(t, "USD", f.Currency().Code())
}

func TestFormatter_FormatKeepsEveryCent(t *testing.T) {
	f := NewFormatter(language.AmericanEnglish, MustCurrency("USD"))
	digits := func(s string) string {
		_, d, _ := strings.Cut(s, " ")
		return d
	}

	assert.Equal(t, "90,071,992,547,409.93", digits(f.Format(decimal.RequireFromString("90071992547409.93"))))
	assert.Equal(t, "0.07", digits(f.Format(decimal.RequireFromString("0.07"))))
	assert.Equal(t, "-0.50", digits(f.Format(decimal.RequireFromString("-0.5"))))
	assert.Equal(t, "-1,000.00", digits(f.Format(decimal.RequireFromString("-999.999"))))
}

func TestFormatter_FormatLocaleSeparators(t *testing.T) {
	f := NewFormatter(language.German, MustCurrency("EUR"))

	out := f.Format(decimal.RequireFromString("1234567.89"))

	assert.Contains(t, out, "1.234.567,89")
}

func TestParseFormatter(t *testing.T) {
	f, err := ParseFormatter("ja-JP", "jpy")
	require.NoError(t, err)
	assert.Equal(t, "JPY", f.Currency().Code())
	assert.Contains(t, f.Format(decimal.RequireFromString("1500.4")), "1,500")

	_, err = ParseFormatter("not a locale!", "USD")
	assert.Error(t, err)
	_, err = ParseFormatter("en-US", "ZZZZ")
	assert.Error(t, err)
}
