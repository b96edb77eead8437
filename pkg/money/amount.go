package money

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Parse converts a user or provider supplied amount into a decimal.
// Plain numbers ("10", "10.5", "-3.25") are read as-is. Anything else is
// treated as a formatted amount in the given currency: symbols and
// thousand separators are stripped and the currency's decimal separator
// is honoured, so "€1.234,50" in EUR reads as 1234.50.
func Parse(raw string, currencyCode string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		return d, nil
	}

	cur, ok := Lookup(currencyCode)
	if !ok {
		cur = currencies["USD"]
	}

	negative := strings.Contains(raw, "-") || (strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")"))

	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case string(r) == cur.DecimalSeparator:
			b.WriteRune('.')
		}
	}
	clean := b.String()
	if clean == "" || strings.Count(clean, ".") > 1 {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// Round rounds to the currency's minor-unit precision.
func Round(d decimal.Decimal, currencyCode string) decimal.Decimal {
	return d.Round(Decimals(currencyCode))
}

// Format renders the amount with exactly the currency's minor-unit digits,
// the representation the provider API expects.
func Format(d decimal.Decimal, currencyCode string) string {
	return d.StringFixed(Decimals(currencyCode))
}

// Equal compares two amounts after rounding both to the currency precision.
func Equal(a, b decimal.Decimal, currencyCode string) bool {
	return Round(a, currencyCode).Equal(Round(b, currencyCode))
}

// EqualStrings parses both amounts in the currency and compares them.
func EqualStrings(a, b string, currencyCode string) (bool, error) {
	da, err := Parse(a, currencyCode)
	if err != nil {
		return false, err
	}
	db, err := Parse(b, currencyCode)
	if err != nil {
		return false, err
	}
	return Equal(da, db, currencyCode), nil
}

// Display renders the amount the way it is written in notes and messages,
// with the currency symbol and separators: "$1,234.50", "€1.234,50".
func Display(d decimal.Decimal, currencyCode string) string {
	cur, ok := Lookup(currencyCode)
	if !ok {
		return Format(d, currencyCode) + " " + strings.ToUpper(strings.TrimSpace(currencyCode))
	}

	fixed := Round(d, cur.Code).Abs().StringFixed(cur.Decimals)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(cur.ThousandSeparator)
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString(cur.DecimalSeparator)
		b.WriteString(frac)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + cur.Symbol + b.String()
}
