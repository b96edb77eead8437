package money

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidAmount   = errors.New("invalid_amount")
)

// Currency describes how amounts in a currency are written and rounded.
type Currency struct {
	Code              string
	Symbol            string
	DecimalSeparator  string
	ThousandSeparator string
	Decimals          int32
}

var currencies = map[string]Currency{
	"AUD": {Code: "AUD", Symbol: "$", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 2},
	"BRL": {Code: "BRL", Symbol: "R$", DecimalSeparator: ",", ThousandSeparator: ".", Decimals: 2},
	"CAD": {Code: "CAD", Symbol: "$", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 2},
	"CHF": {Code: "CHF", Symbol: "CHF", DecimalSeparator: ".", ThousandSeparator: "'", Decimals: 2},
	"CZK": {Code: "CZK", Symbol: "Kč", DecimalSeparator: ",", ThousandSeparator: " ", Decimals: 2},
	"DKK": {Code: "DKK", Symbol: "kr.", DecimalSeparator: ",", ThousandSeparator: ".", Decimals: 2},
	"EUR": {Code: "EUR", Symbol: "€", DecimalSeparator: ",", ThousandSeparator: ".", Decimals: 2},
	"GBP": {Code: "GBP", Symbol: "£", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 2},
	"HKD": {Code: "HKD", Symbol: "HK$", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 2},
	"HUF": {Code: "HUF", Symbol: "Ft", DecimalSeparator: ",", ThousandSeparator: ".", Decimals: 0},
	"ILS": {Code: "ILS", Symbol: "₪", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 2},
	"JPY": {Code: "JPY", Symbol: "¥", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 0},
	"MXN": {Code: "MXN", Symbol: "$", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 2},
	"MYR": {Code: "MYR", Symbol: "RM", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 2},
	"NOK": {Code: "NOK", Symbol: "Kr", DecimalSeparator: ",", ThousandSeparator: ".", Decimals: 2},
	"NZD": {Code: "NZD", Symbol: "$", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 2},
	"PHP": {Code: "PHP", Symbol: "₱", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 2},
	"PLN": {Code: "PLN", Symbol: "zł", DecimalSeparator: ",", ThousandSeparator: ".", Decimals: 2},
	"RUB": {Code: "RUB", Symbol: "pyб", DecimalSeparator: ",", ThousandSeparator: " ", Decimals: 2},
	"SEK": {Code: "SEK", Symbol: "kr", DecimalSeparator: ",", ThousandSeparator: " ", Decimals: 2},
	"SGD": {Code: "SGD", Symbol: "$", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 2},
	"THB": {Code: "THB", Symbol: "฿", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 2},
	"TWD": {Code: "TWD", Symbol: "NT$", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 0},
	"USD": {Code: "USD", Symbol: "$", DecimalSeparator: ".", ThousandSeparator: ",", Decimals: 2},
}

// Lookup returns the currency definition for an ISO 4217 code.
func Lookup(code string) (Currency, bool) {
	c, ok := currencies[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// Supported reports whether the code is a supported currency.
func Supported(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// Decimals returns the minor-unit precision for a currency. Unknown codes use 2.
func Decimals(code string) int32 {
	if c, ok := Lookup(code); ok {
		return c.Decimals
	}
	return 2
}
