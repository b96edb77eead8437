package domain

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/formpay/pkg/money"
)

// Money is an amount in a currency. The value is kept as a decimal and
// always serialized as a string.
type Money struct {
	CurrencyCode string          `json:"currency_code" validate:"required,len=3,iso4217"`
	Value        decimal.Decimal `json:"value"`
}

func NewMoney(currencyCode string, value decimal.Decimal) *Money {
	return &Money{CurrencyCode: strings.ToUpper(strings.TrimSpace(currencyCode)), Value: value}
}

func (m *Money) Hydrate(data map[string]any) error {
	if code, ok := readString(data, "currency_code"); ok {
		m.CurrencyCode = strings.ToUpper(strings.TrimSpace(code))
	}
	if raw, ok := readString(data, "value"); ok {
		value, err := money.Parse(raw, m.CurrencyCode)
		if err != nil {
			return invalidField("money", "value", "must be a decimal amount")
		}
		m.Value = value
	}
	return nil
}

func (m *Money) Serialize() map[string]any {
	if m == nil {
		return nil
	}
	out := map[string]any{}
	putString(out, "currency_code", m.CurrencyCode)
	out["value"] = money.Format(m.Value, m.CurrencyCode)
	return out
}

func (m *Money) Validate() error {
	return validateStruct("money", m)
}

// String renders the value with the currency precision.
func (m *Money) String() string {
	if m == nil {
		return ""
	}
	return money.Format(m.Value, m.CurrencyCode)
}

func validateMoney(sl validator.StructLevel) {
	m := sl.Current().Interface().(Money)
	if m.Value.IsNegative() {
		sl.ReportError(m.Value, "value", "Value", "non_negative", "")
	}
}

func hydrateMoney(resource string, data map[string]any, key string) (*Money, error) {
	raw, ok := readMap(data, key)
	if !ok {
		return nil, nil
	}
	m := &Money{}
	if err := m.Hydrate(raw); err != nil {
		return nil, nested(resource, key, err)
	}
	return m, nil
}
