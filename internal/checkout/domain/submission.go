package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/formpay/pkg/money"
)

// PaymentMethodCreditCard is the card field option. Subscriptions only
// accept the PayPal wallet.
const PaymentMethodCreditCard = "Credit Card"

// LineItem is one priced field of a submission.
type LineItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

// Submission is the payment relevant part of a form submission.
type Submission struct {
	PaymentAmount string            `json:"payment_amount"`
	Trial         string            `json:"trial,omitempty"`
	SetupFee      string            `json:"setup_fee,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	LineItems     []LineItem        `json:"line_items,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// Amount parses the submission total in the given currency. A blank total
// is zero.
func (s Submission) Amount(currency string) (decimal.Decimal, error) {
	if strings.TrimSpace(s.PaymentAmount) == "" {
		return decimal.Zero, nil
	}
	value, err := money.Parse(s.PaymentAmount, currency)
	if err != nil {
		return decimal.Zero, err
	}
	return money.Round(value, currency), nil
}

// Field returns a trimmed field value, "" when the field id is blank.
func (s Submission) Field(id string) string {
	if id == "" || s.Fields == nil {
		return ""
	}
	return strings.TrimSpace(s.Fields[id])
}

// LineItem returns the line item with the given id.
func (s Submission) LineItem(id string) (LineItem, bool) {
	for _, item := range s.LineItems {
		if item.ID == id {
			return item, true
		}
	}
	return LineItem{}, false
}

func (s Submission) IsCreditCard() bool {
	return strings.EqualFold(strings.TrimSpace(s.PaymentMethod), PaymentMethodCreditCard)
}
