package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentStatusProcessing PaymentStatus = "Processing"
	PaymentStatusAuthorized PaymentStatus = "Authorized"
	PaymentStatusPaid       PaymentStatus = "Paid"
	PaymentStatusPending    PaymentStatus = "Pending"
	PaymentStatusFailed     PaymentStatus = "Failed"
	PaymentStatusRefunded   PaymentStatus = "Refunded"
	PaymentStatusVoided     PaymentStatus = "Voided"
	PaymentStatusActive     PaymentStatus = "Active"
	PaymentStatusCancelled  PaymentStatus = "Cancelled"
	PaymentStatusExpired    PaymentStatus = "Expired"
)

type TransactionType string

const (
	TransactionTypeProduct      TransactionType = "product"
	TransactionTypeSubscription TransactionType = "subscription"
)

// PaymentMethodPayPal is recorded on entries paid through the PayPal wallet.
const PaymentMethodPayPal = "PayPal"

// Meta keys written on entries.
const (
	MetaOrderData      = "order_data"
	MetaPendingReason  = "pending_reason"
	MetaSubscriptionID = "subscription_id"
	MetaPlanID         = "plan_id"
)

// Entry is a stored form submission carrying payment state.
type Entry struct {
	ID              snowflake.ID      `json:"id" gorm:"primaryKey"`
	FormID          snowflake.ID      `json:"form_id" gorm:"not null;index"`
	FeedID          *snowflake.ID     `json:"feed_id,omitempty" gorm:"index"`
	PaymentStatus   PaymentStatus     `json:"payment_status" gorm:"size:32"`
	TransactionID   string            `json:"transaction_id" gorm:"size:191;index"`
	TransactionType TransactionType   `json:"transaction_type" gorm:"size:32"`
	PaymentAmount   decimal.Decimal   `json:"payment_amount" gorm:"type:numeric"`
	Currency        string            `json:"currency" gorm:"size:3"`
	PaymentMethod   string            `json:"payment_method" gorm:"size:64"`
	PaymentDate     *time.Time        `json:"payment_date,omitempty"`
	Meta            datatypes.JSONMap `json:"meta"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (Entry) TableName() string { return "entries" }

// MetaString returns a string meta value.
func (e *Entry) MetaString(key string) string {
	if e == nil || e.Meta == nil {
		return ""
	}
	if v, ok := e.Meta[key].(string); ok {
		return v
	}
	return ""
}

// MetaMap returns an object meta value.
func (e *Entry) MetaMap(key string) map[string]any {
	if e == nil || e.Meta == nil {
		return nil
	}
	m, _ := e.Meta[key].(map[string]any)
	return m
}

type Note struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	EntryID   snowflake.ID `json:"entry_id" gorm:"not null;index"`
	Note      string       `json:"note" gorm:"not null"`
	CreatedAt time.Time    `json:"created_at"`
}

func (Note) TableName() string { return "entry_notes" }

// Property is an updatable entry column.
type Property string

const (
	PropertyPaymentStatus   Property = "payment_status"
	PropertyTransactionID   Property = "transaction_id"
	PropertyTransactionType Property = "transaction_type"
	PropertyPaymentAmount   Property = "payment_amount"
	PropertyCurrency        Property = "currency"
	PropertyPaymentMethod   Property = "payment_method"
	PropertyPaymentDate     Property = "payment_date"
)

func (p Property) Valid() bool {
	switch p {
	case PropertyPaymentStatus, PropertyTransactionID, PropertyTransactionType,
		PropertyPaymentAmount, PropertyCurrency, PropertyPaymentMethod, PropertyPaymentDate:
		return true
	default:
		return false
	}
}
