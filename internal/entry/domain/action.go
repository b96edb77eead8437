package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type ActionType string

const (
	ActionCompleteAuthorization   ActionType = "complete_authorization"
	ActionCompletePayment         ActionType = "complete_payment"
	ActionAddPendingPayment       ActionType = "add_pending_payment"
	ActionFailPayment             ActionType = "fail_payment"
	ActionRefundPayment           ActionType = "refund_payment"
	ActionVoidAuthorization       ActionType = "void_authorization"
	ActionCreateSubscription      ActionType = "create_subscription"
	ActionAddSubscriptionPayment  ActionType = "add_subscription_payment"
	ActionFailSubscriptionPayment ActionType = "fail_subscription_payment"
	ActionCancelSubscription      ActionType = "cancel_subscription"
	ActionExpireSubscription      ActionType = "expire_subscription"
)

// Action is a normalized payment state transition for one entry.
type Action struct {
	Type           ActionType      `json:"type"`
	EntryID        snowflake.ID    `json:"entry_id"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	SubscriptionID string          `json:"subscription_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency,omitempty"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	// Note replaces the default note text when set.
	Note string `json:"note,omitempty"`
	// Reason is appended to pending and failure notes.
	Reason string `json:"reason,omitempty"`
}
