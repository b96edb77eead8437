package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrFeedInactive     = errors.New("feed_inactive")
	ErrNotSubscription  = errors.New("feed_not_subscription")
	ErrInvalidOrderBody = errors.New("invalid_order_body")
)

// Context tells intent selection where a payment is being set up.
type Context string

const (
	// ContextCreateOrder is the payment button creating its order before the
	// form is submitted. Subscription feeds still create a capture order here.
	ContextCreateOrder Context = "create_order"
	ContextSubmission  Context = "submission"
)

type CreateOrderRequest struct {
	FeedID  snowflake.ID   `json:"feed_id"`
	Details map[string]any `json:"data"`
}

type PrepareSubscriptionRequest struct {
	FeedID     snowflake.ID `json:"feed_id"`
	Currency   string       `json:"currency"`
	Submission Submission   `json:"submission"`
}

type SubmissionRequest struct {
	FeedID         snowflake.ID `json:"feed_id"`
	FormID         snowflake.ID `json:"form_id"`
	Currency       string       `json:"currency"`
	OrderID        string       `json:"order_id,omitempty"`
	SubscriptionID string       `json:"subscription_id,omitempty"`
	CardType       string       `json:"card_type,omitempty"`
	Submission     Submission   `json:"submission"`
}

// SubmissionResult reports the payment outcome of one submission. EntryID is
// empty when validation failed before the entry was saved.
type SubmissionResult struct {
	EntryID        string `json:"entry_id,omitempty"`
	IsSuccess      bool   `json:"is_success"`
	Intent         string `json:"intent"`
	TransactionID  string `json:"transaction_id,omitempty"`
	PaymentStatus  string `json:"payment_status,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	ApproveURL     string `json:"approve_url,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

type Service interface {
	// CreateOrder creates the order the payment button approves.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error)
	// PrepareSubscription provisions product and plan and returns the
	// subscription body the payment button creates.
	PrepareSubscription(ctx context.Context, req PrepareSubscriptionRequest) (map[string]any, error)
	// ProcessSubmission authorizes, saves and settles a submitted payment.
	ProcessSubmission(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error)
}
