package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	checkoutdomain "github.com/smallbiznis/formpay/internal/checkout/domain"
	entrydomain "github.com/smallbiznis/formpay/internal/entry/domain"
)

var (
	ErrMissingOrderID       = errors.New("missing_order_id")
	ErrAmountMismatch       = errors.New("order_amount_mismatch")
	ErrInvalidAmount        = errors.New("invalid_order_amount")
	ErrNotCompleted         = errors.New("order_not_completed")
	ErrMissingTransactionID = errors.New("missing_transaction_id")
)

// Messages surfaced to the payer or the administrator.
const (
	MessageMissingOrderID     = "No order ID available, cannot create a new payment."
	MessageOrderNotFound      = "Cannot find order ID %s. It no longer exists."
	MessageAmountMismatch     = "The order total from PayPal does not match the payment amount of the submission."
	MessageAuthorizeFailed    = "Failed to authorize the payment."
	MessageAuthorizeStatus    = "Cannot authorize the payment. The order status: %s."
	MessageTagOrderFailed     = "Cannot add entry ID to the custom id in the order."
	MessageCaptureFailed      = "Cannot capture the payment."
	MessageCaptureStatus      = "Cannot capture the payment. The order status: %s."
	MessagePendingReason      = " Reason code: %s."
	MessageInvalidTotal       = "The payment total must be greater than 0."
	MessageAdminCaptureFailed = "Cannot capture payment. If the error persists, please contact us for further assistance."
	MessageAdminRefundFailed  = "Cannot refund payment. If the error persists, please contact us for further assistance."
	NoteRefundPending         = "Refund request is pending"
	NoteRefundFailed          = "Refund request failed"
)

// Intent is how a one-time payment is settled.
type Intent string

const (
	IntentCapture      Intent = "capture"
	IntentAuthorize    Intent = "authorize"
	IntentSubscription Intent = "subscription"
)

// Upper is the intent as the provider expects it in an order body.
func (i Intent) Upper() string {
	return strings.ToUpper(string(i))
}

// Error carries a message that can be shown as-is, with the cause kept for
// logs.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

type AuthorizeRequest struct {
	Intent     Intent
	OrderID    string
	Currency   string
	Submission checkoutdomain.Submission
}

type AuthorizeResult struct {
	IsAuthorized  bool   `json:"is_authorized"`
	TransactionID string `json:"transaction_id,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

type CaptureRequest struct {
	Intent  Intent
	OrderID string
	Entry   *entrydomain.Entry
	// CardType names the card brand when the payer used a card field.
	CardType string
}

// CaptureResult is the outcome of a capture. PaymentStatus is empty when no
// capture was attempted and Pending when the provider holds the funds.
type CaptureResult struct {
	IsSuccess     bool   `json:"is_success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Amount        string `json:"amount,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

type CreateOrderRequest struct {
	Intent Intent
	// Details is the order body posted by the payment button, without the
	// intent.
	Details map[string]any
}

type Engine interface {
	// Authorize checks the client-created order against the submission and
	// authorizes it when the intent asks for it.
	Authorize(ctx context.Context, req AuthorizeRequest) AuthorizeResult
	// Capture tags the order with the entry id and captures it. Authorize-only
	// orders are cached on the entry instead.
	Capture(ctx context.Context, req CaptureRequest) CaptureResult
	// Settle records the authorize and capture outcome on the entry.
	Settle(ctx context.Context, entryID snowflake.ID, auth AuthorizeResult, captured CaptureResult) error
	// CompleteAuthorization records an authorized or pending payment from the
	// order data cached on the entry.
	CompleteAuthorization(ctx context.Context, entryID snowflake.ID, transactionID string) error
	// CreateOrder creates an order for the payment button and returns its id.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error)
	// CaptureAuthorized captures a previously authorized entry.
	CaptureAuthorized(ctx context.Context, entryID snowflake.ID) error
	// Refund refunds the captured payment of an entry.
	Refund(ctx context.Context, entryID snowflake.ID) error
}
