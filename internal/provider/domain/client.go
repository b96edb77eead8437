package domain

import "context"

type PatchOp string

const (
	PatchAdd     PatchOp = "add"
	PatchReplace PatchOp = "replace"
	PatchRemove  PatchOp = "remove"
)

// PatchOperation is one JSON Patch operation. Path is the field name; the
// client expands it to the resource-specific path.
type PatchOperation struct {
	Op    PatchOp `json:"op"`
	Path  string  `json:"path"`
	Value any     `json:"value,omitempty"`
}

// Verification statuses returned by the signature check.
const (
	VerificationSuccess = "SUCCESS"
	VerificationFailure = "FAILURE"
)

// Statuses shared by orders, authorizations, captures and refunds.
const (
	StatusCompleted = "COMPLETED"
	StatusPending   = "PENDING"
)

// VerifySignatureRequest carries the transmission headers of a webhook
// delivery together with the configured webhook id and the raw event.
type VerifySignatureRequest struct {
	TransmissionID   string
	TransmissionTime string
	CertURL          string
	AuthAlgo         string
	TransmissionSig  string
	WebhookID        string
	Event            []byte
}

// Client issues authenticated requests to the payment processor. Every call
// is a blocking round-trip; failures are returned as *APIError.
type Client interface {
	CreateOrder(ctx context.Context, body map[string]any) (Payload, error)
	GetOrder(ctx context.Context, orderID string) (Payload, error)
	UpdateOrder(ctx context.Context, orderID string, ops []PatchOperation) error
	AuthorizeOrder(ctx context.Context, orderID string) (Payload, error)
	CaptureOrder(ctx context.Context, orderID string) (Payload, error)
	CaptureAuthorization(ctx context.Context, authorizationID string) (Payload, error)
	RefundCapture(ctx context.Context, captureID string) (Payload, error)

	CreateProduct(ctx context.Context, body map[string]any) (Payload, error)
	GetProduct(ctx context.Context, productID string) (Payload, error)
	CreatePlan(ctx context.Context, body map[string]any) (Payload, error)
	CreateSubscription(ctx context.Context, body map[string]any) (Payload, error)
	GetSubscription(ctx context.Context, subscriptionID string) (Payload, error)
	ActivateSubscription(ctx context.Context, subscriptionID, reason string) error
	UpdateSubscription(ctx context.Context, subscriptionID string, ops []PatchOperation) error

	VerifyWebhookSignature(ctx context.Context, req VerifySignatureRequest) (Payload, error)
	CreateWebhook(ctx context.Context, url string) (Payload, error)
	DeleteWebhook(ctx context.Context, webhookID string) error

	GenerateClientToken(ctx context.Context) (Payload, error)
}
