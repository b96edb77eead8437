package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	entrydomain "github.com/smallbiznis/formpay/internal/entry/domain"
	"gorm.io/gorm"
)

var (
	ErrInvalidEvent            = errors.New("invalid_webhook_event")
	ErrMissingHeaders          = errors.New("missing_webhook_headers")
	ErrVerificationUnavailable = errors.New("webhook_verification_unavailable")
	ErrVerificationFailed      = errors.New("webhook_verification_failed")
	ErrWebhookURLRequired      = errors.New("webhook_url_required")
	ErrWebhookNotRegistered    = errors.New("webhook_not_registered")
)

// Messages surfaced to the provider in the response body.
const (
	MessageMissingHeaders          = "Missing webhook signature headers."
	MessageVerificationUnavailable = "Cannot verify the webhook signature."
	MessageVerificationFailed      = "Webhook verification failed."
	MessageEntryNotFound           = "Entry for %s id: %s was not found. Webhook cannot be processed."
)

// Outcome describes what happened to a delivery.
type Outcome string

const (
	// OutcomeApplied means an action was persisted on the entry.
	OutcomeApplied Outcome = "applied"
	// OutcomeNoOp covers unknown event types, status guards and filtered actions.
	OutcomeNoOp Outcome = "noop"
	// OutcomeDuplicate is a redelivery of an event already processed.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeUnresolved means no entry matched the event.
	OutcomeUnresolved Outcome = "unresolved"
)

// Result is the response the HTTP layer renders for a delivery.
type Result struct {
	Outcome   Outcome             `json:"outcome"`
	Status    int                 `json:"-"`
	Message   string              `json:"message,omitempty"`
	EventID   string              `json:"event_id"`
	EventType string              `json:"event_type"`
	EntryID   string              `json:"entry_id,omitempty"`
	Action    *entrydomain.Action `json:"action,omitempty"`
}

// ActionFilter may rewrite the action derived from an event. Returning nil
// drops it.
type ActionFilter func(action *entrydomain.Action, event *Event) *entrydomain.Action

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, record *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, eventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, entryID *snowflake.ID, outcome string, processedAt time.Time) error
	UpdateOutcome(ctx context.Context, db *gorm.DB, id snowflake.ID, entryID *snowflake.ID, outcome string) error

	InsertRegistration(ctx context.Context, db *gorm.DB, registration *Registration) error
	LatestRegistration(ctx context.Context, db *gorm.DB) (*Registration, error)
}

// Engine verifies deliveries and reconciles them against stored entries.
type Engine interface {
	// Handle processes one delivery. Verification failures are returned as
	// *HandleError carrying the response status and message.
	Handle(ctx context.Context, raw []byte, headers Headers) (*Result, error)
	// Register replaces the provider webhook with one for the configured URL.
	Register(ctx context.Context) (*Registration, error)
}
