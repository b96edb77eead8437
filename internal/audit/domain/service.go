package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Actor types stored on audit records.
const (
	ActorTypeAPIKey = "api_key"
	ActorTypeSystem = "system"
)

// Target types of administrative actions.
const (
	TargetEntry   = "entry"
	TargetFeed    = "feed"
	TargetWebhook = "webhook"
	TargetAPIKey  = "api_key"
)

// AuditLog is one administrative action.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorType  string            `json:"actor_type" gorm:"size:32;not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"size:64"`
	Action     string            `json:"action" gorm:"size:64;not null;index"`
	TargetType string            `json:"target_type" gorm:"size:32;not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"size:64;index"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress  *string           `json:"ip_address,omitempty" gorm:"size:64"`
	UserAgent  *string           `json:"user_agent,omitempty" gorm:"size:512"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Record describes an action to store. Empty actor fields are filled from
// the request context.
type Record struct {
	ActorType  string
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
	IPAddress  string
	UserAgent  string
}

type ListRequest struct {
	Action     string
	TargetType string
	TargetID   string
	// Before pages backwards from an id returned by a previous call.
	Before snowflake.ID
	Limit  int
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	Before     snowflake.ID
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}

type Service interface {
	Record(ctx context.Context, record Record) error
	List(ctx context.Context, req ListRequest) ([]AuditLog, error)
}

var (
	ErrInvalidAction = errors.New("invalid_audit_action")
	ErrInvalidLimit  = errors.New("invalid_audit_limit")
)
