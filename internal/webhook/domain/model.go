package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord is one verified webhook delivery.
type EventRecord struct {
	ID           snowflake.ID   `json:"id" gorm:"primaryKey"`
	EventID      string         `json:"event_id" gorm:"size:191;not null;uniqueIndex"`
	EventType    string         `json:"event_type" gorm:"size:128;not null"`
	ResourceType string         `json:"resource_type" gorm:"size:64"`
	EntryID      *snowflake.ID  `json:"entry_id,omitempty" gorm:"index"`
	Outcome      string         `json:"outcome" gorm:"size:32"`
	Payload      datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt   time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt  *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "webhook_events" }

// Registration is a webhook created at the provider for this installation.
type Registration struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	WebhookID string       `json:"webhook_id" gorm:"size:64;not null"`
	URL       string       `json:"url" gorm:"size:2000;not null"`
	CreatedAt time.Time    `json:"created_at"`
}

func (Registration) TableName() string { return "webhook_registrations" }
