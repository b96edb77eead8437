package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formpay/internal/webhook/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, record *domain.EventRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO webhook_events (
			id, event_id, event_type, resource_type, entry_id, outcome,
			payload, received_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`,
		record.ID,
		record.EventID,
		record.EventType,
		record.ResourceType,
		record.EntryID,
		record.Outcome,
		record.Payload,
		record.ReceivedAt,
		record.ProcessedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, eventID string) (*domain.EventRecord, error) {
	var item domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, event_type, resource_type, entry_id, outcome,
			payload, received_at, processed_at
		 FROM webhook_events
		 WHERE event_id = ?
		 LIMIT 1`,
		eventID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, entryID *snowflake.ID, outcome string, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_events
		 SET entry_id = ?, outcome = ?, processed_at = ?
		 WHERE id = ?`,
		entryID,
		outcome,
		processedAt,
		id,
	).Error
}

func (r *repo) UpdateOutcome(ctx context.Context, db *gorm.DB, id snowflake.ID, entryID *snowflake.ID, outcome string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_events
		 SET entry_id = ?, outcome = ?
		 WHERE id = ?`,
		entryID,
		outcome,
		id,
	).Error
}

func (r *repo) InsertRegistration(ctx context.Context, db *gorm.DB, registration *domain.Registration) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO webhook_registrations (id, webhook_id, url, created_at)
		 VALUES (?, ?, ?, ?)`,
		registration.ID,
		registration.WebhookID,
		registration.URL,
		registration.CreatedAt,
	).Error
}

func (r *repo) LatestRegistration(ctx context.Context, db *gorm.DB) (*domain.Registration, error) {
	var item domain.Registration
	err := db.WithContext(ctx).Raw(
		`SELECT id, webhook_id, url, created_at
		 FROM webhook_registrations
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
