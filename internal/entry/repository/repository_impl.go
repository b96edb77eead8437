package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formpay/internal/entry/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	meta := entry.Meta
	if meta == nil {
		meta = datatypes.JSONMap{}
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO entries (
			id, form_id, feed_id, payment_status, transaction_id, transaction_type,
			payment_amount, currency, payment_method, payment_date, meta,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.FormID,
		entry.FeedID,
		string(entry.PaymentStatus),
		entry.TransactionID,
		string(entry.TransactionType),
		entry.PaymentAmount,
		entry.Currency,
		entry.PaymentMethod,
		entry.PaymentDate,
		meta,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Entry, error) {
	var item domain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT id, form_id, feed_id, payment_status, transaction_id, transaction_type,
			payment_amount, currency, payment_method, payment_date, meta,
			created_at, updated_at
		 FROM entries
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindIDByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (snowflake.ID, error) {
	var id snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id
		 FROM entries
		 WHERE transaction_id = ?
		 ORDER BY id DESC
		 LIMIT 1`,
		transactionID,
	).Scan(&id).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) UpdateProperty(ctx context.Context, db *gorm.DB, id snowflake.ID, property domain.Property, value any) error {
	if !property.Valid() {
		return domain.ErrInvalidProperty
	}
	switch v := value.(type) {
	case domain.PaymentStatus:
		value = string(v)
	case domain.TransactionType:
		value = string(v)
	}
	return db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE entries SET %s = ?, updated_at = ? WHERE id = ?`, string(property)),
		value,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) UpdateMeta(ctx context.Context, db *gorm.DB, id snowflake.ID, key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrInvalidProperty
	}

	var row struct {
		Meta datatypes.JSONMap
	}
	if err := db.WithContext(ctx).Raw(`SELECT meta FROM entries WHERE id = ?`, id).Scan(&row).Error; err != nil {
		return err
	}
	meta := row.Meta
	if meta == nil {
		meta = datatypes.JSONMap{}
	}
	if value == nil {
		delete(meta, key)
	} else {
		meta[key] = value
	}

	return db.WithContext(ctx).Exec(
		`UPDATE entries SET meta = ?, updated_at = ? WHERE id = ?`,
		meta,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) InsertNote(ctx context.Context, db *gorm.DB, note *domain.Note) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO entry_notes (id, entry_id, note, created_at) VALUES (?, ?, ?, ?)`,
		note.ID,
		note.EntryID,
		note.Note,
		note.CreatedAt,
	).Error
}

func (r *repo) ListNotes(ctx context.Context, db *gorm.DB, entryID snowflake.ID) ([]domain.Note, error) {
	var items []domain.Note
	err := db.WithContext(ctx).Raw(
		`SELECT id, entry_id, note, created_at
		 FROM entry_notes
		 WHERE entry_id = ?
		 ORDER BY created_at ASC, id ASC`,
		entryID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
