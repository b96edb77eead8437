package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formpay/internal/feed/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, feed *domain.Feed) error {
	meta := feed.Meta
	if meta == nil {
		meta = datatypes.JSONMap{}
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO feeds (id, form_id, addon_slug, is_active, meta, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		feed.ID,
		feed.FormID,
		feed.AddonSlug,
		feed.IsActive,
		meta,
		feed.CreatedAt,
		feed.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Feed, error) {
	var item domain.Feed
	err := db.WithContext(ctx).Raw(
		`SELECT id, form_id, addon_slug, is_active, meta, created_at, updated_at
		 FROM feeds
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

func (r *repo) UpdateMeta(ctx context.Context, db *gorm.DB, id snowflake.ID, meta datatypes.JSONMap, updatedAt time.Time) error {
	if meta == nil {
		meta = datatypes.JSONMap{}
	}
	return db.WithContext(ctx).Exec(
		`UPDATE feeds SET meta = ?, updated_at = ? WHERE id = ?`,
		meta,
		updatedAt,
		id,
	).Error
}
