package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrEntryNotFound   = errors.New("entry_not_found")
	ErrEntryExists     = errors.New("entry_exists")
	ErrInvalidProperty = errors.New("invalid_entry_property")
	ErrUnknownAction   = errors.New("unknown_entry_action")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Entry, error)
	FindIDByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (snowflake.ID, error)
	UpdateProperty(ctx context.Context, db *gorm.DB, id snowflake.ID, property Property, value any) error
	UpdateMeta(ctx context.Context, db *gorm.DB, id snowflake.ID, key string, value any) error
	InsertNote(ctx context.Context, db *gorm.DB, note *Note) error
	ListNotes(ctx context.Context, db *gorm.DB, entryID snowflake.ID) ([]Note, error)
}

// Store is the entry persistence contract used by the payment engines.
type Store interface {
	SaveEntry(ctx context.Context, entry *Entry) error
	GetEntry(ctx context.Context, id snowflake.ID) (*Entry, error)
	GetEntryIDByTransactionID(ctx context.Context, transactionID string) (snowflake.ID, error)
	UpdateProperty(ctx context.Context, id snowflake.ID, property Property, value any) error
	UpdateMeta(ctx context.Context, id snowflake.ID, key string, value any) error
	AddNote(ctx context.Context, id snowflake.ID, text string) error
	ListNotes(ctx context.Context, id snowflake.ID) ([]Note, error)

	// Apply persists a normalized action as a status transition plus a note.
	Apply(ctx context.Context, action Action) error
}
