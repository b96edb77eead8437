package domain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/snowflake"
)

// APIKey is a hashed credential for the administrative endpoints. Role is
// the casbin subject the key acts as.
type APIKey struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	KeyID            string       `gorm:"column:key_id;size:64;not null;uniqueIndex"`
	Name             string       `gorm:"size:255;not null"`
	Role             string       `gorm:"size:64;not null"`
	KeyHash          string       `gorm:"column:key_hash;size:64;not null;uniqueIndex"`
	IsActive         bool         `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time    `gorm:"not null"`
	UpdatedAt        time.Time    `gorm:"not null"`
	LastUsedAt       *time.Time   `gorm:"column:last_used_at"`
	ExpiresAt        *time.Time   `gorm:"column:expires_at"`
	RotatedFromKeyID *string      `gorm:"column:rotated_from_key_id;size:64"`
}

func (APIKey) TableName() string { return "api_keys" }

// Usable reports whether the key may authenticate at now.
func (k *APIKey) Usable(now time.Time) bool {
	if k == nil || !k.IsActive {
		return false
	}
	return k.ExpiresAt == nil || now.Before(*k.ExpiresAt)
}

// HashAPIKey is the stored form of a plain key. Lookups go through the hash so
// the plain key never reaches the database.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// MatchesHash compares raw against the stored hash in constant time.
func (k *APIKey) MatchesHash(raw string) bool {
	if k == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(k.KeyHash), []byte(HashAPIKey(raw))) == 1
}
