package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAPIKeyMatchesHash(t *testing.T) {
	key := &APIKey{KeyHash: HashAPIKey("fp_admin_1_abcd")}

	assert.True(t, key.MatchesHash("fp_admin_1_abcd"))
	assert.False(t, key.MatchesHash("fp_admin_1_abce"))
	assert.False(t, (*APIKey)(nil).MatchesHash("fp_admin_1_abcd"))
	assert.Len(t, key.KeyHash, 64)
}

func TestAPIKeyUsable(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Minute)
	later := now.Add(time.Hour)

	assert.True(t, (&APIKey{IsActive: true}).Usable(now))
	assert.True(t, (&APIKey{IsActive: true, ExpiresAt: &later}).Usable(now))
	assert.False(t, (&APIKey{IsActive: true, ExpiresAt: &expired}).Usable(now))
	assert.False(t, (&APIKey{IsActive: false}).Usable(now))
	assert.False(t, (*APIKey)(nil).Usable(now))
}
