package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyCheckoutOrder    = "checkout:lock:order:%s"
	defaultOrderLockTTL = 30 * time.Second
)

const orderLockFreeScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// OrderLock lets one submission at a time work on a provider order. A claim
// expires after its ttl so a crashed submission cannot hold the order.
type OrderLock struct {
	client redis.UniversalClient
	free   *redis.Script
	ttl    time.Duration
}

func NewOrderLock(client redis.UniversalClient, ttl time.Duration) *OrderLock {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultOrderLockTTL
	}
	return &OrderLock{
		client: client,
		free:   redis.NewScript(orderLockFreeScript),
		ttl:    ttl,
	}
}

func orderLockKey(orderID string) string {
	return fmt.Sprintf(keyCheckoutOrder, strings.TrimSpace(orderID))
}

// Claim takes orderID. The returned token is needed to free it; ok is false
// while another submission holds the order.
func (l *OrderLock) Claim(ctx context.Context, orderID string) (token string, ok bool, err error) {
	if l == nil || l.client == nil {
		return "", false, ErrNotConfigured
	}
	if strings.TrimSpace(orderID) == "" {
		return "", false, ErrEmptyKey
	}

	token = uuid.NewString()
	ok, err = l.client.SetNX(ctx, orderLockKey(orderID), token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Free drops the claim on orderID if token still owns it. An expired claim
// taken over by a later submission is left alone.
func (l *OrderLock) Free(ctx context.Context, orderID, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if strings.TrimSpace(orderID) == "" || token == "" {
		return nil
	}
	return l.free.Run(ctx, l.client, []string{orderLockKey(orderID)}, token).Err()
}
