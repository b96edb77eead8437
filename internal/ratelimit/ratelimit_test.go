package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/formpay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	var limiter *CheckoutLimiter
	ctx := context.Background()

	assert.False(t, limiter.Enabled())
	result, err := limiter.Allow(ctx, "submissions", "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	token, ok, err := limiter.LockOrder(ctx, "ORDER-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, token)
	assert.NoError(t, limiter.ReleaseOrder(ctx, "ORDER-1", token))
}

func TestNewRejectsNonPositiveRate(t *testing.T) {
	_, err := New(nil, config.RateLimitConfig{CheckoutRate: 0, CheckoutBurst: 5})
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestUnconfiguredBucket(t *testing.T) {
	var bucket *TokenBucket
	result, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, result.Allowed)
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name       string
		allowed    bool
		tokens     float64
		rate       float64
		wantRemain int
		wantRetry  time.Duration
	}{
		{name: "allowed", allowed: true, tokens: 4.6, rate: 2, wantRemain: 4},
		{name: "empty bucket", allowed: false, tokens: 0, rate: 2, wantRetry: 500 * time.Millisecond},
		{name: "partially refilled", allowed: false, tokens: 0.75, rate: 1, wantRetry: 250 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := evaluate(tc.allowed, tc.tokens, tc.rate, 10)
			assert.Equal(t, tc.allowed, got.Allowed)
			assert.Equal(t, 10, got.Limit)
			assert.Equal(t, tc.wantRemain, got.Remaining)
			assert.Equal(t, tc.wantRetry, got.RetryAfter)
		})
	}
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 10*time.Second, defaultBucketTTL(2, 10))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 1))
}

func TestCastScriptValues(t *testing.T) {
	assert.Equal(t, int64(1), castToInt(int64(1)))
	assert.Equal(t, int64(7), castToInt("7"))
	assert.Equal(t, 2.5, castToFloat("2.5"))
	assert.Equal(t, float64(3), castToFloat(int64(3)))
	assert.Zero(t, castToFloat("nan?"))
}

func TestOrderLockWithoutRedis(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, NewOrderLock(nil, time.Minute))

	var lock *OrderLock
	_, ok, err := lock.Claim(ctx, "ORDER-1")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, ok)
	assert.NoError(t, lock.Free(ctx, "ORDER-1", "token"))
}

func TestOrderLockRejectsEmptyOrder(t *testing.T) {
	lock := NewOrderLock(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), 0)
	require.NotNil(t, lock)
	assert.Equal(t, defaultOrderLockTTL, lock.ttl)

	_, ok, err := lock.Claim(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.False(t, ok)
	assert.NoError(t, lock.Free(context.Background(), "", "token"))
	assert.NoError(t, lock.Free(context.Background(), "ORDER-1", ""))
	assert.Equal(t, "checkout:lock:order:ORDER-1", orderLockKey(" ORDER-1 "))
}
