package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestAndActorRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithActor(ctx, ActorTypeAPIKey, "key_123")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	kind, id := ActorFromContext(ctx)
	assert.Equal(t, ActorTypeAPIKey, kind)
	assert.Equal(t, "key_123", id)
}

func TestEmptyValuesLeaveContextUntouched(t *testing.T) {
	base := context.Background()
	assert.Equal(t, base, WithRequestID(base, ""))
	assert.Equal(t, base, WithActor(base, "", ""))

	kind, id := ActorFromContext(base)
	assert.Empty(t, kind)
	assert.Empty(t, id)
}
