package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("event_type", "PAYMENT.CAPTURE.COMPLETED"),
		attribute.String("entry_id", "42"),
		attribute.String("outcome", OutcomeApplied),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("event_type"), attrs[0].Key)
	assert.Equal(t, attribute.Key("outcome"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordWebhookEvent(ctx, "PAYMENT.CAPTURE.COMPLETED", OutcomeApplied)
	m.RecordPaymentOperation(ctx, "capture", OutcomeSucceeded)
	m.RecordProvisioning(ctx, "plan", OutcomeFailed)
	m.RecordRateLimitAllowed(ctx, "/checkout/orders")
	m.RecordRateLimitDenied(ctx, "/checkout/orders", "exhausted")
}

func TestNewOnNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordWebhookEvent(context.Background(), "BILLING.SUBSCRIPTION.EXPIRED", OutcomeNoOp)
}
