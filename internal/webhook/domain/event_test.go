package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkedRefund(resourceType string) bool { return resourceType == ResourceRefund }

func TestParseEventKeepsAmountsExact(t *testing.T) {
	event, err := ParseEvent([]byte(`{
		"id": "WH-1",
		"event_type": "payment.capture.completed",
		"resource_type": "CAPTURE",
		"resource": {"id": "CAP-1", "amount": {"value": 10.10}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, EventCaptureCompleted, event.EventType)
	assert.Equal(t, ResourceCapture, event.ResourceType)

	v, ok := event.Resource.Lookup("amount", "value")
	require.True(t, ok)
	assert.Equal(t, json.Number("10.10"), v)
}

func TestParseEventRejectsMalformedBodies(t *testing.T) {
	for _, raw := range []string{``, `[]`, `{"event_type":"X"}`, `{"id":"WH-1"}`, `not json`} {
		_, err := ParseEvent([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalidEvent, raw)
	}
}

func TestTransactionID(t *testing.T) {
	cases := []struct {
		name         string
		resourceType string
		resource     map[string]any
		want         string
	}{
		{
			name:         "capture uses resource id",
			resourceType: ResourceCapture,
			resource:     map[string]any{"id": "CAP-1"},
			want:         "CAP-1",
		},
		{
			name:         "authorization uses resource id",
			resourceType: ResourceAuthorization,
			resource:     map[string]any{"id": "AUTH-1"},
			want:         "AUTH-1",
		},
		{
			name:         "subscription uses resource id",
			resourceType: ResourceSubscription,
			resource:     map[string]any{"id": "I-1"},
			want:         "I-1",
		},
		{
			name:         "refund follows the up link",
			resourceType: ResourceRefund,
			resource: map[string]any{
				"id": "REFUND-1",
				"links": []any{
					map[string]any{"rel": "self", "href": "https://api.paypal.com/v2/payments/refunds/REFUND-1"},
					map[string]any{"rel": "up", "href": "https://api.paypal.com/v2/payments/captures/ABC123"},
				},
			},
			want: "ABC123",
		},
		{
			name:         "refund without up link",
			resourceType: ResourceRefund,
			resource:     map[string]any{"id": "REFUND-1"},
			want:         "",
		},
		{
			name:         "checkout order uses first capture",
			resourceType: ResourceCheckoutOrder,
			resource: map[string]any{
				"id": "ORDER-1",
				"purchase_units": []any{map[string]any{
					"payments": map[string]any{"captures": []any{
						map[string]any{"id": "CAP-A"},
						map[string]any{"id": "CAP-B"},
					}},
				}},
			},
			want: "CAP-A",
		},
		{
			name:         "sale uses billing agreement",
			resourceType: ResourceSale,
			resource:     map[string]any{"id": "SALE-1", "billing_agreement_id": "I-9"},
			want:         "I-9",
		},
		{
			name:         "unknown resource type",
			resourceType: "dispute",
			resource:     map[string]any{"id": "PP-D-1"},
			want:         "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := &Event{ResourceType: tc.resourceType, Resource: tc.resource}
			assert.Equal(t, tc.want, event.TransactionID(linkedRefund))
		})
	}
}

func TestLinkedTypesAreConfigurable(t *testing.T) {
	event := &Event{
		ResourceType: ResourceCapture,
		Resource: map[string]any{
			"id":    "CAP-1",
			"links": []any{map[string]any{"rel": "up", "href": "https://api.paypal.com/v2/checkout/orders/ORDER-1"}},
		},
	}
	assert.Equal(t, "CAP-1", event.TransactionID(linkedRefund))
	assert.Equal(t, "ORDER-1", event.TransactionID(func(string) bool { return true }))
}

func TestCustomID(t *testing.T) {
	direct := &Event{ResourceType: ResourceCapture, Resource: map[string]any{"custom_id": " 42 "}}
	assert.Equal(t, "42", direct.CustomID())

	order := &Event{
		ResourceType: ResourceCheckoutOrder,
		Resource: map[string]any{
			"purchase_units": []any{map[string]any{"custom_id": "77"}},
		},
	}
	assert.Equal(t, "77", order.CustomID())

	none := &Event{ResourceType: ResourceSale, Resource: map[string]any{"id": "SALE-1"}}
	assert.Empty(t, none.CustomID())
}
