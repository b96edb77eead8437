package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/formpay/internal/clock"
	"github.com/smallbiznis/formpay/internal/config"
	entrydomain "github.com/smallbiznis/formpay/internal/entry/domain"
	entryrepo "github.com/smallbiznis/formpay/internal/entry/repository"
	entryservice "github.com/smallbiznis/formpay/internal/entry/service"
	"github.com/smallbiznis/formpay/internal/migration/migrationtest"
	providerdomain "github.com/smallbiznis/formpay/internal/provider/domain"
	"github.com/smallbiznis/formpay/internal/provider/providertest"
	"github.com/smallbiznis/formpay/internal/webhook/domain"
	"github.com/smallbiznis/formpay/internal/webhook/repository"
	"github.com/smallbiznis/formpay/internal/webhook/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type harness struct {
	db      *gorm.DB
	client  *providertest.Client
	entries entrydomain.Store
	engine  domain.Engine
	repo    domain.Repository
}

type harnessOption func(*config.ProviderConfig, *service.Params)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	db := migrationtest.NewDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	entries := entryservice.NewService(entryservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  entryrepo.Provide(),
	})

	cfg := config.DefaultProviderConfig()
	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"
	cfg.WebhookID = "WH-CONFIGURED"
	cfg.WebhookURL = "https://forms.example.com/webhooks/paypal"

	client := providertest.New()
	repo := repository.Provide()
	params := service.Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   clk,
		Client:  client,
		Entries: entries,
		Repo:    repo,
	}
	for _, opt := range opts {
		opt(&cfg, &params)
	}
	params.Config = config.NewStaticProviderConfigHolder(cfg)

	return &harness{
		db:      db,
		client:  client,
		entries: entries,
		engine:  service.NewEngine(params),
		repo:    repo,
	}
}

func (h *harness) seedEntry(t *testing.T, status entrydomain.PaymentStatus, transactionID string) *entrydomain.Entry {
	t.Helper()
	entry := &entrydomain.Entry{
		FormID:        1,
		PaymentStatus: status,
		TransactionID: transactionID,
		PaymentAmount: decimal.RequireFromString("10.00"),
		Currency:      "USD",
		PaymentMethod: entrydomain.PaymentMethodPayPal,
	}
	require.NoError(t, h.entries.SaveEntry(context.Background(), entry))
	return entry
}

func (h *harness) deliver(t *testing.T, event map[string]any) (*domain.Result, error) {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return h.engine.Handle(context.Background(), raw, signedHeaders())
}

func signedHeaders() domain.Headers {
	return domain.Headers{
		TransmissionID:   "b2f9a7c0-0d5a-11ef-8d4f-5f3f1f2b6c1a",
		TransmissionTime: "2024-05-01T12:00:00Z",
		CertURL:          "https://api.sandbox.paypal.com/v1/notifications/certs/CERT-360caa42-fca2a594",
		AuthAlgo:         "SHA256withRSA",
		TransmissionSig:  "c2lnbmF0dXJl",
	}
}

func captureEvent(id, eventType, captureID string) map[string]any {
	return map[string]any{
		"id":               id,
		"event_type":       eventType,
		"resource_type":    "capture",
		"event_version":    "1.0",
		"resource_version": "2.0",
		"resource": map[string]any{
			"id":     captureID,
			"status": "COMPLETED",
			"amount": map[string]any{"currency_code": "USD", "value": "10.00"},
		},
	}
}

func status(t *testing.T, h *harness, id snowflake.ID) entrydomain.PaymentStatus {
	t.Helper()
	entry, err := h.entries.GetEntry(context.Background(), id)
	require.NoError(t, err)
	return entry.PaymentStatus
}

func TestCaptureCompletedIsAppliedOnce(t *testing.T) {
	h := newHarness(t)
	entry := h.seedEntry(t, entrydomain.PaymentStatusAuthorized, "CAP-1")

	first, err := h.deliver(t, captureEvent("WH-EVT-1", domain.EventCaptureCompleted, "CAP-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, first.Outcome)
	assert.Equal(t, http.StatusOK, first.Status)
	require.NotNil(t, first.Action)
	assert.Equal(t, entrydomain.ActionCompletePayment, first.Action.Type)
	assert.True(t, decimal.RequireFromString("10").Equal(first.Action.Amount))
	assert.Equal(t, entrydomain.PaymentStatusPaid, status(t, h, entry.ID))

	// A second event for the same capture finds the entry already paid.
	second, err := h.deliver(t, captureEvent("WH-EVT-2", domain.EventCaptureCompleted, "CAP-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoOp, second.Outcome)
	assert.Equal(t, entry.ID.String(), second.EntryID)

	// Redelivery of the first event short-circuits on the event id.
	third, err := h.deliver(t, captureEvent("WH-EVT-1", domain.EventCaptureCompleted, "CAP-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, third.Outcome)

	notes, err := h.entries.ListNotes(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestCaptureDeniedRequiresPendingOrAuthorized(t *testing.T) {
	h := newHarness(t)
	pending := h.seedEntry(t, entrydomain.PaymentStatusPending, "CAP-P")
	paid := h.seedEntry(t, entrydomain.PaymentStatusPaid, "CAP-Q")

	res, err := h.deliver(t, captureEvent("WH-DENY-1", domain.EventCaptureDenied, "CAP-P"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, res.Outcome)
	assert.Equal(t, entrydomain.PaymentStatusFailed, status(t, h, pending.ID))

	res, err = h.deliver(t, captureEvent("WH-DENY-2", domain.EventCaptureDenied, "CAP-Q"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoOp, res.Outcome)
	assert.Equal(t, entrydomain.PaymentStatusPaid, status(t, h, paid.ID))
}

func TestRefundResolvesEntryThroughUpLink(t *testing.T) {
	h := newHarness(t)
	entry := h.seedEntry(t, entrydomain.PaymentStatusPaid, "ABC123")

	res, err := h.deliver(t, map[string]any{
		"id":            "WH-REFUND-1",
		"event_type":    domain.EventCaptureRefunded,
		"resource_type": "refund",
		"resource": map[string]any{
			"id":     "REFUND-77",
			"status": "COMPLETED",
			"seller_payable_breakdown": map[string]any{
				"total_refunded_amount": map[string]any{"currency_code": "USD", "value": "4.50"},
			},
			"links": []any{
				map[string]any{"rel": "self", "href": "https://api.paypal.com/v2/payments/refunds/REFUND-77"},
				map[string]any{"rel": "up", "href": "https://api.paypal.com/v2/payments/captures/ABC123"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, res.Outcome)
	assert.Equal(t, entry.ID.String(), res.EntryID)
	require.NotNil(t, res.Action)
	assert.Equal(t, entrydomain.ActionRefundPayment, res.Action.Type)
	assert.True(t, decimal.RequireFromString("4.5").Equal(res.Action.Amount))
	assert.Equal(t, entrydomain.PaymentStatusRefunded, status(t, h, entry.ID))
}

func TestCheckoutOrderResolvesFirstCapture(t *testing.T) {
	h := newHarness(t)
	entry := h.seedEntry(t, entrydomain.PaymentStatusPaid, "CAP-ORDER-1")

	res, err := h.deliver(t, map[string]any{
		"id":            "WH-ORDER-1",
		"event_type":    "CHECKOUT.ORDER.COMPLETED",
		"resource_type": "checkout-order",
		"resource": map[string]any{
			"id": "ORDER-1",
			"purchase_units": []any{map[string]any{
				"payments": map[string]any{
					"captures": []any{map[string]any{"id": "CAP-ORDER-1"}},
				},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoOp, res.Outcome)
	assert.Equal(t, entry.ID.String(), res.EntryID)
}

func TestSaleCompletedUsesCustomID(t *testing.T) {
	h := newHarness(t)
	entry := h.seedEntry(t, entrydomain.PaymentStatusActive, "I-SUB-1")

	res, err := h.deliver(t, map[string]any{
		"id":            "WH-SALE-1",
		"event_type":    domain.EventSaleCompleted,
		"resource_type": "sale",
		"resource": map[string]any{
			"id":                   "SALE-9",
			"custom_id":            entry.ID.String(),
			"billing_agreement_id": "I-SUB-1",
			"amount":               map[string]any{"total": "10.00", "currency": "USD"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Action)
	assert.Equal(t, entrydomain.ActionAddSubscriptionPayment, res.Action.Type)
	assert.Equal(t, "I-SUB-1", res.Action.SubscriptionID)
	assert.Equal(t, "SALE-9", res.Action.TransactionID)

	notes, err := h.entries.ListNotes(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Note, "Subscription has been paid.")
	assert.Contains(t, notes[0].Note, "Subscription Id: I-SUB-1, Transaction Id: SALE-9")
}

func TestExpiredEventIsIgnoredForExpiredEntry(t *testing.T) {
	h := newHarness(t)
	active := h.seedEntry(t, entrydomain.PaymentStatusActive, "I-EXP-1")
	expired := h.seedEntry(t, entrydomain.PaymentStatusExpired, "I-EXP-2")

	subscriptionEvent := func(id, subscriptionID string) map[string]any {
		return map[string]any{
			"id":            id,
			"event_type":    domain.EventSubscriptionExpired,
			"resource_type": "subscription",
			"resource":      map[string]any{"id": subscriptionID, "status": "EXPIRED"},
		}
	}

	res, err := h.deliver(t, subscriptionEvent("WH-EXP-1", "I-EXP-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, res.Outcome)
	assert.Equal(t, entrydomain.PaymentStatusExpired, status(t, h, active.ID))

	res, err = h.deliver(t, subscriptionEvent("WH-EXP-2", "I-EXP-2"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoOp, res.Outcome)

	notes, err := h.entries.ListNotes(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestUnresolvedEntryUsesConfiguredStatus(t *testing.T) {
	h := newHarness(t, func(cfg *config.ProviderConfig, _ *service.Params) {
		cfg.UnresolvedEntryStatus = http.StatusAccepted
	})

	res, err := h.deliver(t, captureEvent("WH-LOST-1", domain.EventCaptureCompleted, "CAP-UNKNOWN"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnresolved, res.Outcome)
	assert.Equal(t, http.StatusAccepted, res.Status)
	assert.Equal(t, "Entry for transaction id: CAP-UNKNOWN was not found. Webhook cannot be processed.", res.Message)

	// Not marked processed, so a redelivery is looked up again.
	res, err = h.deliver(t, captureEvent("WH-LOST-1", domain.EventCaptureCompleted, "CAP-UNKNOWN"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnresolved, res.Outcome)
}

func TestUnresolvedEntryMessageNamesLookupID(t *testing.T) {
	h := newHarness(t)

	res, err := h.deliver(t, map[string]any{
		"id":            "WH-LOST-2",
		"event_type":    domain.EventSubscriptionCancelled,
		"resource_type": "subscription",
		"resource":      map[string]any{"id": "I-UNKNOWN", "status": "CANCELLED"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnresolved, res.Outcome)
	assert.Equal(t, "Entry for subscription id: I-UNKNOWN was not found. Webhook cannot be processed.", res.Message)

	res, err = h.deliver(t, map[string]any{
		"id":            "WH-LOST-3",
		"event_type":    domain.EventCaptureCompleted,
		"resource_type": "capture",
		"resource":      map[string]any{"status": "COMPLETED"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnresolved, res.Outcome)
	assert.Equal(t, "Entry for transaction id: WH-LOST-3 was not found. Webhook cannot be processed.", res.Message)
}

func TestUnknownEventTypeIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.seedEntry(t, entrydomain.PaymentStatusPaid, "CAP-X")

	res, err := h.deliver(t, captureEvent("WH-UNKNOWN-1", "PAYMENT.CAPTURE.REVERSED", "CAP-X"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoOp, res.Outcome)
}

func TestActionFilterCanDropAction(t *testing.T) {
	var seen []string
	h := newHarness(t, func(_ *config.ProviderConfig, p *service.Params) {
		p.Filter = func(action *entrydomain.Action, event *domain.Event) *entrydomain.Action {
			seen = append(seen, event.ID)
			return nil
		}
	})
	entry := h.seedEntry(t, entrydomain.PaymentStatusAuthorized, "CAP-F")

	res, err := h.deliver(t, captureEvent("WH-FILTER-1", domain.EventCaptureCompleted, "CAP-F"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoOp, res.Outcome)
	assert.Equal(t, []string{"WH-FILTER-1"}, seen)
	assert.Equal(t, entrydomain.PaymentStatusAuthorized, status(t, h, entry.ID))
}

func TestVerification(t *testing.T) {
	t.Run("missing headers", func(t *testing.T) {
		h := newHarness(t)
		raw, _ := json.Marshal(captureEvent("WH-1", domain.EventCaptureCompleted, "CAP-1"))

		_, err := h.engine.Handle(context.Background(), raw, domain.Headers{TransmissionID: "only"})
		var handleErr *domain.HandleError
		require.ErrorAs(t, err, &handleErr)
		assert.Equal(t, http.StatusBadRequest, handleErr.Status)
		assert.ErrorIs(t, err, domain.ErrMissingHeaders)
		assert.Zero(t, h.client.Count("VerifyWebhookSignature"))
	})

	t.Run("signature rejected", func(t *testing.T) {
		h := newHarness(t)
		h.client.Respond("VerifyWebhookSignature", providerdomain.Payload{"verification_status": providerdomain.VerificationFailure})
		entry := h.seedEntry(t, entrydomain.PaymentStatusAuthorized, "CAP-1")

		_, err := h.deliver(t, captureEvent("WH-1", domain.EventCaptureCompleted, "CAP-1"))
		var handleErr *domain.HandleError
		require.ErrorAs(t, err, &handleErr)
		assert.Equal(t, "Webhook verification failed.", handleErr.Message)
		assert.Equal(t, entrydomain.PaymentStatusAuthorized, status(t, h, entry.ID))
	})

	t.Run("transport error", func(t *testing.T) {
		h := newHarness(t)
		h.client.Fail("VerifyWebhookSignature", &providerdomain.APIError{Code: http.StatusServiceUnavailable, Message: "unavailable"})

		_, err := h.deliver(t, captureEvent("WH-1", domain.EventCaptureCompleted, "CAP-1"))
		var handleErr *domain.HandleError
		require.ErrorAs(t, err, &handleErr)
		assert.Equal(t, http.StatusInternalServerError, handleErr.Status)
		assert.Equal(t, "Cannot verify the webhook signature.", handleErr.Message)
	})

	t.Run("uses configured webhook id", func(t *testing.T) {
		h := newHarness(t)
		h.seedEntry(t, entrydomain.PaymentStatusPaid, "CAP-1")

		_, err := h.deliver(t, captureEvent("WH-1", domain.EventCaptureCompleted, "CAP-1"))
		require.NoError(t, err)
		calls := h.client.Calls("VerifyWebhookSignature")
		require.Len(t, calls, 1)
		assert.Equal(t, "WH-CONFIGURED", calls[0].Body["webhook_id"])
	})
}

func TestRegisterReplacesPreviousWebhook(t *testing.T) {
	h := newHarness(t, func(cfg *config.ProviderConfig, _ *service.Params) {
		cfg.WebhookID = ""
	})
	ctx := context.Background()

	first, err := h.engine.Register(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://forms.example.com/webhooks/paypal", first.URL)
	assert.Zero(t, h.client.Count("DeleteWebhook"))

	h.client.Fail("DeleteWebhook", &providerdomain.APIError{Code: http.StatusNotFound, Message: "not found"})
	second, err := h.engine.Register(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.WebhookID, second.WebhookID)

	deletes := h.client.Calls("DeleteWebhook")
	require.Len(t, deletes, 1)
	assert.Equal(t, first.WebhookID, deletes[0].ID)

	latest, err := h.repo.LatestRegistration(ctx, h.db)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.WebhookID, latest.WebhookID)

	// Without a configured id, deliveries verify against the registration.
	h.seedEntry(t, entrydomain.PaymentStatusPaid, "CAP-1")
	_, err = h.deliver(t, captureEvent("WH-1", domain.EventCaptureCompleted, "CAP-1"))
	require.NoError(t, err)
	calls := h.client.Calls("VerifyWebhookSignature")
	require.Len(t, calls, 1)
	assert.Equal(t, second.WebhookID, calls[0].Body["webhook_id"])
}

func TestRegisterRequiresURL(t *testing.T) {
	h := newHarness(t, func(cfg *config.ProviderConfig, _ *service.Params) {
		cfg.WebhookURL = ""
	})

	_, err := h.engine.Register(context.Background())
	assert.True(t, errors.Is(err, domain.ErrWebhookURLRequired))
}
