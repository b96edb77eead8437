package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/formpay/internal/checkout/domain"
	"github.com/smallbiznis/formpay/internal/checkout/service"
	"github.com/smallbiznis/formpay/internal/clock"
	entrydomain "github.com/smallbiznis/formpay/internal/entry/domain"
	entryrepository "github.com/smallbiznis/formpay/internal/entry/repository"
	entryservice "github.com/smallbiznis/formpay/internal/entry/service"
	feeddomain "github.com/smallbiznis/formpay/internal/feed/domain"
	feedrepository "github.com/smallbiznis/formpay/internal/feed/repository"
	feedservice "github.com/smallbiznis/formpay/internal/feed/service"
	"github.com/smallbiznis/formpay/internal/migration/migrationtest"
	orderdomain "github.com/smallbiznis/formpay/internal/order/domain"
	orderservice "github.com/smallbiznis/formpay/internal/order/service"
	providerdomain "github.com/smallbiznis/formpay/internal/provider/domain"
	"github.com/smallbiznis/formpay/internal/provider/providertest"
	subscriptionservice "github.com/smallbiznis/formpay/internal/subscription/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type harness struct {
	checkout domain.Service
	client   *providertest.Client
	feeds    feeddomain.Store
	entries  entrydomain.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	node, err := snowflake.NewNode(6)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	db := migrationtest.NewDB(t)
	clk := clock.NewFakeClock(time.Date(2024, 9, 2, 14, 0, 0, 0, time.UTC))

	feeds := feedservice.NewService(feedservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: feedrepository.Provide(),
	})
	entries := entryservice.NewService(entryservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: entryrepository.Provide(),
	})
	client := providertest.New()

	return &harness{
		checkout: service.NewService(service.Params{
			Log:           log,
			Feeds:         feeds,
			Entries:       entries,
			Orders:        orderservice.NewEngine(orderservice.Params{Log: log, Client: client, Entries: entries}),
			Subscriptions: subscriptionservice.NewProvisioner(subscriptionservice.Params{Log: log, Client: client, Feeds: feeds}),
		}),
		client:  client,
		feeds:   feeds,
		entries: entries,
	}
}

func (h *harness) feed(t *testing.T, active bool, meta map[string]any) *feeddomain.Feed {
	t.Helper()
	feed := &feeddomain.Feed{FormID: 12, IsActive: active, Meta: meta}
	require.NoError(t, h.feeds.SaveFeed(context.Background(), feed))
	return feed
}

func (h *harness) entry(t *testing.T, id string) *entrydomain.Entry {
	t.Helper()
	entryID, err := snowflake.ParseString(id)
	require.NoError(t, err)
	entry, err := h.entries.GetEntry(context.Background(), entryID)
	require.NoError(t, err)
	return entry
}

// approvedOrder scripts the order lookup with the given total.
func (h *harness) approvedOrder(total string) {
	h.client.Respond("GetOrder", providerdomain.Payload{
		"id":     "ORDER-1",
		"status": "APPROVED",
		"purchase_units": []any{map[string]any{
			"amount": map[string]any{"currency_code": "USD", "value": total},
		}},
	})
}

func orderDetails(total string) map[string]any {
	return map[string]any{
		"purchase_units": []any{map[string]any{
			"amount": map[string]any{"currency_code": "USD", "value": total},
		}},
	}
}

func subscriptionMeta() map[string]any {
	return map[string]any{
		feeddomain.MetaFeedName:           "Silver plan",
		feeddomain.MetaTransactionType:    feeddomain.TransactionTypeSubscription,
		feeddomain.MetaRecurringAmount:    "5",
		feeddomain.MetaSubscriptionType:   "service",
		feeddomain.MetaBillingCycleUnit:   "month",
		feeddomain.MetaBillingCycleLength: "1",
	}
}

func silverSubmission() domain.Submission {
	return domain.Submission{
		PaymentAmount: "4.50",
		LineItems: []domain.LineItem{
			{ID: "5", Name: "Silver", UnitPrice: "4.50", Quantity: 1},
		},
	}
}

func TestSelectIntent(t *testing.T) {
	cases := []struct {
		name  string
		meta  map[string]any
		phase domain.Context
		want  orderdomain.Intent
	}{
		{"product submission", map[string]any{}, domain.ContextSubmission, orderdomain.IntentCapture},
		{"subscription submission", subscriptionMeta(), domain.ContextSubmission, orderdomain.IntentSubscription},
		{"subscription order button", subscriptionMeta(), domain.ContextCreateOrder, orderdomain.IntentCapture},
		{"authorize only", map[string]any{feeddomain.MetaAuthorizeOnly: "1"}, domain.ContextCreateOrder, orderdomain.IntentAuthorize},
		{
			"authorize only wins over subscription",
			map[string]any{
				feeddomain.MetaAuthorizeOnly:   "1",
				feeddomain.MetaTransactionType: feeddomain.TransactionTypeSubscription,
			},
			domain.ContextSubmission,
			orderdomain.IntentAuthorize,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			feed := &feeddomain.Feed{Meta: tc.meta}
			assert.Equal(t, tc.want, service.SelectIntent(feed, tc.phase))
		})
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("subscription feed still captures", func(t *testing.T) {
		h := newHarness(t)
		feed := h.feed(t, true, subscriptionMeta())

		id, err := h.checkout.CreateOrder(ctx, domain.CreateOrderRequest{FeedID: feed.ID, Details: orderDetails("4.50")})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, "CAPTURE", h.client.Calls("CreateOrder")[0].Body["intent"])
	})

	t.Run("authorize only", func(t *testing.T) {
		h := newHarness(t)
		feed := h.feed(t, true, map[string]any{feeddomain.MetaAuthorizeOnly: "1"})

		_, err := h.checkout.CreateOrder(ctx, domain.CreateOrderRequest{FeedID: feed.ID, Details: orderDetails("20")})
		require.NoError(t, err)
		assert.Equal(t, "AUTHORIZE", h.client.Calls("CreateOrder")[0].Body["intent"])
	})

	t.Run("inactive feed", func(t *testing.T) {
		h := newHarness(t)
		feed := h.feed(t, false, map[string]any{})

		_, err := h.checkout.CreateOrder(ctx, domain.CreateOrderRequest{FeedID: feed.ID, Details: orderDetails("20")})
		assert.ErrorIs(t, err, domain.ErrFeedInactive)
		assert.Zero(t, h.client.Count(""))
	})

	t.Run("empty body", func(t *testing.T) {
		h := newHarness(t)
		feed := h.feed(t, true, map[string]any{})

		_, err := h.checkout.CreateOrder(ctx, domain.CreateOrderRequest{FeedID: feed.ID})
		assert.ErrorIs(t, err, domain.ErrInvalidOrderBody)
	})
}

func TestProcessSubmissionCapturesOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	feed := h.feed(t, true, map[string]any{})
	h.approvedOrder("10.00")

	result, err := h.checkout.ProcessSubmission(ctx, domain.SubmissionRequest{
		FeedID:     feed.ID,
		Currency:   "USD",
		OrderID:    "ORDER-1",
		Submission: domain.Submission{PaymentAmount: "10"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsSuccess)
	assert.Equal(t, string(orderdomain.IntentCapture), result.Intent)
	assert.Equal(t, string(entrydomain.PaymentStatusPaid), result.PaymentStatus)
	assert.Contains(t, result.TransactionID, "CAPTURE-")

	entry := h.entry(t, result.EntryID)
	assert.Equal(t, entrydomain.PaymentStatusPaid, entry.PaymentStatus)
	assert.Equal(t, result.TransactionID, entry.TransactionID)
	assert.Equal(t, feed.FormID, entry.FormID)
	require.NotNil(t, entry.FeedID)
	assert.Equal(t, feed.ID, *entry.FeedID)

	tag := h.client.Calls("UpdateOrder")[0].Ops[0]
	assert.Equal(t, "custom_id", tag.Path)
	assert.Equal(t, result.EntryID, tag.Value)
}

func TestProcessSubmissionAmountMismatchSavesNothing(t *testing.T) {
	h := newHarness(t)
	feed := h.feed(t, true, map[string]any{})
	h.approvedOrder("5.00")

	result, err := h.checkout.ProcessSubmission(context.Background(), domain.SubmissionRequest{
		FeedID:     feed.ID,
		Currency:   "USD",
		OrderID:    "ORDER-1",
		Submission: domain.Submission{PaymentAmount: "10"},
	})
	require.NoError(t, err)
	assert.False(t, result.IsSuccess)
	assert.Empty(t, result.EntryID)
	assert.Equal(t, orderdomain.MessageAmountMismatch, result.ErrorMessage)
	assert.Zero(t, h.client.Count("CaptureOrder"))
}

func TestProcessSubmissionZeroTotalWithoutOrder(t *testing.T) {
	h := newHarness(t)
	feed := h.feed(t, true, map[string]any{})

	result, err := h.checkout.ProcessSubmission(context.Background(), domain.SubmissionRequest{
		FeedID:   feed.ID,
		Currency: "USD",
	})
	require.NoError(t, err)
	assert.True(t, result.IsSuccess)
	assert.Zero(t, h.client.Count(""))

	assert.Equal(t, string(entrydomain.PaymentStatusPaid), result.PaymentStatus)

	entry := h.entry(t, result.EntryID)
	assert.Equal(t, entrydomain.PaymentStatusPaid, entry.PaymentStatus)
	assert.Empty(t, entry.TransactionID)
	assert.True(t, entry.PaymentAmount.IsZero())

	notes, err := h.entries.ListNotes(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "No payment was required for this submission.", notes[0].Note)
}

func TestProcessSubmissionAuthorizeOnly(t *testing.T) {
	h := newHarness(t)
	feed := h.feed(t, true, map[string]any{feeddomain.MetaAuthorizeOnly: "1"})
	h.approvedOrder("25.00")

	result, err := h.checkout.ProcessSubmission(context.Background(), domain.SubmissionRequest{
		FeedID:     feed.ID,
		Currency:   "USD",
		OrderID:    "ORDER-1",
		Submission: domain.Submission{PaymentAmount: "25"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsSuccess)
	assert.Equal(t, string(entrydomain.PaymentStatusAuthorized), result.PaymentStatus)
	assert.Contains(t, result.TransactionID, "AUTH-")
	assert.Zero(t, h.client.Count("CaptureOrder"))

	entry := h.entry(t, result.EntryID)
	assert.Equal(t, entrydomain.PaymentStatusAuthorized, entry.PaymentStatus)
	assert.NotEmpty(t, entry.MetaMap(entrydomain.MetaOrderData))
}

func TestProcessSubmissionCaptureDeclined(t *testing.T) {
	h := newHarness(t)
	feed := h.feed(t, true, map[string]any{})
	h.approvedOrder("10.00")
	h.client.Respond("CaptureOrder", providerdomain.Payload{"id": "ORDER-1", "status": "DECLINED"})

	result, err := h.checkout.ProcessSubmission(context.Background(), domain.SubmissionRequest{
		FeedID:     feed.ID,
		Currency:   "USD",
		OrderID:    "ORDER-1",
		Submission: domain.Submission{PaymentAmount: "10.00"},
	})
	require.NoError(t, err)
	assert.False(t, result.IsSuccess)
	assert.Contains(t, result.ErrorMessage, "DECLINED")
	assert.Equal(t, entrydomain.PaymentStatusFailed, h.entry(t, result.EntryID).PaymentStatus)
}

func TestProcessSubmissionSubscription(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	feed := h.feed(t, true, subscriptionMeta())

	result, err := h.checkout.ProcessSubmission(ctx, domain.SubmissionRequest{
		FeedID:     feed.ID,
		Currency:   "USD",
		Submission: silverSubmission(),
	})
	require.NoError(t, err)
	require.True(t, result.IsSuccess, result.ErrorMessage)
	assert.Equal(t, string(orderdomain.IntentSubscription), result.Intent)
	assert.NotEmpty(t, result.ApproveURL)

	entry := h.entry(t, result.EntryID)
	assert.Equal(t, entrydomain.PaymentStatusActive, entry.PaymentStatus)
	assert.Equal(t, entrydomain.TransactionTypeSubscription, entry.TransactionType)
	assert.Equal(t, result.SubscriptionID, entry.TransactionID)
	assert.Equal(t, result.SubscriptionID, entry.MetaString(entrydomain.MetaSubscriptionID))
	assert.NotEmpty(t, entry.MetaString(entrydomain.MetaPlanID))
	assert.True(t, decimal.RequireFromString("4.50").Equal(entry.PaymentAmount))

	tag := h.client.Calls("UpdateSubscription")
	require.Len(t, tag, 1)
	assert.Equal(t, result.SubscriptionID, tag[0].ID)
	assert.Equal(t, result.EntryID, tag[0].Ops[0].Value)
}

func TestProcessSubmissionSubscriptionRejectsCard(t *testing.T) {
	h := newHarness(t)
	feed := h.feed(t, true, subscriptionMeta())
	submission := silverSubmission()
	submission.PaymentMethod = domain.PaymentMethodCreditCard

	result, err := h.checkout.ProcessSubmission(context.Background(), domain.SubmissionRequest{
		FeedID:     feed.ID,
		Currency:   "USD",
		Submission: submission,
	})
	require.NoError(t, err)
	assert.False(t, result.IsSuccess)
	assert.Empty(t, result.EntryID)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestPrepareSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("returns create body", func(t *testing.T) {
		h := newHarness(t)
		feed := h.feed(t, true, subscriptionMeta())

		body, err := h.checkout.PrepareSubscription(ctx, domain.PrepareSubscriptionRequest{
			FeedID:     feed.ID,
			Currency:   "USD",
			Submission: silverSubmission(),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, body["plan_id"])
		assert.NotContains(t, body, "id")
		assert.Zero(t, h.client.Count("CreateSubscription"))
	})

	t.Run("product feed", func(t *testing.T) {
		h := newHarness(t)
		feed := h.feed(t, true, map[string]any{})

		_, err := h.checkout.PrepareSubscription(ctx, domain.PrepareSubscriptionRequest{FeedID: feed.ID, Currency: "USD"})
		assert.ErrorIs(t, err, domain.ErrNotSubscription)
	})
}
