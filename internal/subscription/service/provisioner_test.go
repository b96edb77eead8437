package service_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	checkoutdomain "github.com/smallbiznis/formpay/internal/checkout/domain"
	"github.com/smallbiznis/formpay/internal/clock"
	entrydomain "github.com/smallbiznis/formpay/internal/entry/domain"
	feeddomain "github.com/smallbiznis/formpay/internal/feed/domain"
	feedrepository "github.com/smallbiznis/formpay/internal/feed/repository"
	feedservice "github.com/smallbiznis/formpay/internal/feed/service"
	"github.com/smallbiznis/formpay/internal/migration/migrationtest"
	providerdomain "github.com/smallbiznis/formpay/internal/provider/domain"
	"github.com/smallbiznis/formpay/internal/provider/paypal"
	"github.com/smallbiznis/formpay/internal/provider/providertest"
	"github.com/smallbiznis/formpay/internal/subscription/domain"
	"github.com/smallbiznis/formpay/internal/subscription/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type harness struct {
	provisioner domain.Provisioner
	client      *providertest.Client
	feeds       feeddomain.Store
	feed        *feeddomain.Feed
}

func newHarness(t *testing.T, meta map[string]any) *harness {
	t.Helper()
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)

	feeds := feedservice.NewService(feedservice.Params{
		DB:    migrationtest.NewDB(t),
		Log:   log,
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)),
		Repo:  feedrepository.Provide(),
	})
	feed := &feeddomain.Feed{FormID: 3, IsActive: true, Meta: meta}
	require.NoError(t, feeds.SaveFeed(context.Background(), feed))

	client := providertest.New()
	return &harness{
		provisioner: service.NewProvisioner(service.Params{Log: log, Client: client, Feeds: feeds}),
		client:      client,
		feeds:       feeds,
		feed:        feed,
	}
}

func monthlyMeta() map[string]any {
	return map[string]any{
		feeddomain.MetaFeedName:           "Gold membership",
		feeddomain.MetaTransactionType:    feeddomain.TransactionTypeSubscription,
		feeddomain.MetaRecurringAmount:    "2",
		feeddomain.MetaSubscriptionType:   "service",
		feeddomain.MetaBillingCycleUnit:   "month",
		feeddomain.MetaBillingCycleLength: "1",
	}
}

// request reloads the feed so cached ids come from storage.
func (h *harness) request(t *testing.T, currency string) domain.Request {
	t.Helper()
	feed, err := h.feeds.GetFeed(context.Background(), h.feed.ID)
	require.NoError(t, err)
	return domain.Request{
		Feed:  feed,
		Entry: &entrydomain.Entry{ID: 1001, FormID: 3, Currency: currency},
		Submission: checkoutdomain.Submission{
			PaymentAmount: "9.99",
			LineItems: []checkoutdomain.LineItem{
				{ID: "2", Name: "Gold", Description: "Monthly access", UnitPrice: "9.99", Quantity: 1},
			},
		},
	}
}

func TestInitializeReusesPlanAcrossCalls(t *testing.T) {
	h := newHarness(t, monthlyMeta())
	ctx := context.Background()

	first, err := h.provisioner.Initialize(ctx, h.request(t, "USD"))
	require.NoError(t, err)
	second, err := h.provisioner.Initialize(ctx, h.request(t, "USD"))
	require.NoError(t, err)

	assert.Equal(t, 1, h.client.Count("CreateProduct"))
	assert.Equal(t, 1, h.client.Count("CreatePlan"))
	assert.Equal(t, 2, h.client.Count("CreateSubscription"))
	assert.Equal(t, first.Plan.ID, second.Plan.ID)
	assert.Equal(t, first.Product.ID, second.Product.ID)

	feed, err := h.feeds.GetFeed(ctx, h.feed.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Plan.ID, feed.MetaString(feeddomain.MetaPlanID))
	assert.Equal(t, "USD", feed.MetaString(feeddomain.MetaPlanCurrency))
	assert.Equal(t, first.Product.ID, feed.MetaString(feeddomain.MetaProductID))

	body := h.client.Calls("CreateSubscription")[0].Body
	assert.Equal(t, first.Plan.ID, body["plan_id"])
	assert.Equal(t, "1001", body["custom_id"])

	product := h.client.Calls("CreateProduct")[0].Body
	assert.Equal(t, "Gold", product["name"])
	assert.Equal(t, "SERVICE", product["type"])
}

func TestInitializeRecreatesPlanWhenCurrencyChanges(t *testing.T) {
	h := newHarness(t, monthlyMeta())
	ctx := context.Background()

	usd, err := h.provisioner.Initialize(ctx, h.request(t, "USD"))
	require.NoError(t, err)
	eur, err := h.provisioner.Initialize(ctx, h.request(t, "EUR"))
	require.NoError(t, err)

	assert.Equal(t, 1, h.client.Count("CreateProduct"))
	assert.Equal(t, 2, h.client.Count("CreatePlan"))
	assert.NotEqual(t, usd.Plan.ID, eur.Plan.ID)
	assert.Equal(t, "EUR", eur.Plan.Currency())

	feed, err := h.feeds.GetFeed(ctx, h.feed.ID)
	require.NoError(t, err)
	assert.Equal(t, eur.Plan.ID, feed.MetaString(feeddomain.MetaPlanID))
	assert.Equal(t, "EUR", feed.MetaString(feeddomain.MetaPlanCurrency))
}

func TestPrepareAddsTrialCycleFirst(t *testing.T) {
	meta := monthlyMeta()
	meta[feeddomain.MetaTrialEnabled] = "1"
	meta[feeddomain.MetaTrialPeriodUnit] = "day"
	meta[feeddomain.MetaTrialPeriodLength] = "7"
	h := newHarness(t, meta)

	req := h.request(t, "USD")
	req.Submission.Trial = "1.5"
	prov, err := h.provisioner.Prepare(context.Background(), req)
	require.NoError(t, err)

	cycles := h.client.Calls("CreatePlan")[0].Body["billing_cycles"].([]any)
	require.Len(t, cycles, 2)
	trial := cycles[0].(map[string]any)
	regular := cycles[1].(map[string]any)
	assert.Equal(t, "TRIAL", trial["tenure_type"])
	assert.Equal(t, 1, trial["sequence"])
	assert.Equal(t, "1.50", trial["pricing_scheme"].(map[string]any)["fixed_price"].(map[string]any)["value"])
	assert.Equal(t, "REGULAR", regular["tenure_type"])
	assert.Equal(t, 2, regular["sequence"])

	require.NotNil(t, prov.Plan.TrialCycle())
	assert.Equal(t, 7, prov.Plan.TrialCycle().Frequency.IntervalCount)
	assert.Zero(t, h.client.Count("CreateSubscription"))
}

func TestPrepareRejectsCreditCard(t *testing.T) {
	h := newHarness(t, monthlyMeta())
	req := h.request(t, "USD")
	req.Submission.PaymentMethod = "credit card"

	_, err := h.provisioner.Prepare(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrUnsupportedPaymentMethod)

	var provErr *domain.ProvisionError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, domain.StepSubscription, provErr.Step)
	assert.Empty(t, h.client.Calls(""))
}

func TestPrepareRequiresRecurringAmount(t *testing.T) {
	h := newHarness(t, monthlyMeta())
	req := h.request(t, "USD")
	req.Submission.PaymentAmount = ""

	_, err := h.provisioner.Prepare(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrMissingRecurringAmount)
	assert.Zero(t, h.client.Count("CreatePlan"))
}

func TestInitializeActivatesPreapprovedSubscription(t *testing.T) {
	meta := monthlyMeta()
	meta[feeddomain.MetaProductID] = "PROD-CACHED"
	meta[feeddomain.MetaPlanID] = "P-CACHED"
	meta[feeddomain.MetaPlanCurrency] = "USD"
	h := newHarness(t, meta)
	req := h.request(t, "USD")
	req.SubscriptionID = "I-PREAPPROVED"

	prov, err := h.provisioner.Initialize(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, h.client.Count("CreateSubscription"))
	assert.Zero(t, h.client.Count("CreateProduct"))
	assert.Zero(t, h.client.Count("GetProduct"))
	assert.Zero(t, h.client.Count("CreatePlan"))
	activations := h.client.Calls("ActivateSubscription")
	require.Len(t, activations, 1)
	assert.Equal(t, "I-PREAPPROVED", activations[0].ID)
	assert.Equal(t, "I-PREAPPROVED", prov.Subscription.ID)
	assert.Equal(t, "ACTIVE", string(prov.Subscription.Status))
	assert.Equal(t, "P-CACHED", prov.Plan.ID)
	assert.Equal(t, "PROD-CACHED", prov.Product.ID)
	assert.Equal(t, "USD", prov.Plan.Currency())
}

func TestSubmitActivationTakesPlanFromProvider(t *testing.T) {
	h := newHarness(t, monthlyMeta())
	h.client.Respond("GetSubscription", providerdomain.Payload{
		"id":      "I-PREAPPROVED",
		"plan_id": "P-REMOTE",
		"status":  "ACTIVE",
	})
	req := h.request(t, "USD")
	req.SubscriptionID = "I-PREAPPROVED"

	result := h.provisioner.Submit(context.Background(), req)
	require.True(t, result.IsSuccess, result.ErrorMessage)
	assert.Equal(t, "I-PREAPPROVED", result.SubscriptionID)
	assert.Equal(t, "P-REMOTE", result.PlanID)
	assert.Equal(t, "ACTIVE", result.Status)
	assert.Equal(t, "9.99", result.Amount)
	assert.Zero(t, h.client.Count("CreatePlan"))
}

func TestInitializeActivationFailureStopsBeforeFetch(t *testing.T) {
	h := newHarness(t, monthlyMeta())
	h.client.Fail("ActivateSubscription", &providerdomain.APIError{Code: http.StatusUnprocessableEntity, Message: "Unprocessable"})
	req := h.request(t, "USD")
	req.SubscriptionID = "I-PREAPPROVED"

	_, err := h.provisioner.Initialize(context.Background(), req)
	var provErr *domain.ProvisionError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, domain.StepSubscription, provErr.Step)
	assert.Zero(t, h.client.Count("GetSubscription"))
}

func billingMeta(noShipping string) map[string]any {
	meta := monthlyMeta()
	meta[feeddomain.MetaBillingFirstName] = "1.3"
	meta[feeddomain.MetaBillingLastName] = "1.6"
	meta[feeddomain.MetaBillingEmail] = "2"
	meta[feeddomain.MetaNoShipping] = noShipping
	return meta
}

func TestInitializeBuildsSubscriberAndShipping(t *testing.T) {
	cases := []struct {
		name       string
		noShipping string
		want       string
	}{
		{name: "shipping collected", noShipping: "0", want: "GET_FROM_FILE"},
		{name: "shipping disabled", noShipping: "1", want: "NO_SHIPPING"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, billingMeta(tc.noShipping))
			req := h.request(t, "USD")
			req.Submission.Fields = map[string]string{
				"1.3": "Ada",
				"1.6": "Lovelace",
				"2":   "ada@example.com",
			}

			_, err := h.provisioner.Initialize(context.Background(), req)
			require.NoError(t, err)

			calls := h.client.Calls("CreateSubscription")
			require.Len(t, calls, 1)
			body := calls[0].Body
			assert.Equal(t, "1001", body["custom_id"])

			subscriber, ok := body["subscriber"].(map[string]any)
			require.True(t, ok)
			name, ok := subscriber["name"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "Ada", name["given_name"])
			assert.Equal(t, "Lovelace", name["surname"])
			assert.Equal(t, "ada@example.com", subscriber["email_address"])

			appCtx, ok := body["application_context"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tc.want, appCtx["shipping_preference"])
		})
	}
}

func TestInitializeOmitsEmptySubscriber(t *testing.T) {
	h := newHarness(t, billingMeta("1"))

	_, err := h.provisioner.Initialize(context.Background(), h.request(t, "USD"))
	require.NoError(t, err)

	body := h.client.Calls("CreateSubscription")[0].Body
	assert.NotContains(t, body, "subscriber")
}

func TestSubmitReportsResult(t *testing.T) {
	h := newHarness(t, monthlyMeta())

	result := h.provisioner.Submit(context.Background(), h.request(t, "USD"))
	require.True(t, result.IsSuccess, result.ErrorMessage)
	assert.NotEmpty(t, result.SubscriptionID)
	assert.NotEmpty(t, result.PlanID)
	assert.Equal(t, "9.99", result.Amount)
	assert.Equal(t, "APPROVAL_PENDING", result.Status)
	assert.Contains(t, result.ApproveURL, "ba_token=")
}

func TestSubmitReportsProviderFailure(t *testing.T) {
	h := newHarness(t, monthlyMeta())
	h.client.Fail("CreatePlan", &providerdomain.APIError{
		Code:    http.StatusUnprocessableEntity,
		Message: "Unprocessable",
		DebugID: "dbg-7",
		Details: []providerdomain.ErrorDetail{{Issue: "CURRENCY_NOT_SUPPORTED"}},
	})

	result := h.provisioner.Submit(context.Background(), h.request(t, "USD"))
	assert.False(t, result.IsSuccess)
	assert.Equal(t, paypal.GenericErrorMessage+" PayPal Debug ID: dbg-7", result.ErrorMessage)

	feed, err := h.feeds.GetFeed(context.Background(), h.feed.ID)
	require.NoError(t, err)
	assert.Empty(t, feed.MetaString(feeddomain.MetaPlanID))
}

func TestErrorResultMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: domain.UnknownErrorMessage},
		{
			name: "credit card",
			err:  &domain.ProvisionError{Step: domain.StepSubscription, Err: domain.ErrUnsupportedPaymentMethod},
			want: "Credit card payments are not supported for subscriptions.",
		},
		{
			name: "postal code",
			err: &providerdomain.APIError{
				Code:    http.StatusUnprocessableEntity,
				Details: []providerdomain.ErrorDetail{{Issue: "POSTAL_CODE_REQUIRED"}},
			},
			want: paypal.PostalCodeRequiredMessage,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := service.ErrorResult(tc.err)
			assert.False(t, result.IsSuccess)
			assert.Equal(t, tc.want, result.ErrorMessage)
		})
	}
}

func TestTagEntry(t *testing.T) {
	h := newHarness(t, monthlyMeta())
	ctx := context.Background()

	require.NoError(t, h.provisioner.TagEntry(ctx, "I-77", "1001"))
	calls := h.client.Calls("UpdateSubscription")
	require.Len(t, calls, 1)
	assert.Equal(t, "I-77", calls[0].ID)
	assert.Equal(t, []providerdomain.PatchOperation{
		{Op: providerdomain.PatchReplace, Path: "custom_id", Value: "1001"},
	}, calls[0].Ops)

	assert.ErrorIs(t, h.provisioner.TagEntry(ctx, " ", "1001"), domain.ErrMissingSubscriptionID)
}
