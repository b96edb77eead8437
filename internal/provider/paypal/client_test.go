package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/formpay/internal/config"
	"github.com/smallbiznis/formpay/internal/provider/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorded struct {
	method string
	path   string
	body   []byte
	auth   string
	prefer string
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recorded, *int32) {
	t.Helper()
	var calls []recorded
	var tokenCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			atomic.AddInt32(&tokenCalls, 1)
			user, pass, ok := r.BasicAuth()
			if !ok || user != "client" || pass != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{
			method: r.Method,
			path:   r.URL.Path,
			body:   body,
			auth:   r.Header.Get("Authorization"),
			prefer: r.Header.Get("Prefer"),
		})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &tokenCalls
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	cfg := config.DefaultProviderConfig()
	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"
	cfg.RequestTimeout = 5 * time.Second
	return NewClient(config.NewStaticProviderConfigHolder(cfg), zaptest.NewLogger(t), WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestCreateOrderSendsBearerTokenAndKeepsDebugID(t *testing.T) {
	srv, calls, tokenCalls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Paypal-Debug-Id", "dbg-1")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"5O190127TN364715T","status":"CREATED"}`)
	})
	client := newTestClient(t, srv)

	payload, err := client.CreateOrder(context.Background(), map[string]any{"intent": "CAPTURE"})
	require.NoError(t, err)
	assert.Equal(t, "5O190127TN364715T", payload.String("id"))
	assert.Equal(t, "dbg-1", payload.DebugID())

	_, err = client.GetOrder(context.Background(), "5O190127TN364715T")
	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr), "GET answered 201 must be rejected")
	assert.Equal(t, http.StatusCreated, apiErr.Code)

	require.Len(t, *calls, 2)
	first := (*calls)[0]
	assert.Equal(t, http.MethodPost, first.method)
	assert.Equal(t, "/v2/checkout/orders", first.path)
	assert.Equal(t, "Bearer access-1", first.auth)
	assert.Equal(t, "return=representation", first.prefer)
	assert.JSONEq(t, `{"intent":"CAPTURE"}`, string(first.body))
	assert.Equal(t, int32(1), atomic.LoadInt32(tokenCalls))
}

func TestErrorResponseBecomesAPIError(t *testing.T) {
	srv, _, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Paypal-Debug-Id", "f00ba4")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"name":"UNPROCESSABLE_ENTITY","message":"The requested action could not be performed.","details":[{"field":"/address/admin_area_2","issue":"CITY_REQUIRED","description":"City is required."}]}`)
	})
	client := newTestClient(t, srv)

	_, err := client.CreateSubscription(context.Background(), map[string]any{"plan_id": "P-1"})
	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Code)
	assert.Equal(t, "f00ba4", apiErr.DebugID)
	assert.True(t, apiErr.HasIssue("CITY_REQUIRED"))
	assert.Equal(t, "The requested action could not be performed.; PayPal Debug ID: f00ba4", err.Error())
	assert.Equal(t, CityRequiredMessage, UserMessage(err))
}

func TestPatchPathsAreExpandedPerResource(t *testing.T) {
	srv, calls, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, srv)

	require.NoError(t, client.UpdateOrder(context.Background(), "ORDER-1", []domain.PatchOperation{
		{Op: domain.PatchAdd, Path: "custom_id", Value: "42"},
	}))
	require.NoError(t, client.UpdateSubscription(context.Background(), "I-SUB", []domain.PatchOperation{
		{Op: domain.PatchReplace, Path: "custom_id", Value: "42"},
	}))
	require.NoError(t, client.ActivateSubscription(context.Background(), "I-SUB", ""))

	require.Len(t, *calls, 3)
	var orderOps, subOps []map[string]any
	require.NoError(t, json.Unmarshal((*calls)[0].body, &orderOps))
	require.NoError(t, json.Unmarshal((*calls)[1].body, &subOps))
	assert.Equal(t, "/purchase_units/@reference_id=='default'/custom_id", orderOps[0]["path"])
	assert.Equal(t, "/custom_id", subOps[0]["path"])
	assert.Equal(t, http.MethodPatch, (*calls)[1].method)
	assert.Equal(t, "/v1/billing/subscriptions/I-SUB/activate", (*calls)[2].path)
	assert.Empty(t, (*calls)[2].body)
}

func TestVerifyWebhookSignatureEmbedsRawEvent(t *testing.T) {
	srv, calls, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"verification_status":"SUCCESS"}`)
	})
	client := newTestClient(t, srv)

	event := []byte(`{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED"}`)
	payload, err := client.VerifyWebhookSignature(context.Background(), domain.VerifySignatureRequest{
		TransmissionID:   "tid",
		TransmissionTime: "2026-01-01T00:00:00Z",
		CertURL:          "https://api.paypal.com/cert",
		AuthAlgo:         "SHA256withRSA",
		TransmissionSig:  "sig",
		WebhookID:        "WH-CONFIGURED",
		Event:            event,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationSuccess, payload.String("verification_status"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal((*calls)[0].body, &sent))
	assert.Equal(t, "WH-CONFIGURED", sent["webhook_id"])
	assert.Equal(t, "WH-1", sent["webhook_event"].(map[string]any)["id"])

	_, err = client.VerifyWebhookSignature(context.Background(), domain.VerifySignatureRequest{Event: []byte("not json")})
	assert.ErrorIs(t, err, ErrInvalidEventBody)
}

func TestGenerateClientTokenIsMemoized(t *testing.T) {
	srv, calls, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"client_token":"ct-1","expires_in":3600}`)
	})
	client := newTestClient(t, srv)

	first, err := client.GenerateClientToken(context.Background())
	require.NoError(t, err)
	second, err := client.GenerateClientToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ct-1", first.String("client_token"))
	assert.Equal(t, first.String("client_token"), second.String("client_token"))
	assert.Len(t, *calls, 1)
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewClient(config.NewStaticProviderConfigHolder(config.DefaultProviderConfig()), nil)
	_, err := client.GetOrder(context.Background(), "X")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.Equal(t, SandboxBaseURL, BaseURL("sandbox"))
	assert.Equal(t, LiveBaseURL, BaseURL("LIVE"))
}

func TestUserMessageFallsBackToGenericWithDebugID(t *testing.T) {
	err := &domain.APIError{Code: http.StatusBadRequest, Message: "bad", DebugID: "abc"}
	assert.Equal(t, GenericErrorMessage+" PayPal Debug ID: abc", UserMessage(err))

	postal := &domain.APIError{Code: http.StatusUnprocessableEntity, Details: []domain.ErrorDetail{{Issue: "POSTAL_CODE_REQUIRED"}}}
	assert.Equal(t, PostalCodeRequiredMessage, UserMessage(postal))
}

func TestOperationNameDropsResourceIDs(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodPost, "v2/checkout/orders", "POST v2/checkout/orders"},
		{http.MethodPost, "v2/checkout/orders/5O190127TN364715T/capture", "POST v2/checkout/orders/capture"},
		{http.MethodGet, "v1/billing/subscriptions/I-BW452GLLEP1G", "GET v1/billing/subscriptions"},
		{http.MethodDelete, "/v1/notifications/webhooks/8PT597110X687430LKGECATA", "DELETE v1/notifications/webhooks"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, operationName(tc.method, tc.path))
		})
	}
}
