package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/smallbiznis/formpay/internal/provider/domain"
)

type verifySignatureBody struct {
	TransmissionID   string          `json:"transmission_id"`
	TransmissionTime string          `json:"transmission_time"`
	CertURL          string          `json:"cert_url"`
	AuthAlgo         string          `json:"auth_algo"`
	TransmissionSig  string          `json:"transmission_sig"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

func (c *Client) VerifyWebhookSignature(ctx context.Context, req domain.VerifySignatureRequest) (domain.Payload, error) {
	if !json.Valid(req.Event) {
		return nil, ErrInvalidEventBody
	}
	body := verifySignatureBody{
		TransmissionID:   req.TransmissionID,
		TransmissionTime: req.TransmissionTime,
		CertURL:          req.CertURL,
		AuthAlgo:         req.AuthAlgo,
		TransmissionSig:  req.TransmissionSig,
		WebhookID:        req.WebhookID,
		WebhookEvent:     json.RawMessage(req.Event),
	}
	return c.do(ctx, http.MethodPost, "v1/notifications/verify-webhook-signature", body, http.StatusOK)
}

// CreateWebhook subscribes url to every event type.
func (c *Client) CreateWebhook(ctx context.Context, url string) (domain.Payload, error) {
	body := map[string]any{
		"url":         url,
		"event_types": []map[string]any{{"name": "*"}},
	}
	return c.do(ctx, http.MethodPost, "v1/notifications/webhooks", body, http.StatusCreated)
}

func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) error {
	_, err := c.do(ctx, http.MethodDelete, "v1/notifications/webhooks/"+escape(webhookID), nil, http.StatusNoContent)
	return err
}

// GenerateClientToken returns the browser SDK client token, reusing the last
// one until it expires.
func (c *Client) GenerateClientToken(ctx context.Context) (domain.Payload, error) {
	if _, _, err := c.session(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.clientToken != nil && c.now().Before(c.tokenExpiry) {
		token := c.clientToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	token, err := c.do(ctx, http.MethodPost, "v1/identity/generate-token", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	ttl := 5 * time.Minute
	if secs, err := strconv.Atoi(token.String("expires_in")); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}

	c.mu.Lock()
	c.clientToken = token
	c.tokenExpiry = c.now().Add(ttl)
	c.mu.Unlock()
	return token, nil
}
