package paypal

import (
	"context"
	"net/http"
	"strings"

	"github.com/smallbiznis/formpay/internal/provider/domain"
)

func (c *Client) CreateProduct(ctx context.Context, body map[string]any) (domain.Payload, error) {
	return c.do(ctx, http.MethodPost, "v1/catalogs/products", body, http.StatusCreated)
}

func (c *Client) GetProduct(ctx context.Context, productID string) (domain.Payload, error) {
	return c.do(ctx, http.MethodGet, "v1/catalogs/products/"+escape(productID), nil, http.StatusOK)
}

func (c *Client) CreatePlan(ctx context.Context, body map[string]any) (domain.Payload, error) {
	return c.do(ctx, http.MethodPost, "v1/billing/plans", body, http.StatusCreated)
}

func (c *Client) CreateSubscription(ctx context.Context, body map[string]any) (domain.Payload, error) {
	return c.do(ctx, http.MethodPost, "v1/billing/subscriptions", body, http.StatusCreated)
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (domain.Payload, error) {
	return c.do(ctx, http.MethodGet, "v1/billing/subscriptions/"+escape(subscriptionID), nil, http.StatusOK)
}

func (c *Client) ActivateSubscription(ctx context.Context, subscriptionID, reason string) error {
	var body any
	if reason = strings.TrimSpace(reason); reason != "" {
		body = map[string]any{"reason": reason}
	}
	_, err := c.do(ctx, http.MethodPost, "v1/billing/subscriptions/"+escape(subscriptionID)+"/activate", body, http.StatusNoContent)
	return err
}

func (c *Client) UpdateSubscription(ctx context.Context, subscriptionID string, ops []domain.PatchOperation) error {
	_, err := c.do(ctx, http.MethodPatch, "v1/billing/subscriptions/"+escape(subscriptionID), expandPatch("/", ops), http.StatusNoContent)
	return err
}
