package paypal

import (
	"context"
	"net/http"

	"github.com/smallbiznis/formpay/internal/provider/domain"
)

const orderPatchPrefix = "/purchase_units/@reference_id=='default'/"

func (c *Client) CreateOrder(ctx context.Context, body map[string]any) (domain.Payload, error) {
	return c.do(ctx, http.MethodPost, "v2/checkout/orders", body, http.StatusCreated)
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (domain.Payload, error) {
	return c.do(ctx, http.MethodGet, "v2/checkout/orders/"+escape(orderID), nil, http.StatusOK)
}

// UpdateOrder patches the default purchase unit. Operation paths are field
// names relative to it unless they start with "/".
func (c *Client) UpdateOrder(ctx context.Context, orderID string, ops []domain.PatchOperation) error {
	_, err := c.do(ctx, http.MethodPatch, "v2/checkout/orders/"+escape(orderID), expandPatch(orderPatchPrefix, ops), http.StatusNoContent)
	return err
}

func (c *Client) AuthorizeOrder(ctx context.Context, orderID string) (domain.Payload, error) {
	return c.do(ctx, http.MethodPost, "v2/checkout/orders/"+escape(orderID)+"/authorize", nil, http.StatusCreated)
}

func (c *Client) CaptureOrder(ctx context.Context, orderID string) (domain.Payload, error) {
	return c.do(ctx, http.MethodPost, "v2/checkout/orders/"+escape(orderID)+"/capture", nil, http.StatusCreated)
}

func (c *Client) CaptureAuthorization(ctx context.Context, authorizationID string) (domain.Payload, error) {
	return c.do(ctx, http.MethodPost, "v2/payments/authorizations/"+escape(authorizationID)+"/capture", nil, http.StatusCreated)
}

func (c *Client) RefundCapture(ctx context.Context, captureID string) (domain.Payload, error) {
	return c.do(ctx, http.MethodPost, "v2/payments/captures/"+escape(captureID)+"/refund", nil, http.StatusCreated)
}
