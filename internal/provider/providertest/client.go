// Package providertest provides a scriptable in-memory payment provider.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/smallbiznis/formpay/internal/provider/domain"
)

// Call is one recorded request.
type Call struct {
	Method string
	ID     string
	Body   map[string]any
	Ops    []domain.PatchOperation
}

// HandlerFunc answers a call in place of the default response.
type HandlerFunc func(call Call) (domain.Payload, error)

// Client implements domain.Client. Unscripted calls succeed with a response
// shaped like the provider's: created resources get sequential ids and
// signatures verify.
type Client struct {
	mu       sync.Mutex
	calls    []Call
	handlers map[string]HandlerFunc
	seq      int
}

var _ domain.Client = (*Client)(nil)

func New() *Client {
	return &Client{handlers: map[string]HandlerFunc{}}
}

// Handle scripts method.
func (c *Client) Handle(method string, fn HandlerFunc) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[method] = fn
	return c
}

// Respond makes method return payload.
func (c *Client) Respond(method string, payload domain.Payload) *Client {
	return c.Handle(method, func(Call) (domain.Payload, error) {
		return clone(payload), nil
	})
}

// Fail makes method return err.
func (c *Client) Fail(method string, err error) *Client {
	return c.Handle(method, func(Call) (domain.Payload, error) {
		return nil, err
	})
}

// Calls returns the recorded calls to method, or every call when method is
// empty.
func (c *Client) Calls(method string) []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Call
	for _, call := range c.calls {
		if method == "" || call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

func (c *Client) Count(method string) int {
	return len(c.Calls(method))
}

func (c *Client) invoke(call Call, fallback func(id string) domain.Payload) (domain.Payload, error) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	handler := c.handlers[call.Method]
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	if handler != nil {
		return handler(call)
	}
	if fallback == nil {
		return domain.Payload{}, nil
	}
	return fallback(fmt.Sprintf("%04d", seq)), nil
}

func (c *Client) CreateOrder(_ context.Context, body map[string]any) (domain.Payload, error) {
	return c.invoke(Call{Method: "CreateOrder", Body: body}, func(seq string) domain.Payload {
		return domain.Payload{"id": "ORDER-" + seq, "status": "CREATED"}
	})
}

func (c *Client) GetOrder(_ context.Context, orderID string) (domain.Payload, error) {
	return c.invoke(Call{Method: "GetOrder", ID: orderID}, func(string) domain.Payload {
		return domain.Payload{"id": orderID, "status": "APPROVED"}
	})
}

func (c *Client) UpdateOrder(_ context.Context, orderID string, ops []domain.PatchOperation) error {
	_, err := c.invoke(Call{Method: "UpdateOrder", ID: orderID, Ops: ops}, nil)
	return err
}

func (c *Client) AuthorizeOrder(_ context.Context, orderID string) (domain.Payload, error) {
	return c.invoke(Call{Method: "AuthorizeOrder", ID: orderID}, func(seq string) domain.Payload {
		return domain.Payload{
			"id":     orderID,
			"status": "COMPLETED",
			"purchase_units": []any{map[string]any{
				"payments": map[string]any{
					"authorizations": []any{map[string]any{"id": "AUTH-" + seq, "status": "CREATED"}},
				},
			}},
		}
	})
}

func (c *Client) CaptureOrder(_ context.Context, orderID string) (domain.Payload, error) {
	return c.invoke(Call{Method: "CaptureOrder", ID: orderID}, func(seq string) domain.Payload {
		return domain.Payload{
			"id":     orderID,
			"status": "COMPLETED",
			"purchase_units": []any{map[string]any{
				"payments": map[string]any{
					"captures": []any{map[string]any{"id": "CAPTURE-" + seq, "status": "COMPLETED"}},
				},
			}},
		}
	})
}

func (c *Client) CaptureAuthorization(_ context.Context, authorizationID string) (domain.Payload, error) {
	return c.invoke(Call{Method: "CaptureAuthorization", ID: authorizationID}, func(seq string) domain.Payload {
		return domain.Payload{"id": "CAPTURE-" + seq, "status": "COMPLETED"}
	})
}

func (c *Client) RefundCapture(_ context.Context, captureID string) (domain.Payload, error) {
	return c.invoke(Call{Method: "RefundCapture", ID: captureID}, func(seq string) domain.Payload {
		return domain.Payload{"id": "REFUND-" + seq, "status": "COMPLETED"}
	})
}

func (c *Client) CreateProduct(_ context.Context, body map[string]any) (domain.Payload, error) {
	return c.invoke(Call{Method: "CreateProduct", Body: body}, func(seq string) domain.Payload {
		out := clone(body)
		out["id"] = "PROD-" + seq
		return out
	})
}

func (c *Client) GetProduct(_ context.Context, productID string) (domain.Payload, error) {
	return c.invoke(Call{Method: "GetProduct", ID: productID}, func(string) domain.Payload {
		if body := c.lastBody("CreateProduct"); body != nil {
			out := clone(body)
			out["id"] = productID
			return out
		}
		return domain.Payload{"id": productID, "name": "Product", "type": "SERVICE"}
	})
}

// CreatePlan answers without billing cycles, as the provider does when the
// representation is not requested.
func (c *Client) CreatePlan(_ context.Context, body map[string]any) (domain.Payload, error) {
	return c.invoke(Call{Method: "CreatePlan", Body: body}, func(seq string) domain.Payload {
		return domain.Payload{
			"id":         "P-" + seq,
			"product_id": body["product_id"],
			"name":       body["name"],
			"status":     "ACTIVE",
		}
	})
}

func (c *Client) CreateSubscription(_ context.Context, body map[string]any) (domain.Payload, error) {
	return c.invoke(Call{Method: "CreateSubscription", Body: body}, func(seq string) domain.Payload {
		id := "I-" + seq
		return domain.Payload{
			"id":      id,
			"plan_id": body["plan_id"],
			"status":  "APPROVAL_PENDING",
			"links": []any{map[string]any{
				"href":   "https://www.sandbox.paypal.com/webapps/billing/subscriptions?ba_token=BA-" + seq,
				"rel":    "approve",
				"method": "GET",
			}},
		}
	})
}

func (c *Client) GetSubscription(_ context.Context, subscriptionID string) (domain.Payload, error) {
	return c.invoke(Call{Method: "GetSubscription", ID: subscriptionID}, func(string) domain.Payload {
		return domain.Payload{"id": subscriptionID, "status": "ACTIVE"}
	})
}

func (c *Client) ActivateSubscription(_ context.Context, subscriptionID, reason string) error {
	_, err := c.invoke(Call{Method: "ActivateSubscription", ID: subscriptionID, Body: map[string]any{"reason": reason}}, nil)
	return err
}

func (c *Client) UpdateSubscription(_ context.Context, subscriptionID string, ops []domain.PatchOperation) error {
	_, err := c.invoke(Call{Method: "UpdateSubscription", ID: subscriptionID, Ops: ops}, nil)
	return err
}

func (c *Client) VerifyWebhookSignature(_ context.Context, req domain.VerifySignatureRequest) (domain.Payload, error) {
	body := map[string]any{
		"transmission_id": req.TransmissionID,
		"webhook_id":      req.WebhookID,
		"webhook_event":   string(req.Event),
	}
	return c.invoke(Call{Method: "VerifyWebhookSignature", Body: body}, func(string) domain.Payload {
		return domain.Payload{"verification_status": domain.VerificationSuccess}
	})
}

func (c *Client) CreateWebhook(_ context.Context, url string) (domain.Payload, error) {
	return c.invoke(Call{Method: "CreateWebhook", Body: map[string]any{"url": url}}, func(seq string) domain.Payload {
		return domain.Payload{"id": "WH-" + seq, "url": url}
	})
}

func (c *Client) DeleteWebhook(_ context.Context, webhookID string) error {
	_, err := c.invoke(Call{Method: "DeleteWebhook", ID: webhookID}, nil)
	return err
}

func (c *Client) GenerateClientToken(_ context.Context) (domain.Payload, error) {
	return c.invoke(Call{Method: "GenerateClientToken"}, func(seq string) domain.Payload {
		return domain.Payload{"client_token": "token-" + seq, "expires_in": "3600"}
	})
}

func (c *Client) lastBody(method string) map[string]any {
	calls := c.Calls(method)
	if len(calls) == 0 {
		return nil
	}
	return calls[len(calls)-1].Body
}

func clone(in map[string]any) domain.Payload {
	out := make(domain.Payload, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
