package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/formpay/internal/config"
	"github.com/smallbiznis/formpay/internal/observability/metrics"
	"github.com/smallbiznis/formpay/internal/provider/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	LiveBaseURL    = "https://api-m.paypal.com"

	tokenPath        = "v1/oauth2/token"
	maxResponseBytes = 4 << 20
)

var ErrInvalidEventBody = errors.New("invalid_webhook_event_body")

// BaseURL returns the REST endpoint for environment.
func BaseURL(environment string) string {
	if strings.EqualFold(strings.TrimSpace(environment), config.ProviderEnvironmentLive) {
		return LiveBaseURL
	}
	return SandboxBaseURL
}

type Option func(*Client)

// WithBaseURL pins the REST endpoint regardless of the configured environment.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the client used for token and API requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.base = hc
		}
	}
}

// WithMetrics records latency and failures of every API call.
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client implements domain.Client over the PayPal REST API. Credentials are
// read from the config holder on every call so a reload takes effect without
// a restart.
type Client struct {
	config  *config.ProviderConfigHolder
	log     *zap.Logger
	metrics *metrics.HTTPMetrics
	base    *http.Client
	baseURL string
	now     func() time.Time

	mu          sync.Mutex
	transportID string
	authed      *http.Client
	clientToken domain.Payload
	tokenExpiry time.Time
}

type Params struct {
	fx.In

	Config  *config.ProviderConfigHolder
	Log     *zap.Logger
	Metrics *metrics.HTTPMetrics `optional:"true"`
}

func Provide(p Params) domain.Client {
	return NewClient(p.Config, p.Log, WithMetrics(p.Metrics))
}

func NewClient(holder *config.ProviderConfigHolder, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		config: holder,
		log:    log.Named("provider.paypal"),
		base:   http.DefaultClient,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// session returns an OAuth2 authenticated client for the current settings,
// rebuilding it when credentials, environment or timeout change.
func (c *Client) session() (*http.Client, string, error) {
	if c.config == nil {
		return nil, "", domain.ErrNotConfigured
	}
	cfg := c.config.Get()
	if !cfg.IsConfigured() {
		return nil, "", domain.ErrNotConfigured
	}

	baseURL := c.baseURL
	if baseURL == "" {
		baseURL = BaseURL(cfg.Environment)
	}
	id := strings.Join([]string{baseURL, cfg.ClientID, cfg.ClientSecret, cfg.RequestTimeout.String()}, "|")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authed != nil && c.transportID == id {
		return c.authed, baseURL, nil
	}

	cc := clientcredentials.Config{
		ClientID:     strings.TrimSpace(cfg.ClientID),
		ClientSecret: strings.TrimSpace(cfg.ClientSecret),
		TokenURL:     baseURL + "/" + tokenPath,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	authed := cc.Client(tokenCtx)
	authed.Timeout = cfg.RequestTimeout

	c.authed = authed
	c.transportID = id
	c.clientToken = nil
	c.tokenExpiry = time.Time{}
	return authed, baseURL, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, expected int) (payload domain.Payload, err error) {
	start := c.now()
	defer func() {
		c.metrics.ObserveProviderCall(operationName(method, path), c.now().Sub(start), err)
	}()

	hc, baseURL, err := c.session()
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+"/"+strings.TrimPrefix(path, "/"), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := hc.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, &domain.APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.APIError{Code: resp.StatusCode, Message: err.Error()}
	}

	debugID := resp.Header.Get("Paypal-Debug-Id")
	c.log.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("debug_id", debugID),
		zap.Int64("duration_ms", c.now().Sub(start).Milliseconds()),
	)

	payload = domain.Payload{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			if resp.StatusCode == expected {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
			}
			payload = domain.Payload{}
		}
		if payload == nil {
			payload = domain.Payload{}
		}
	}
	payload[domain.DebugIDKey] = debugID

	if resp.StatusCode != expected {
		return payload, newAPIError(resp, payload, debugID)
	}
	return payload, nil
}

func newAPIError(resp *http.Response, payload domain.Payload, debugID string) *domain.APIError {
	message := payload.String("message")
	if message == "" {
		message = payload.String("error_description")
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	apiErr := &domain.APIError{
		Code:    resp.StatusCode,
		Name:    payload.String("name"),
		Message: message,
		DebugID: debugID,
	}
	for _, d := range payload.Slice("details") {
		apiErr.Details = append(apiErr.Details, domain.ErrorDetail{
			Field:       d.String("field"),
			Value:       d.String("value"),
			Location:    d.String("location"),
			Issue:       d.String("issue"),
			Description: d.String("description"),
		})
	}
	return apiErr
}

// operationName reduces a request to a bounded label by dropping resource
// ids, which the provider always issues in upper case.
func operationName(method, path string) string {
	parts := []string{}
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment == "" || segment != strings.ToLower(segment) {
			continue
		}
		parts = append(parts, segment)
	}
	return method + " " + strings.Join(parts, "/")
}

func escape(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}

// expandPatch rewrites field names into resource paths.
func expandPatch(prefix string, ops []domain.PatchOperation) []domain.PatchOperation {
	out := make([]domain.PatchOperation, 0, len(ops))
	for _, op := range ops {
		if !strings.HasPrefix(op.Path, "/") {
			op.Path = prefix + op.Path
		}
		out = append(out, op)
	}
	return out
}
