package metrics

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	providerdomain "github.com/smallbiznis/formpay/internal/provider/domain"
)

// Provider error reasons.
const (
	ProviderReasonDeadlineExceeded = "deadline_exceeded"
	ProviderReasonTransport        = "transport"
	ProviderReasonClient           = "client_error"
	ProviderReasonServer           = "server_error"
	ProviderReasonNotConfigured    = "not_configured"
	ProviderReasonInvalidResponse  = "invalid_response"
	ProviderReasonUnknown          = "unknown"
)

// HTTPMetrics tracks inbound requests and outbound provider calls in the
// Prometheus registry scraped from /metrics.
type HTTPMetrics struct {
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	providerDuration *prometheus.HistogramVec
	providerErrors   *prometheus.CounterVec
}

// NewHTTPMetrics registers the collectors on the default registerer.
func NewHTTPMetrics(cfg Config) (*HTTPMetrics, error) {
	return newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) (*HTTPMetrics, error) {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "formpay"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	requests, err := register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "formpay_http_requests_total",
		Help:        "Inbound HTTP requests by route and status.",
		ConstLabels: constLabels,
	}, []string{"method", "route", "status_code"}))
	if err != nil {
		return nil, err
	}
	requestDuration, err := register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "formpay_http_request_duration_seconds",
		Help:        "Inbound HTTP request latency by route.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"method", "route"}))
	if err != nil {
		return nil, err
	}
	providerDuration, err := register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "formpay_provider_request_duration_seconds",
		Help:        "PayPal API round-trip latency by operation.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	providerErrors, err := register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "formpay_provider_errors_total",
		Help:        "PayPal API failures by operation and low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"}))
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requests:         requests,
		requestDuration:  requestDuration,
		providerDuration: providerDuration,
		providerErrors:   providerErrors,
	}, nil
}

// register returns the collector already registered under the same
// descriptor, so a second fx app in the same process shares it.
func register[T prometheus.Collector](registerer prometheus.Registerer, c T) (T, error) {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// GinMiddleware records every request under its route template.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveProviderCall records one PayPal API call.
func (m *HTTPMetrics) ObserveProviderCall(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	operation = sanitizeLabel(operation)
	m.providerDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.providerErrors.WithLabelValues(operation, ClassifyProviderError(err)).Inc()
	}
}

// ClassifyProviderError maps a transport failure onto a bounded reason.
func ClassifyProviderError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ProviderReasonDeadlineExceeded
	case errors.Is(err, providerdomain.ErrNotConfigured):
		return ProviderReasonNotConfigured
	case errors.Is(err, providerdomain.ErrInvalidResponse):
		return ProviderReasonInvalidResponse
	}
	if apiErr, ok := providerdomain.AsAPIError(err); ok {
		switch {
		case apiErr.Code == 0:
			return ProviderReasonTransport
		case apiErr.Code >= 500:
			return ProviderReasonServer
		case apiErr.Code >= 400:
			return ProviderReasonClient
		}
	}
	return ProviderReasonUnknown
}

func sanitizeLabel(val string) string {
	if val = strings.TrimSpace(val); val == "" {
		return "unknown"
	}
	return val
}
