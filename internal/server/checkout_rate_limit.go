package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/formpay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/formpay/internal/observability/metrics"
	"go.uber.org/zap"
)

const rateLimitReasonClientRate = "client-rate"

// CheckoutRateLimit spends one token of the caller's budget for the route.
// Redis failures fail closed.
func (s *Server) CheckoutRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)
		result, err := s.limiter.Allow(ctx, endpoint, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("checkout rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			denyCheckoutRateLimit(c, endpoint, int(math.Ceil(result.RetryAfter.Seconds())), s.obsMetrics)
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}

func denyCheckoutRateLimit(c *gin.Context, endpoint string, retryAfter int, metrics *obsmetrics.Metrics) {
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	metrics.RecordRateLimitDenied(c.Request.Context(), endpoint, rateLimitReasonClientRate)
	logger.FromContext(c.Request.Context()).Info("checkout rate limited",
		zap.String("endpoint", endpoint),
		zap.String("client_ip", c.ClientIP()),
	)
	AbortWithError(c, ErrRateLimited)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	route := strings.TrimSpace(c.FullPath())
	if route == "" {
		route = c.Request.URL.Path
	}
	return strings.Trim(strings.ReplaceAll(route, "/", "."), ".")
}
