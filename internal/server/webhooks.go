package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/formpay/internal/audit/domain"
	"github.com/smallbiznis/formpay/internal/authorization"
	"github.com/smallbiznis/formpay/internal/observability/logger"
	webhookdomain "github.com/smallbiznis/formpay/internal/webhook/domain"
	"go.uber.org/zap"
)

const maxWebhookBodyBytes = 1 << 20

// HandlePayPalWebhook answers the provider directly. Rejected deliveries use
// the status the engine picked so the provider retries on its own schedule.
func (s *Server) HandlePayPalWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.webhooks.Handle(ctx, raw, webhookdomain.HeadersFrom(c.Request.Header))
	if err != nil {
		var handleErr *webhookdomain.HandleError
		if errors.As(err, &handleErr) {
			logger.FromContext(ctx).Warn("webhook rejected",
				zap.Int("status", handleErr.Status),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(handleErr.Status, gin.H{"message": handleErr.Message})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.Set("webhook_event_type", result.EventType)
	status := result.Status
	if status == 0 {
		status = http.StatusOK
	}
	// Handled deliveries get an empty body; only unmatched entries explain
	// themselves.
	if result.Message != "" {
		c.JSON(status, gin.H{"message": result.Message})
		return
	}
	c.Status(status)
}

func (s *Server) RegisterWebhook(c *gin.Context) {
	registration, err := s.webhooks.Register(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	fields := []zap.Field{zap.String("webhook_id", registration.WebhookID)}
	if key, ok := apiKeyFromContext(c); ok {
		fields = append(fields, zap.String("api_key_id", key.KeyID))
	}
	logger.FromContext(c.Request.Context()).Info("webhook registered", fields...)
	s.recordAudit(c, authorization.ActionWebhookRegister, auditdomain.TargetWebhook, registration.WebhookID, map[string]any{"url": registration.URL})
	c.JSON(http.StatusOK, registration)
}
