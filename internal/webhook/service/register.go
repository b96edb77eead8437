package service

import (
	"context"
	"strings"

	providerdomain "github.com/smallbiznis/formpay/internal/provider/domain"
	"github.com/smallbiznis/formpay/internal/webhook/domain"
	"go.uber.org/zap"
)

// Register replaces the provider webhook with one pointing at the configured
// URL. A previous webhook that no longer exists at the provider is ignored.
func (e *Engine) Register(ctx context.Context) (*domain.Registration, error) {
	url := strings.TrimSpace(e.config.Get().WebhookURL)
	if url == "" {
		return nil, domain.ErrWebhookURLRequired
	}

	previous, err := e.repo.LatestRegistration(ctx, e.db)
	if err != nil {
		return nil, err
	}
	if previous != nil && previous.WebhookID != "" {
		if err := e.client.DeleteWebhook(ctx, previous.WebhookID); err != nil && !providerdomain.IsNotFound(err) {
			e.log.Warn("delete previous webhook failed",
				zap.String("webhook_id", previous.WebhookID),
				zap.Error(err),
			)
			return nil, err
		}
	}

	created, err := e.client.CreateWebhook(ctx, url)
	if err != nil {
		e.log.Warn("create webhook failed", zap.String("url", url), zap.Error(err))
		return nil, err
	}
	webhookID := strings.TrimSpace(created.String("id"))
	if webhookID == "" {
		return nil, providerdomain.ErrInvalidResponse
	}

	registration := &domain.Registration{
		ID:        e.genID.Generate(),
		WebhookID: webhookID,
		URL:       url,
		CreatedAt: e.clock.Now(),
	}
	if err := e.repo.InsertRegistration(ctx, e.db, registration); err != nil {
		return nil, err
	}

	e.log.Info("webhook registered",
		zap.String("webhook_id", webhookID),
		zap.String("url", url),
	)
	return registration, nil
}
