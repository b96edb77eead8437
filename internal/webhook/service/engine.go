package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formpay/internal/clock"
	"github.com/smallbiznis/formpay/internal/config"
	entrydomain "github.com/smallbiznis/formpay/internal/entry/domain"
	"github.com/smallbiznis/formpay/internal/observability/logger"
	"github.com/smallbiznis/formpay/internal/observability/metrics"
	"github.com/smallbiznis/formpay/internal/observability/tracing"
	providerdomain "github.com/smallbiznis/formpay/internal/provider/domain"
	"github.com/smallbiznis/formpay/internal/webhook/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  *config.ProviderConfigHolder
	Client  providerdomain.Client
	Entries entrydomain.Store
	Repo    domain.Repository
	Metrics *metrics.Metrics    `optional:"true"`
	Filter  domain.ActionFilter `optional:"true"`
}

type Engine struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	config  *config.ProviderConfigHolder
	client  providerdomain.Client
	entries entrydomain.Store
	repo    domain.Repository
	metrics *metrics.Metrics
	filter  domain.ActionFilter
}

func NewEngine(p Params) domain.Engine {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Engine{
		db:      p.DB,
		log:     p.Log.Named("webhook.service"),
		genID:   p.GenID,
		clock:   clk,
		config:  p.Config,
		client:  p.Client,
		entries: p.Entries,
		repo:    p.Repo,
		metrics: p.Metrics,
		filter:  p.Filter,
	}
}

func (e *Engine) Handle(ctx context.Context, raw []byte, headers domain.Headers) (*domain.Result, error) {
	ctx, span := tracing.Start(ctx, "webhook.handle")
	defer span.End()

	log := logger.WithContext(ctx, e.log)

	if !headers.Complete() {
		log.Warn("webhook rejected", zap.Error(domain.ErrMissingHeaders))
		e.metrics.RecordWebhookEvent(ctx, "unknown", metrics.OutcomeRejected)
		return nil, domain.NewMissingHeadersError()
	}

	event, err := domain.ParseEvent(raw)
	if err != nil {
		log.Warn("webhook rejected", zap.Error(err))
		e.metrics.RecordWebhookEvent(ctx, "unknown", metrics.OutcomeRejected)
		return nil, domain.NewInvalidEventError()
	}
	span.SetAttributes(
		attribute.String("webhook.event_id", event.ID),
		attribute.String("webhook.event_type", event.EventType),
		attribute.String("webhook.resource_type", event.ResourceType),
	)
	log = log.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.EventType),
	)

	if err := e.verify(ctx, raw, headers); err != nil {
		log.Warn("webhook verification failed", zap.Error(err))
		e.metrics.RecordWebhookEvent(ctx, event.EventType, metrics.OutcomeRejected)
		span.SetStatus(codes.Error, "verification failed")
		return nil, err
	}

	log.Info("webhook received",
		zap.String("resource_type", event.ResourceType),
		zap.String("event_version", event.EventVersion),
		zap.String("resource_version", event.ResourceVersion),
	)

	record, processed, err := e.record(ctx, event, raw)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		return nil, err
	}
	if processed {
		log.Info("webhook already processed")
		return e.finish(ctx, event, domain.Result{Outcome: domain.OutcomeDuplicate}), nil
	}

	entry, err := e.resolveEntry(ctx, event)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		return nil, err
	}
	if entry == nil {
		cfg := e.config.Get()
		idType, id := unresolvedID(event, cfg.IsLinkedResource)
		log.Info("webhook entry not found", zap.String(idType+"_id", id))
		if err := e.repo.UpdateOutcome(ctx, e.db, record.ID, nil, string(domain.OutcomeUnresolved)); err != nil {
			return nil, err
		}
		return e.finish(ctx, event, domain.Result{
			Outcome: domain.OutcomeUnresolved,
			Status:  cfg.UnresolvedEntryStatus,
			Message: fmt.Sprintf(domain.MessageEntryNotFound, idType, id),
		}), nil
	}

	entryID := entry.ID
	span.SetAttributes(attribute.String("entry.id", entryID.String()))

	action := classify(entry, event, e.config.Get().IsLinkedResource)
	if e.filter != nil {
		action = e.filter(action, event)
	}
	if action == nil || action.Type == "" {
		log.Debug("no action for webhook", zap.String("entry_id", entryID.String()))
		if err := e.repo.MarkProcessed(ctx, e.db, record.ID, &entryID, string(domain.OutcomeNoOp), e.clock.Now()); err != nil {
			return nil, err
		}
		return e.finish(ctx, event, domain.Result{Outcome: domain.OutcomeNoOp, EntryID: entryID.String()}), nil
	}

	if err := e.entries.Apply(ctx, *action); err != nil {
		log.Error("webhook action failed",
			zap.String("entry_id", entryID.String()),
			zap.String("action", string(action.Type)),
			zap.Error(err),
		)
		e.metrics.RecordWebhookEvent(ctx, event.EventType, metrics.OutcomeFailed)
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "apply failed")
		return nil, err
	}
	if err := e.repo.MarkProcessed(ctx, e.db, record.ID, &entryID, string(domain.OutcomeApplied), e.clock.Now()); err != nil {
		return nil, err
	}

	log.Info("webhook applied",
		zap.String("entry_id", entryID.String()),
		zap.String("action", string(action.Type)),
	)
	return e.finish(ctx, event, domain.Result{
		Outcome: domain.OutcomeApplied,
		EntryID: entryID.String(),
		Action:  action,
	}), nil
}

func (e *Engine) finish(ctx context.Context, event *domain.Event, result domain.Result) *domain.Result {
	if result.Status == 0 {
		result.Status = http.StatusOK
	}
	result.EventID = event.ID
	result.EventType = event.EventType
	e.metrics.RecordWebhookEvent(ctx, event.EventType, string(result.Outcome))
	return &result
}

func (e *Engine) verify(ctx context.Context, raw []byte, headers domain.Headers) error {
	webhookID, err := e.webhookID(ctx)
	if err != nil {
		return domain.NewVerificationUnavailableError(err)
	}

	resp, err := e.client.VerifyWebhookSignature(ctx, providerdomain.VerifySignatureRequest{
		TransmissionID:   headers.TransmissionID,
		TransmissionTime: headers.TransmissionTime,
		CertURL:          headers.CertURL,
		AuthAlgo:         headers.AuthAlgo,
		TransmissionSig:  headers.TransmissionSig,
		WebhookID:        webhookID,
		Event:            raw,
	})
	if err != nil {
		return domain.NewVerificationUnavailableError(err)
	}
	if !strings.EqualFold(resp.String("verification_status"), providerdomain.VerificationSuccess) {
		return domain.NewVerificationFailedError()
	}
	return nil
}

// webhookID prefers the configured id over the last registration.
func (e *Engine) webhookID(ctx context.Context) (string, error) {
	if id := strings.TrimSpace(e.config.Get().WebhookID); id != "" {
		return id, nil
	}
	registration, err := e.repo.LatestRegistration(ctx, e.db)
	if err != nil {
		return "", err
	}
	if registration == nil || registration.WebhookID == "" {
		return "", domain.ErrWebhookNotRegistered
	}
	return registration.WebhookID, nil
}

// record logs the delivery. It reports true when the event id was already
// processed by an earlier delivery.
func (e *Engine) record(ctx context.Context, event *domain.Event, raw []byte) (*domain.EventRecord, bool, error) {
	record := &domain.EventRecord{
		ID:           e.genID.Generate(),
		EventID:      event.ID,
		EventType:    event.EventType,
		ResourceType: event.ResourceType,
		Payload:      datatypes.JSON(raw),
		ReceivedAt:   e.clock.Now(),
	}
	inserted, err := e.repo.InsertEvent(ctx, e.db, record)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return record, false, nil
	}

	stored, err := e.repo.FindEvent(ctx, e.db, event.ID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, domain.ErrInvalidEvent
	}
	return stored, stored.ProcessedAt != nil, nil
}

// unresolvedID names the id an unmatched event was looked up by. Events with
// nothing to look up report their own id.
func unresolvedID(event *domain.Event, linked func(string) bool) (string, string) {
	idType := "transaction"
	if event.ResourceType == domain.ResourceSubscription {
		idType = "subscription"
	}
	if id := event.TransactionID(linked); id != "" {
		return idType, id
	}
	return idType, event.ID
}

// resolveEntry finds the entry an event belongs to, or nil when none does.
func (e *Engine) resolveEntry(ctx context.Context, event *domain.Event) (*entrydomain.Entry, error) {
	if customID := event.CustomID(); customID != "" {
		if id, err := snowflake.ParseString(customID); err == nil && id > 0 {
			entry, err := e.entries.GetEntry(ctx, id)
			switch {
			case err == nil:
				return entry, nil
			case !errors.Is(err, entrydomain.ErrEntryNotFound):
				return nil, err
			}
		}
	}

	transactionID := event.TransactionID(e.config.Get().IsLinkedResource)
	if transactionID == "" {
		return nil, nil
	}
	id, err := e.entries.GetEntryIDByTransactionID(ctx, transactionID)
	if errors.Is(err, entrydomain.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry, err := e.entries.GetEntry(ctx, id)
	if errors.Is(err, entrydomain.ErrEntryNotFound) {
		return nil, nil
	}
	return entry, err
}
