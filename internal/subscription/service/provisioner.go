package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	feeddomain "github.com/smallbiznis/formpay/internal/feed/domain"
	"github.com/smallbiznis/formpay/internal/observability/metrics"
	"github.com/smallbiznis/formpay/internal/observability/tracing"
	providerdomain "github.com/smallbiznis/formpay/internal/provider/domain"
	"github.com/smallbiznis/formpay/internal/provider/paypal"
	resource "github.com/smallbiznis/formpay/internal/resource/domain"
	"github.com/smallbiznis/formpay/internal/subscription/domain"
	"github.com/smallbiznis/formpay/pkg/money"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Client  providerdomain.Client
	Feeds   feeddomain.Store
	Metrics *metrics.Metrics `optional:"true"`
}

type Provisioner struct {
	log     *zap.Logger
	client  providerdomain.Client
	feeds   feeddomain.Store
	metrics *metrics.Metrics
}

func NewProvisioner(p Params) domain.Provisioner {
	return &Provisioner{
		log:     p.Log.Named("subscription.provisioner"),
		client:  p.Client,
		feeds:   p.Feeds,
		metrics: p.Metrics,
	}
}

func (p *Provisioner) Prepare(ctx context.Context, req domain.Request) (*domain.Provisioning, error) {
	if req.Feed == nil {
		return nil, &domain.ProvisionError{Step: domain.StepProduct, Err: feeddomain.ErrInvalidFeed}
	}
	if req.Submission.IsCreditCard() {
		return nil, &domain.ProvisionError{Step: domain.StepSubscription, Err: domain.ErrUnsupportedPaymentMethod}
	}

	product, err := p.ensureProduct(ctx, req)
	if err != nil {
		p.metrics.RecordProvisioning(ctx, string(domain.StepProduct), metrics.OutcomeFailed)
		return nil, &domain.ProvisionError{Step: domain.StepProduct, Err: err}
	}

	plan, err := p.ensurePlan(ctx, req, product)
	if err != nil {
		p.metrics.RecordProvisioning(ctx, string(domain.StepPlan), metrics.OutcomeFailed)
		return nil, &domain.ProvisionError{Step: domain.StepPlan, Err: err}
	}

	sub, err := buildSubscription(req, plan)
	if err != nil {
		return nil, &domain.ProvisionError{Step: domain.StepSubscription, Err: err}
	}
	if err := sub.Validate(); err != nil {
		return nil, &domain.ProvisionError{Step: domain.StepSubscription, Err: err}
	}
	return &domain.Provisioning{Subscription: sub, Plan: plan, Product: product}, nil
}

func (p *Provisioner) Initialize(ctx context.Context, req domain.Request) (*domain.Provisioning, error) {
	ctx, span := tracing.Start(ctx, "subscription.initialize",
		attribute.Bool("subscription.preapproved", req.SubscriptionID != ""),
	)
	defer span.End()

	if id := strings.TrimSpace(req.SubscriptionID); id != "" {
		return p.activate(ctx, req, id)
	}
	return p.create(ctx, req)
}

func (p *Provisioner) create(ctx context.Context, req domain.Request) (*domain.Provisioning, error) {
	prov, err := p.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateSubscription(ctx, prov.Subscription.CreateRequest())
	if err != nil {
		p.metrics.RecordProvisioning(ctx, string(domain.StepSubscription), metrics.OutcomeFailed)
		return nil, &domain.ProvisionError{Step: domain.StepSubscription, Err: err}
	}
	if err := prov.Subscription.Hydrate(resp.Raw()); err != nil {
		return nil, &domain.ProvisionError{Step: domain.StepSubscription, Err: err}
	}

	p.metrics.RecordProvisioning(ctx, string(domain.StepSubscription), metrics.OutcomeApplied)
	p.log.Info("subscription created",
		zap.String("subscription_id", prov.Subscription.ID),
		zap.String("plan_id", prov.Plan.ID),
		zap.String("status", string(prov.Subscription.Status)),
	)
	return prov, nil
}

// activate finishes a subscription the payer approved through the wallet
// button before the form was submitted. It is never recreated, and product
// and plan already exist at the provider, so neither is touched.
func (p *Provisioner) activate(ctx context.Context, req domain.Request, subscriptionID string) (*domain.Provisioning, error) {
	if req.Feed == nil {
		return nil, &domain.ProvisionError{Step: domain.StepSubscription, Err: feeddomain.ErrInvalidFeed}
	}
	if req.Submission.IsCreditCard() {
		return nil, &domain.ProvisionError{Step: domain.StepSubscription, Err: domain.ErrUnsupportedPaymentMethod}
	}

	if err := p.client.ActivateSubscription(ctx, subscriptionID, ""); err != nil {
		p.metrics.RecordProvisioning(ctx, string(domain.StepSubscription), metrics.OutcomeFailed)
		return nil, &domain.ProvisionError{Step: domain.StepSubscription, Err: err}
	}
	resp, err := p.client.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, &domain.ProvisionError{Step: domain.StepSubscription, Err: err}
	}

	sub := &resource.Subscription{ID: subscriptionID}
	if err := sub.Hydrate(resp.Raw()); err != nil {
		return nil, &domain.ProvisionError{Step: domain.StepSubscription, Err: err}
	}
	prov := activatedProvisioning(req, sub)

	p.metrics.RecordProvisioning(ctx, string(domain.StepSubscription), metrics.OutcomeApplied)
	p.log.Info("subscription activated",
		zap.String("subscription_id", subscriptionID),
		zap.String("plan_id", prov.Plan.ID),
		zap.String("status", string(sub.Status)),
	)
	return prov, nil
}

// activatedProvisioning describes an activated subscription with the plan and
// product it references. Ids missing from the provider response fall back to
// those cached on the feed.
func activatedProvisioning(req domain.Request, sub *resource.Subscription) *domain.Provisioning {
	feed := req.Feed
	if sub.PlanID == "" {
		sub.PlanID = feed.MetaString(feeddomain.MetaPlanID)
	}
	plan := &resource.Plan{ID: sub.PlanID, ProductID: feed.MetaString(feeddomain.MetaProductID)}
	currency := feed.MetaString(feeddomain.MetaPlanCurrency)
	if currency == "" && req.Entry != nil {
		currency = req.Entry.Currency
	}
	plan.SetCurrency(currency)
	return &domain.Provisioning{
		Subscription: sub,
		Plan:         plan,
		Product:      &resource.Product{ID: plan.ProductID},
	}
}

func (p *Provisioner) Submit(ctx context.Context, req domain.Request) domain.Result {
	prov, err := p.Initialize(ctx, req)
	if err != nil {
		p.log.Warn("subscription provisioning failed",
			zap.String("feed_id", feedID(req.Feed)),
			zap.Error(err),
		)
		return ErrorResult(err)
	}

	result := domain.Result{
		IsSuccess:      true,
		SubscriptionID: prov.Subscription.ID,
		PlanID:         prov.Plan.ID,
		Status:         string(prov.Subscription.Status),
		ApproveURL:     prov.Subscription.ApproveURL(),
	}
	if amount, ok := recurringAmount(prov.Plan, req); ok {
		result.Amount = money.Format(amount, prov.Plan.Currency())
	}
	return result
}

func (p *Provisioner) TagEntry(ctx context.Context, subscriptionID string, entryID string) error {
	if strings.TrimSpace(subscriptionID) == "" {
		return domain.ErrMissingSubscriptionID
	}
	return p.client.UpdateSubscription(ctx, subscriptionID, []providerdomain.PatchOperation{
		{Op: providerdomain.PatchReplace, Path: "custom_id", Value: entryID},
	})
}

// ErrorResult normalizes a provisioning failure. Provider validation
// failures are mapped to a message the payer can act on.
func ErrorResult(err error) domain.Result {
	message := domain.UnknownErrorMessage
	var (
		apiErr     *providerdomain.APIError
		validation *resource.ValidationError
	)
	switch {
	case err == nil:
	case errors.As(err, &apiErr):
		message = paypal.UserMessage(apiErr)
	case errors.As(err, &validation):
		message = validation.Error()
	case errors.Is(err, domain.ErrUnsupportedPaymentMethod):
		message = "Credit card payments are not supported for subscriptions."
	case errors.Is(err, domain.ErrMissingRecurringAmount):
		message = "The recurring amount of the subscription is missing."
	default:
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
	}
	return domain.Result{IsSuccess: false, ErrorMessage: message}
}

func recurringAmount(plan *resource.Plan, req domain.Request) (decimal.Decimal, bool) {
	if amount, ok := plan.RecurringAmount(); ok {
		return amount, true
	}
	amount, err := req.Submission.Amount(plan.Currency())
	if err != nil || amount.IsZero() {
		return decimal.Zero, false
	}
	return amount, true
}

func feedID(feed *feeddomain.Feed) string {
	if feed == nil {
		return ""
	}
	return feed.ID.String()
}
