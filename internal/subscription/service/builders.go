package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	feeddomain "github.com/smallbiznis/formpay/internal/feed/domain"
	"github.com/smallbiznis/formpay/internal/observability/metrics"
	resource "github.com/smallbiznis/formpay/internal/resource/domain"
	"github.com/smallbiznis/formpay/internal/subscription/domain"
	"github.com/smallbiznis/formpay/pkg/money"
	"go.uber.org/zap"
)

func buildProduct(req domain.Request) (*resource.Product, error) {
	feed := req.Feed
	product := &resource.Product{ID: feed.MetaString(feeddomain.MetaProductID)}

	if item, ok := req.Submission.LineItem(feed.MetaString(feeddomain.MetaRecurringAmount)); ok {
		product.Name = strings.TrimSpace(item.Name)
		product.Description = strings.TrimSpace(item.Description)
	}
	if product.Name == "" {
		product.Name = feed.Name()
	}
	if err := product.SetType(feed.MetaString(feeddomain.MetaSubscriptionType)); err != nil {
		return nil, err
	}
	return product, nil
}

// ensureProduct reuses the cached product, or creates it and caches its id.
func (p *Provisioner) ensureProduct(ctx context.Context, req domain.Request) (*resource.Product, error) {
	product, err := buildProduct(req)
	if err != nil {
		return nil, err
	}
	if product.ID != "" {
		return product, nil
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	created, err := p.client.CreateProduct(ctx, product.Serialize())
	if err != nil {
		return nil, err
	}
	productID := created.String("id")
	fetched, err := p.client.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	remote := &resource.Product{}
	if err := remote.Hydrate(fetched.Raw()); err != nil {
		return nil, err
	}
	if remote.ID == "" {
		remote.ID = productID
	}

	if err := p.cacheOnFeed(ctx, req.Feed, map[string]any{feeddomain.MetaProductID: remote.ID}); err != nil {
		return nil, err
	}
	p.metrics.RecordProvisioning(ctx, string(domain.StepProduct), metrics.OutcomeApplied)
	p.log.Info("subscription product created",
		zap.String("feed_id", req.Feed.ID.String()),
		zap.String("product_id", remote.ID),
	)
	return remote, nil
}

func buildPlan(req domain.Request, product *resource.Product) (*resource.Plan, error) {
	feed := req.Feed
	currency := strings.ToUpper(strings.TrimSpace(req.Currency()))

	plan := resource.NewPlan()
	plan.ID = feed.MetaString(feeddomain.MetaPlanID)
	plan.ProductID = product.ID
	plan.Name = feed.Name()

	recurring, err := req.Submission.Amount(currency)
	if err != nil || recurring.IsZero() {
		return nil, domain.ErrMissingRecurringAmount
	}

	regular := resource.BillingCycle{
		PricingScheme: &resource.PricingScheme{FixedPrice: resource.NewMoney(currency, recurring)},
		TenureType:    resource.TenureTypeRegular,
		Sequence:      1,
		TotalCycles:   feed.MetaInt(feeddomain.MetaRecurringTimes),
	}
	if err := applyFrequency(&regular.Frequency, feed, feeddomain.MetaBillingCycleUnit, feeddomain.MetaBillingCycleLength); err != nil {
		return nil, err
	}
	plan.BillingCycles = []resource.BillingCycle{regular}

	if feed.MetaBool(feeddomain.MetaTrialEnabled) {
		trialPrice := optionalAmount(req.Submission.Trial, currency)
		trial := resource.BillingCycle{
			PricingScheme: &resource.PricingScheme{FixedPrice: resource.NewMoney(currency, trialPrice)},
			TotalCycles:   1,
		}
		if err := applyFrequency(&trial.Frequency, feed, feeddomain.MetaTrialPeriodUnit, feeddomain.MetaTrialPeriodLength); err != nil {
			return nil, err
		}
		plan.AddTrialCycle(trial)
	}

	prefs := resource.NewPaymentPreferences()
	if feed.MetaBool(feeddomain.MetaSetupFeeEnabled) {
		if fee := optionalAmount(req.Submission.SetupFee, currency); !fee.IsZero() {
			prefs.SetupFee = resource.NewMoney(currency, fee)
		}
	}
	plan.PaymentPreferences = prefs
	return plan, nil
}

// ensurePlan reuses the cached plan while its currency matches; otherwise
// it creates a plan, reloads it from the response and caches id and
// currency on the feed.
func (p *Provisioner) ensurePlan(ctx context.Context, req domain.Request, product *resource.Product) (*resource.Plan, error) {
	plan, err := buildPlan(req, product)
	if err != nil {
		return nil, err
	}

	currency := plan.Currency()
	cachedCurrency := req.Feed.MetaString(feeddomain.MetaPlanCurrency)
	if plan.ID != "" && strings.EqualFold(currency, cachedCurrency) {
		return plan, nil
	}

	plan.ID = ""
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	resp, err := p.client.CreatePlan(ctx, plan.Serialize())
	if err != nil {
		return nil, err
	}

	reloaded := resource.NewPlan()
	if err := reloaded.Hydrate(resp.Raw()); err != nil {
		return nil, err
	}
	if len(reloaded.BillingCycles) == 0 {
		reloaded.BillingCycles = plan.BillingCycles
	}
	if reloaded.PaymentPreferences == nil {
		reloaded.PaymentPreferences = plan.PaymentPreferences
	}
	reloaded.SetCurrency(currency)

	if err := p.cacheOnFeed(ctx, req.Feed, map[string]any{
		feeddomain.MetaPlanID:       reloaded.ID,
		feeddomain.MetaPlanCurrency: currency,
	}); err != nil {
		return nil, err
	}
	p.metrics.RecordProvisioning(ctx, string(domain.StepPlan), metrics.OutcomeApplied)
	p.log.Info("subscription plan created",
		zap.String("feed_id", req.Feed.ID.String()),
		zap.String("plan_id", reloaded.ID),
		zap.String("currency", currency),
	)
	return reloaded, nil
}

func buildSubscription(req domain.Request, plan *resource.Plan) (*resource.Subscription, error) {
	feed := req.Feed
	sub := &resource.Subscription{
		PlanID:   plan.ID,
		Quantity: "1",
	}

	given := req.Submission.Field(feed.MetaString(feeddomain.MetaBillingFirstName))
	surname := req.Submission.Field(feed.MetaString(feeddomain.MetaBillingLastName))
	email := req.Submission.Field(feed.MetaString(feeddomain.MetaBillingEmail))
	if given != "" || surname != "" || email != "" {
		subscriber := &resource.SubscriberRequest{EmailAddress: email}
		if given != "" || surname != "" {
			subscriber.Name = &resource.Name{GivenName: given, Surname: surname}
		}
		sub.Subscriber = subscriber
	}

	shipping := string(resource.ShippingPreferenceGetFromFile)
	if feed.MetaBool(feeddomain.MetaNoShipping) {
		shipping = string(resource.ShippingPreferenceNoShipping)
	}
	appCtx := &resource.ApplicationContext{}
	if err := appCtx.SetShippingPreference(shipping); err != nil {
		return nil, err
	}
	sub.ApplicationContext = appCtx

	if req.Entry != nil && req.Entry.ID != 0 {
		sub.CustomID = req.Entry.ID.String()
	}
	return sub, nil
}

func applyFrequency(freq *resource.Frequency, feed *feeddomain.Feed, unitKey, lengthKey string) error {
	if err := freq.SetIntervalUnit(feed.MetaString(unitKey)); err != nil {
		return err
	}
	freq.IntervalCount = feed.MetaInt(lengthKey)
	return nil
}

func optionalAmount(raw, currency string) decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero
	}
	value, err := money.Parse(raw, currency)
	if err != nil {
		return decimal.Zero
	}
	return money.Round(value, currency)
}

// cacheOnFeed writes remote ids to the stored feed and mirrors them on the
// in-memory copy so later steps of the same call see them.
func (p *Provisioner) cacheOnFeed(ctx context.Context, feed *feeddomain.Feed, values map[string]any) error {
	if err := p.feeds.UpdateFeedMeta(ctx, feed.ID, values); err != nil {
		return err
	}
	if feed.Meta == nil {
		feed.Meta = map[string]any{}
	}
	for key, value := range values {
		feed.Meta[key] = value
	}
	return nil
}
