package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formpay/internal/checkout/domain"
	entrydomain "github.com/smallbiznis/formpay/internal/entry/domain"
	feeddomain "github.com/smallbiznis/formpay/internal/feed/domain"
	"github.com/smallbiznis/formpay/internal/observability/logger"
	"github.com/smallbiznis/formpay/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/formpay/internal/order/domain"
	subscriptiondomain "github.com/smallbiznis/formpay/internal/subscription/domain"
	"github.com/smallbiznis/formpay/pkg/money"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const zeroTotalNote = "No payment was required for this submission."

type Params struct {
	fx.In

	Log           *zap.Logger
	Feeds         feeddomain.Store
	Entries       entrydomain.Store
	Orders        orderdomain.Engine
	Subscriptions subscriptiondomain.Provisioner
}

type Service struct {
	log           *zap.Logger
	feeds         feeddomain.Store
	entries       entrydomain.Store
	orders        orderdomain.Engine
	subscriptions subscriptiondomain.Provisioner
}

func NewService(p Params) domain.Service {
	return &Service{
		log:           p.Log.Named("checkout.service"),
		feeds:         p.Feeds,
		entries:       p.Entries,
		orders:        p.Orders,
		subscriptions: p.Subscriptions,
	}
}

// SelectIntent picks how a feed's payment is taken. An authorize-only feed
// wins over everything; subscription feeds are ignored while the payment
// button creates its order.
func SelectIntent(feed *feeddomain.Feed, phase domain.Context) orderdomain.Intent {
	switch {
	case feed.IsAuthorizeOnly():
		return orderdomain.IntentAuthorize
	case phase != domain.ContextCreateOrder && feed.IsSubscription():
		return orderdomain.IntentSubscription
	default:
		return orderdomain.IntentCapture
	}
}

func (s *Service) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (string, error) {
	if len(req.Details) == 0 {
		return "", domain.ErrInvalidOrderBody
	}
	feed, err := s.activeFeed(ctx, req.FeedID)
	if err != nil {
		return "", err
	}
	return s.orders.CreateOrder(ctx, orderdomain.CreateOrderRequest{
		Intent:  SelectIntent(feed, domain.ContextCreateOrder),
		Details: req.Details,
	})
}

func (s *Service) PrepareSubscription(ctx context.Context, req domain.PrepareSubscriptionRequest) (map[string]any, error) {
	feed, err := s.activeFeed(ctx, req.FeedID)
	if err != nil {
		return nil, err
	}
	if !feed.IsSubscription() {
		return nil, domain.ErrNotSubscription
	}

	prov, err := s.subscriptions.Prepare(ctx, subscriptiondomain.Request{
		Feed:       feed,
		Entry:      &entrydomain.Entry{FormID: feed.FormID, Currency: req.Currency},
		Submission: req.Submission,
	})
	if err != nil {
		return nil, err
	}
	return prov.Subscription.CreateRequest(), nil
}

func (s *Service) ProcessSubmission(ctx context.Context, req domain.SubmissionRequest) (*domain.SubmissionResult, error) {
	feed, err := s.activeFeed(ctx, req.FeedID)
	if err != nil {
		return nil, err
	}
	intent := SelectIntent(feed, domain.ContextSubmission)

	ctx, span := tracing.Start(ctx, "checkout.submission",
		attribute.String("feed.id", feed.ID.String()),
		attribute.String("checkout.intent", string(intent)),
	)
	defer span.End()

	if intent == orderdomain.IntentSubscription {
		return s.processSubscription(ctx, feed, req)
	}
	return s.processProduct(ctx, feed, intent, req)
}

func (s *Service) processProduct(ctx context.Context, feed *feeddomain.Feed, intent orderdomain.Intent, req domain.SubmissionRequest) (*domain.SubmissionResult, error) {
	log := logger.WithContext(ctx, s.log).With(
		zap.String("feed_id", feed.ID.String()),
		zap.String("intent", string(intent)),
	)
	result := &domain.SubmissionResult{Intent: string(intent)}

	auth := s.orders.Authorize(ctx, orderdomain.AuthorizeRequest{
		Intent:     intent,
		OrderID:    req.OrderID,
		Currency:   req.Currency,
		Submission: req.Submission,
	})
	if !auth.IsAuthorized {
		log.Info("submission not authorized", zap.String("reason", auth.ErrorMessage))
		result.ErrorMessage = auth.ErrorMessage
		return result, nil
	}

	entry, err := s.saveEntry(ctx, feed, req, entrydomain.TransactionTypeProduct)
	if err != nil {
		return nil, err
	}
	result.EntryID = entry.ID.String()

	// Zero totals authorize without an order. Nothing is owed, so the entry
	// is final straight away.
	if strings.TrimSpace(req.OrderID) == "" {
		if err := s.completeWithoutPayment(ctx, entry); err != nil {
			return nil, err
		}
		result.IsSuccess = true
		result.PaymentStatus = string(entry.PaymentStatus)
		return result, nil
	}

	captured := s.orders.Capture(ctx, orderdomain.CaptureRequest{
		Intent:   intent,
		OrderID:  req.OrderID,
		Entry:    entry,
		CardType: req.CardType,
	})
	if err := s.orders.Settle(ctx, entry.ID, auth, captured); err != nil {
		return nil, err
	}

	settled, err := s.entries.GetEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	result.IsSuccess = captured.ErrorMessage == ""
	result.ErrorMessage = captured.ErrorMessage
	result.TransactionID = settled.TransactionID
	result.PaymentStatus = string(settled.PaymentStatus)

	log.Info("submission processed",
		zap.String("entry_id", result.EntryID),
		zap.String("payment_status", result.PaymentStatus),
	)
	return result, nil
}

func (s *Service) processSubscription(ctx context.Context, feed *feeddomain.Feed, req domain.SubmissionRequest) (*domain.SubmissionResult, error) {
	log := logger.WithContext(ctx, s.log).With(zap.String("feed_id", feed.ID.String()))
	result := &domain.SubmissionResult{Intent: string(orderdomain.IntentSubscription)}

	provisioned := s.subscriptions.Submit(ctx, subscriptiondomain.Request{
		Feed:           feed,
		Entry:          &entrydomain.Entry{FormID: req.FormID, Currency: req.Currency},
		Submission:     req.Submission,
		SubscriptionID: req.SubscriptionID,
	})
	if !provisioned.IsSuccess {
		result.ErrorMessage = provisioned.ErrorMessage
		return result, nil
	}

	entry, err := s.saveEntry(ctx, feed, req, entrydomain.TransactionTypeSubscription)
	if err != nil {
		return nil, err
	}
	result.EntryID = entry.ID.String()

	if err := s.subscriptions.TagEntry(ctx, provisioned.SubscriptionID, entry.ID.String()); err != nil {
		// Events still resolve through the subscription id.
		log.Warn("cannot tag subscription with entry id",
			zap.String("subscription_id", provisioned.SubscriptionID),
			zap.Error(err),
		)
	}
	if err := s.entries.UpdateMeta(ctx, entry.ID, entrydomain.MetaPlanID, provisioned.PlanID); err != nil {
		return nil, err
	}
	if err := s.entries.UpdateMeta(ctx, entry.ID, entrydomain.MetaSubscriptionID, provisioned.SubscriptionID); err != nil {
		return nil, err
	}

	action := entrydomain.Action{
		Type:           entrydomain.ActionCreateSubscription,
		EntryID:        entry.ID,
		SubscriptionID: provisioned.SubscriptionID,
		Amount:         entry.PaymentAmount,
		Currency:       entry.Currency,
		PaymentMethod:  entrydomain.PaymentMethodPayPal,
	}
	if recurring, err := money.Parse(provisioned.Amount, entry.Currency); err == nil {
		action.Amount = money.Round(recurring, entry.Currency)
	}
	if err := s.entries.Apply(ctx, action); err != nil {
		return nil, err
	}

	result.IsSuccess = true
	result.SubscriptionID = provisioned.SubscriptionID
	result.TransactionID = provisioned.SubscriptionID
	result.PaymentStatus = string(entrydomain.PaymentStatusActive)
	result.ApproveURL = provisioned.ApproveURL

	log.Info("subscription submission processed",
		zap.String("entry_id", result.EntryID),
		zap.String("subscription_id", provisioned.SubscriptionID),
		zap.String("status", provisioned.Status),
	)
	return result, nil
}

func (s *Service) saveEntry(ctx context.Context, feed *feeddomain.Feed, req domain.SubmissionRequest, txType entrydomain.TransactionType) (*entrydomain.Entry, error) {
	amount, err := req.Submission.Amount(req.Currency)
	if err != nil {
		return nil, err
	}
	formID := req.FormID
	if formID == 0 {
		formID = feed.FormID
	}
	feedID := feed.ID
	entry := &entrydomain.Entry{
		FormID:          formID,
		FeedID:          &feedID,
		PaymentStatus:   entrydomain.PaymentStatusProcessing,
		TransactionType: txType,
		PaymentAmount:   amount,
		Currency:        req.Currency,
	}
	if err := s.entries.SaveEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) completeWithoutPayment(ctx context.Context, entry *entrydomain.Entry) error {
	if err := s.entries.UpdateProperty(ctx, entry.ID, entrydomain.PropertyPaymentStatus, entrydomain.PaymentStatusPaid); err != nil {
		return err
	}
	if err := s.entries.AddNote(ctx, entry.ID, zeroTotalNote); err != nil {
		return err
	}
	entry.PaymentStatus = entrydomain.PaymentStatusPaid
	return nil
}

func (s *Service) activeFeed(ctx context.Context, id snowflake.ID) (*feeddomain.Feed, error) {
	feed, err := s.feeds.GetFeed(ctx, id)
	if err != nil {
		return nil, err
	}
	if !feed.IsActive {
		return nil, domain.ErrFeedInactive
	}
	return feed, nil
}
