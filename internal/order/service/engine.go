package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	entrydomain "github.com/smallbiznis/formpay/internal/entry/domain"
	"github.com/smallbiznis/formpay/internal/observability/logger"
	"github.com/smallbiznis/formpay/internal/observability/metrics"
	"github.com/smallbiznis/formpay/internal/observability/tracing"
	"github.com/smallbiznis/formpay/internal/order/domain"
	providerdomain "github.com/smallbiznis/formpay/internal/provider/domain"
	"github.com/smallbiznis/formpay/internal/provider/paypal"
	"github.com/smallbiznis/formpay/pkg/money"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	opAuthorize         = "authorize"
	opCapture           = "capture"
	opCreateOrder       = "create_order"
	opCaptureAuthorized = "capture_authorized"
	opRefund            = "refund"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Client  providerdomain.Client
	Entries entrydomain.Store
	Metrics *metrics.Metrics `optional:"true"`
}

type Engine struct {
	log     *zap.Logger
	client  providerdomain.Client
	entries entrydomain.Store
	metrics *metrics.Metrics
}

func NewEngine(p Params) domain.Engine {
	return &Engine{
		log:     p.Log.Named("order.service"),
		client:  p.Client,
		entries: p.Entries,
		metrics: p.Metrics,
	}
}

func (e *Engine) Authorize(ctx context.Context, req domain.AuthorizeRequest) domain.AuthorizeResult {
	ctx, span := tracing.Start(ctx, "order.authorize",
		attribute.String("order.id", req.OrderID),
		attribute.String("order.intent", string(req.Intent)),
	)
	defer span.End()

	log := logger.WithContext(ctx, e.log).With(zap.String("order_id", req.OrderID))
	result := e.authorize(ctx, log, req)
	if !result.IsAuthorized {
		span.SetStatus(codes.Error, "authorization failed")
		e.metrics.RecordPaymentOperation(ctx, opAuthorize, metrics.OutcomeFailed)
		return result
	}
	e.metrics.RecordPaymentOperation(ctx, opAuthorize, metrics.OutcomeSucceeded)
	return result
}

func (e *Engine) authorize(ctx context.Context, log *zap.Logger, req domain.AuthorizeRequest) domain.AuthorizeResult {
	currency := req.Currency
	amount, err := req.Submission.Amount(currency)
	if err != nil {
		log.Error("invalid payment amount", zap.String("payment_amount", req.Submission.PaymentAmount), zap.Error(err))
		return authorizationError(domain.MessageAmountMismatch)
	}

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		if amount.IsZero() {
			return domain.AuthorizeResult{IsAuthorized: true}
		}
		log.Error("cannot authorize payment", zap.Error(domain.ErrMissingOrderID))
		return authorizationError(domain.MessageMissingOrderID)
	}

	order, err := e.client.GetOrder(ctx, orderID)
	if err != nil {
		log.Error("get order failed", zap.Error(err))
		if providerdomain.IsNotFound(err) {
			return authorizationError(fmt.Sprintf(domain.MessageOrderNotFound, orderID))
		}
		return authorizationError(err.Error())
	}

	rawTotal := order.String("purchase_units", 0, "amount", "value")
	total, err := money.Parse(rawTotal, currency)
	if err != nil || !money.Equal(total, amount, currency) {
		log.Error("order total does not match payment amount",
			zap.String("order_total", rawTotal),
			zap.String("payment_amount", money.Format(amount, currency)),
			zap.Error(domain.ErrAmountMismatch),
		)
		return authorizationError(domain.MessageAmountMismatch)
	}

	if req.Intent != domain.IntentAuthorize {
		return domain.AuthorizeResult{IsAuthorized: true}
	}

	authorized, err := e.client.AuthorizeOrder(ctx, orderID)
	if err != nil {
		log.Error("authorize order failed", zap.Error(err))
		return authorizationError(providerdomain.WithDebugID(domain.MessageAuthorizeFailed, err))
	}
	if status := authorized.Status(); status != providerdomain.StatusCompleted {
		log.Error("order not authorized", zap.String("status", status), zap.Error(domain.ErrNotCompleted))
		return authorizationError(providerdomain.WithDebugID(fmt.Sprintf(domain.MessageAuthorizeStatus, status), authorized))
	}

	return domain.AuthorizeResult{
		IsAuthorized:  true,
		TransactionID: authorized.String("purchase_units", 0, "payments", "authorizations", 0, "id"),
	}
}

func (e *Engine) Capture(ctx context.Context, req domain.CaptureRequest) domain.CaptureResult {
	ctx, span := tracing.Start(ctx, "order.capture",
		attribute.String("order.id", req.OrderID),
		attribute.String("order.intent", string(req.Intent)),
	)
	defer span.End()

	log := logger.WithContext(ctx, e.log).With(zap.String("order_id", req.OrderID))
	if req.Entry == nil || req.Entry.ID == 0 {
		log.Error("capture without entry", zap.Error(entrydomain.ErrEntryNotFound))
		return captureError(domain.MessageCaptureFailed)
	}
	log = log.With(zap.String("entry_id", req.Entry.ID.String()))

	result := e.capture(ctx, log, req)
	switch {
	case result.IsSuccess:
		e.metrics.RecordPaymentOperation(ctx, opCapture, metrics.OutcomeSucceeded)
	case result.ErrorMessage != "":
		span.SetStatus(codes.Error, "capture failed")
		e.metrics.RecordPaymentOperation(ctx, opCapture, metrics.OutcomeFailed)
	case result.PaymentStatus == string(entrydomain.PaymentStatusPending):
		e.metrics.RecordPaymentOperation(ctx, opCapture, metrics.OutcomePending)
	default:
		e.metrics.RecordPaymentOperation(ctx, opCapture, metrics.OutcomeNoOp)
	}
	return result
}

func (e *Engine) capture(ctx context.Context, log *zap.Logger, req domain.CaptureRequest) domain.CaptureResult {
	orderID := strings.TrimSpace(req.OrderID)
	entryID := req.Entry.ID
	if orderID == "" {
		return domain.CaptureResult{}
	}

	if req.Intent == domain.IntentAuthorize {
		// The order stays authorized until captured from the entry.
		order, err := e.client.GetOrder(ctx, orderID)
		if err != nil {
			log.Warn("cannot load authorized order", zap.Error(err))
			return domain.CaptureResult{}
		}
		if err := e.entries.UpdateMeta(ctx, entryID, entrydomain.MetaOrderData, order.Raw()); err != nil {
			log.Error("cannot store order data", zap.Error(err))
		}
		return domain.CaptureResult{}
	}

	err := e.client.UpdateOrder(ctx, orderID, []providerdomain.PatchOperation{
		{Op: providerdomain.PatchAdd, Path: "custom_id", Value: entryID.String()},
	})
	if err != nil {
		log.Error("cannot tag order with entry id", zap.Error(err))
		return captureError(providerdomain.WithDebugID(domain.MessageTagOrderFailed, err))
	}

	order, err := e.client.CaptureOrder(ctx, orderID)
	if err != nil {
		log.Error("capture order failed", zap.Error(err))
		return captureError(providerdomain.WithDebugID(domain.MessageCaptureFailed, err))
	}

	status := order.Status()
	if status != providerdomain.StatusCompleted {
		message := fmt.Sprintf(domain.MessageCaptureStatus, status)
		reason := pendingReason(order)
		if status == providerdomain.StatusPending {
			message += fmt.Sprintf(domain.MessagePendingReason, reason)
		}
		message = providerdomain.WithDebugID(message, order)

		if status != providerdomain.StatusPending {
			log.Error("order not captured", zap.String("status", status), zap.Error(domain.ErrNotCompleted))
			return captureError(message)
		}

		log.Info("capture pending", zap.String("reason", reason))
		if err := e.markPending(ctx, entryID, order, reason); err != nil {
			log.Error("cannot record pending capture", zap.Error(err))
			return captureError(providerdomain.WithDebugID(domain.MessageCaptureFailed, order))
		}
		return domain.CaptureResult{PaymentStatus: string(entrydomain.PaymentStatusPending)}
	}

	method := strings.TrimSpace(req.CardType)
	if method == "" {
		method = entrydomain.PaymentMethodPayPal
	}
	return domain.CaptureResult{
		IsSuccess:     true,
		TransactionID: order.String("purchase_units", 0, "payments", "captures", 0, "id"),
		Amount:        order.String("purchase_units", 0, "payments", "captures", 0, "amount", "value"),
		PaymentMethod: method,
		PaymentStatus: string(entrydomain.PaymentStatusPaid),
	}
}

// markPending records a held capture so the entry can be completed later.
func (e *Engine) markPending(ctx context.Context, entryID snowflake.ID, order providerdomain.Payload, reason string) error {
	if err := e.entries.UpdateProperty(ctx, entryID, entrydomain.PropertyPaymentStatus, entrydomain.PaymentStatusPending); err != nil {
		return err
	}
	if err := e.entries.UpdateProperty(ctx, entryID, entrydomain.PropertyPaymentMethod, entrydomain.PaymentMethodPayPal); err != nil {
		return err
	}
	if reason != "" {
		if err := e.entries.UpdateMeta(ctx, entryID, entrydomain.MetaPendingReason, reason); err != nil {
			return err
		}
	}
	return e.entries.UpdateMeta(ctx, entryID, entrydomain.MetaOrderData, order.Raw())
}

func (e *Engine) Settle(ctx context.Context, entryID snowflake.ID, auth domain.AuthorizeResult, captured domain.CaptureResult) error {
	entry, err := e.entries.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}

	switch {
	case captured.IsSuccess:
		return e.entries.Apply(ctx, entrydomain.Action{
			Type:          entrydomain.ActionCompletePayment,
			EntryID:       entry.ID,
			TransactionID: captured.TransactionID,
			Amount:        amountOr(captured.Amount, entry),
			Currency:      entry.Currency,
			PaymentMethod: captured.PaymentMethod,
		})
	case captured.ErrorMessage != "":
		return e.entries.Apply(ctx, entrydomain.Action{
			Type:     entrydomain.ActionFailPayment,
			EntryID:  entry.ID,
			Amount:   entry.PaymentAmount,
			Currency: entry.Currency,
		})
	case auth.IsAuthorized:
		return e.CompleteAuthorization(ctx, entry.ID, auth.TransactionID)
	default:
		return nil
	}
}

func (e *Engine) CompleteAuthorization(ctx context.Context, entryID snowflake.ID, transactionID string) error {
	entry, err := e.entries.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	order := providerdomain.Payload(entry.MetaMap(entrydomain.MetaOrderData))

	if entry.PaymentStatus == entrydomain.PaymentStatusPending {
		return e.entries.Apply(ctx, entrydomain.Action{
			Type:          entrydomain.ActionAddPendingPayment,
			EntryID:       entry.ID,
			TransactionID: order.String("purchase_units", 0, "payments", "captures", 0, "id"),
			Amount:        amountOr(order.String("purchase_units", 0, "payments", "captures", 0, "amount", "value"), entry),
			Currency:      entry.Currency,
			PaymentMethod: entrydomain.PaymentMethodPayPal,
			Reason:        entry.MetaString(entrydomain.MetaPendingReason),
		})
	}

	return e.entries.Apply(ctx, entrydomain.Action{
		Type:          entrydomain.ActionCompleteAuthorization,
		EntryID:       entry.ID,
		TransactionID: transactionID,
		Amount:        amountOr(order.String("purchase_units", 0, "payments", "authorizations", 0, "amount", "value"), entry),
		Currency:      entry.Currency,
	})
}

func (e *Engine) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (string, error) {
	ctx, span := tracing.Start(ctx, "order.create", attribute.String("order.intent", string(req.Intent)))
	defer span.End()
	log := logger.WithContext(ctx, e.log)

	details := providerdomain.Payload(req.Details)
	total, err := decimal.NewFromString(strings.TrimSpace(details.String("purchase_units", 0, "amount", "value")))
	if err != nil || !total.IsPositive() {
		e.metrics.RecordPaymentOperation(ctx, opCreateOrder, metrics.OutcomeRejected)
		return "", &domain.Error{Message: domain.MessageInvalidTotal, Err: domain.ErrInvalidAmount}
	}

	body := make(map[string]any, len(req.Details)+1)
	for key, value := range req.Details {
		body[key] = value
	}
	body["intent"] = req.Intent.Upper()

	order, err := e.client.CreateOrder(ctx, body)
	if err != nil {
		log.Error("create order failed", zap.Error(err))
		span.RecordError(tracing.SafeError(err))
		e.metrics.RecordPaymentOperation(ctx, opCreateOrder, metrics.OutcomeFailed)
		return "", &domain.Error{Message: paypal.UserMessage(err), Err: err}
	}
	orderID := order.String("id")
	if orderID == "" {
		e.metrics.RecordPaymentOperation(ctx, opCreateOrder, metrics.OutcomeFailed)
		return "", &domain.Error{
			Message: providerdomain.WithDebugID(paypal.GenericErrorMessage, order),
			Err:     providerdomain.ErrInvalidResponse,
		}
	}

	e.metrics.RecordPaymentOperation(ctx, opCreateOrder, metrics.OutcomeSucceeded)
	log.Info("order created", zap.String("order_id", orderID), zap.String("intent", req.Intent.Upper()))
	return orderID, nil
}

func (e *Engine) CaptureAuthorized(ctx context.Context, entryID snowflake.ID) error {
	ctx, span := tracing.Start(ctx, "order.capture_authorized", attribute.String("entry.id", entryID.String()))
	defer span.End()
	log := logger.WithContext(ctx, e.log).With(zap.String("entry_id", entryID.String()))

	entry, err := e.entries.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(entry.TransactionID) == "" {
		return &domain.Error{Message: domain.MessageAdminCaptureFailed, Err: domain.ErrMissingTransactionID}
	}

	capture, err := e.client.CaptureAuthorization(ctx, entry.TransactionID)
	if err != nil {
		log.Error("capture authorization failed", zap.String("transaction_id", entry.TransactionID), zap.Error(err))
		span.RecordError(tracing.SafeError(err))
		e.metrics.RecordPaymentOperation(ctx, opCaptureAuthorized, metrics.OutcomeFailed)
		return &domain.Error{Message: domain.MessageAdminCaptureFailed, Err: err}
	}

	action := entrydomain.Action{
		EntryID:       entry.ID,
		TransactionID: capture.String("id"),
		Amount:        entry.PaymentAmount,
		Currency:      entry.Currency,
	}
	outcome := metrics.OutcomeSucceeded
	switch capture.Status() {
	case providerdomain.StatusCompleted:
		action.Type = entrydomain.ActionCompletePayment
	case providerdomain.StatusPending:
		action.Type = entrydomain.ActionAddPendingPayment
		action.PaymentMethod = entrydomain.PaymentMethodPayPal
		action.Reason = capture.String("status_details", "reason")
		outcome = metrics.OutcomePending
	default:
		action.Type = entrydomain.ActionFailPayment
		outcome = metrics.OutcomeFailed
	}
	e.metrics.RecordPaymentOperation(ctx, opCaptureAuthorized, outcome)
	return e.entries.Apply(ctx, action)
}

func (e *Engine) Refund(ctx context.Context, entryID snowflake.ID) error {
	ctx, span := tracing.Start(ctx, "order.refund", attribute.String("entry.id", entryID.String()))
	defer span.End()
	log := logger.WithContext(ctx, e.log).With(zap.String("entry_id", entryID.String()))

	entry, err := e.entries.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(entry.TransactionID) == "" {
		return &domain.Error{Message: domain.MessageAdminRefundFailed, Err: domain.ErrMissingTransactionID}
	}

	refund, err := e.client.RefundCapture(ctx, entry.TransactionID)
	if err != nil {
		log.Error("refund failed", zap.String("transaction_id", entry.TransactionID), zap.Error(err))
		span.RecordError(tracing.SafeError(err))
		e.metrics.RecordPaymentOperation(ctx, opRefund, metrics.OutcomeFailed)
		return &domain.Error{Message: domain.MessageAdminRefundFailed, Err: err}
	}

	switch refund.Status() {
	case providerdomain.StatusCompleted:
		e.metrics.RecordPaymentOperation(ctx, opRefund, metrics.OutcomeSucceeded)
		return e.entries.Apply(ctx, entrydomain.Action{
			Type:          entrydomain.ActionRefundPayment,
			EntryID:       entry.ID,
			TransactionID: refund.String("id"),
			Amount:        entry.PaymentAmount,
			Currency:      entry.Currency,
		})
	case providerdomain.StatusPending:
		e.metrics.RecordPaymentOperation(ctx, opRefund, metrics.OutcomePending)
		return e.entries.AddNote(ctx, entry.ID, domain.NoteRefundPending)
	default:
		e.metrics.RecordPaymentOperation(ctx, opRefund, metrics.OutcomeFailed)
		return e.entries.AddNote(ctx, entry.ID, domain.NoteRefundFailed)
	}
}

func authorizationError(message string) domain.AuthorizeResult {
	return domain.AuthorizeResult{IsAuthorized: false, ErrorMessage: message}
}

func captureError(message string) domain.CaptureResult {
	return domain.CaptureResult{IsSuccess: false, ErrorMessage: message}
}

// pendingReason reads the hold reason from the order or its first capture.
func pendingReason(order providerdomain.Payload) string {
	if reason := order.String("reason_code"); reason != "" {
		return reason
	}
	return order.String("purchase_units", 0, "payments", "captures", 0, "status_details", "reason")
}

// amountOr parses a provider amount in the entry currency, falling back to
// the entry amount.
func amountOr(raw string, entry *entrydomain.Entry) decimal.Decimal {
	value, err := money.Parse(raw, entry.Currency)
	if err != nil {
		return entry.PaymentAmount
	}
	return money.Round(value, entry.Currency)
}
