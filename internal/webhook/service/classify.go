package service

import (
	"github.com/shopspring/decimal"
	entrydomain "github.com/smallbiznis/formpay/internal/entry/domain"
	"github.com/smallbiznis/formpay/internal/webhook/domain"
	"github.com/smallbiznis/formpay/pkg/money"
)

// classify maps an event onto the entry action it implies. It returns nil
// for unknown event types and for events the entry status already reflects.
func classify(entry *entrydomain.Entry, event *domain.Event, linked func(string) bool) *entrydomain.Action {
	action := &entrydomain.Action{
		EntryID:       entry.ID,
		TransactionID: entry.TransactionID,
		Currency:      entry.Currency,
	}
	resource := event.Resource

	switch event.EventType {
	case domain.EventCaptureRefunded:
		action.Type = entrydomain.ActionRefundPayment
		action.Amount = amount(resource.String("seller_payable_breakdown", "total_refunded_amount", "value"), entry.Currency)
	case domain.EventAuthorizationVoided:
		action.Type = entrydomain.ActionVoidAuthorization
	case domain.EventCaptureCompleted:
		if !awaitingCapture(entry) {
			return nil
		}
		action.Type = entrydomain.ActionCompletePayment
		action.Amount = amount(resource.String("amount", "value"), entry.Currency)
	case domain.EventCaptureDenied:
		if !awaitingCapture(entry) {
			return nil
		}
		action.Type = entrydomain.ActionFailPayment
		action.Amount = amount(resource.String("amount", "value"), entry.Currency)
	case domain.EventSaleCompleted:
		action.Type = entrydomain.ActionAddSubscriptionPayment
		action.Amount = amount(resource.String("amount", "total"), entry.Currency)
		action.SubscriptionID = event.TransactionID(linked)
		action.TransactionID = resource.String("id")
	case domain.EventSubscriptionPaymentFailed:
		action.Type = entrydomain.ActionFailSubscriptionPayment
		action.Amount = amount(resource.String("amount", "total"), entry.Currency)
		action.SubscriptionID = event.TransactionID(linked)
		action.TransactionID = resource.String("id")
	case domain.EventSubscriptionCancelled:
		action.Type = entrydomain.ActionCancelSubscription
		action.SubscriptionID = event.TransactionID(linked)
	case domain.EventSubscriptionExpired:
		// Expiry is delivered more than once.
		if entry.PaymentStatus == entrydomain.PaymentStatusExpired {
			return nil
		}
		action.Type = entrydomain.ActionExpireSubscription
		action.SubscriptionID = event.TransactionID(linked)
	default:
		return nil
	}
	return action
}

func awaitingCapture(entry *entrydomain.Entry) bool {
	switch entry.PaymentStatus {
	case entrydomain.PaymentStatusAuthorized, entrydomain.PaymentStatusPending:
		return true
	default:
		return false
	}
}

// amount reads a provider amount in the entry currency, zero when absent.
func amount(raw, currency string) decimal.Decimal {
	d, err := money.Parse(raw, currency)
	if err != nil {
		return decimal.Zero
	}
	return money.Round(d, currency)
}
