package domain

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	providerdomain "github.com/smallbiznis/formpay/internal/provider/domain"
)

// Event types handled by the engine.
const (
	EventCaptureRefunded           = "PAYMENT.CAPTURE.REFUNDED"
	EventAuthorizationVoided       = "PAYMENT.AUTHORIZATION.VOIDED"
	EventCaptureCompleted          = "PAYMENT.CAPTURE.COMPLETED"
	EventCaptureDenied             = "PAYMENT.CAPTURE.DENIED"
	EventSaleCompleted             = "PAYMENT.SALE.COMPLETED"
	EventSubscriptionPaymentFailed = "BILLING.SUBSCRIPTION.PAYMENT.FAILED"
	EventSubscriptionCancelled     = "BILLING.SUBSCRIPTION.CANCELLED"
	EventSubscriptionExpired       = "BILLING.SUBSCRIPTION.EXPIRED"
)

// Resource types carried in the event envelope.
const (
	ResourceCapture       = "capture"
	ResourceAuthorization = "authorization"
	ResourceSubscription  = "subscription"
	ResourceRefund        = "refund"
	ResourceCheckoutOrder = "checkout-order"
	ResourceSale          = "sale"
)

// Transmission headers sent with every delivery.
const (
	HeaderTransmissionID   = "PAYPAL-TRANSMISSION-ID"
	HeaderTransmissionTime = "PAYPAL-TRANSMISSION-TIME"
	HeaderCertURL          = "PAYPAL-CERT-URL"
	HeaderAuthAlgo         = "PAYPAL-AUTH-ALGO"
	HeaderTransmissionSig  = "PAYPAL-TRANSMISSION-SIG"
)

// Headers are the signature inputs of a delivery.
type Headers struct {
	TransmissionID   string
	TransmissionTime string
	CertURL          string
	AuthAlgo         string
	TransmissionSig  string
}

// HeadersFrom reads the transmission headers from an inbound request.
func HeadersFrom(h http.Header) Headers {
	return Headers{
		TransmissionID:   strings.TrimSpace(h.Get(HeaderTransmissionID)),
		TransmissionTime: strings.TrimSpace(h.Get(HeaderTransmissionTime)),
		CertURL:          strings.TrimSpace(h.Get(HeaderCertURL)),
		AuthAlgo:         strings.TrimSpace(h.Get(HeaderAuthAlgo)),
		TransmissionSig:  strings.TrimSpace(h.Get(HeaderTransmissionSig)),
	}
}

func (h Headers) Complete() bool {
	return h.TransmissionID != "" && h.TransmissionTime != "" && h.CertURL != "" &&
		h.AuthAlgo != "" && h.TransmissionSig != ""
}

// Event is the provider's webhook envelope.
type Event struct {
	ID              string
	EventType       string
	ResourceType    string
	EventVersion    string
	ResourceVersion string
	Resource        providerdomain.Payload
}

// ParseEvent decodes a raw delivery body. Numbers are kept as json.Number
// so amounts never pass through float64.
func ParseEvent(raw []byte) (*Event, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var envelope providerdomain.Payload
	if err := dec.Decode(&envelope); err != nil || envelope == nil {
		return nil, ErrInvalidEvent
	}
	event := &Event{
		ID:              strings.TrimSpace(envelope.String("id")),
		EventType:       strings.ToUpper(strings.TrimSpace(envelope.String("event_type"))),
		ResourceType:    strings.ToLower(strings.TrimSpace(envelope.String("resource_type"))),
		EventVersion:    envelope.String("event_version"),
		ResourceVersion: envelope.String("resource_version"),
		Resource:        envelope.Map("resource"),
	}
	if event.ID == "" || event.EventType == "" {
		return nil, ErrInvalidEvent
	}
	if event.Resource == nil {
		event.Resource = providerdomain.Payload{}
	}
	return event, nil
}

// CustomID returns the entry id stamped on the resource, looking into the
// first purchase unit for checkout orders.
func (e *Event) CustomID() string {
	if id := strings.TrimSpace(e.Resource.String("custom_id")); id != "" {
		return id
	}
	if e.ResourceType == ResourceCheckoutOrder {
		return strings.TrimSpace(e.Resource.String("purchase_units", 0, "custom_id"))
	}
	return ""
}

// TransactionID derives the id the entry was stored under. Resource types
// listed in linked are resolved through their "up" link.
func (e *Event) TransactionID(linked func(resourceType string) bool) string {
	if linked != nil && linked(e.ResourceType) {
		return upLinkID(e.Resource)
	}
	switch e.ResourceType {
	case ResourceCapture, ResourceAuthorization, ResourceSubscription:
		return e.Resource.String("id")
	case ResourceCheckoutOrder:
		return e.Resource.String("purchase_units", 0, "payments", "captures", 0, "id")
	case ResourceSale:
		return e.Resource.String("billing_agreement_id")
	default:
		return ""
	}
}

func upLinkID(resource providerdomain.Payload) string {
	for _, link := range resource.Slice("links") {
		if !strings.EqualFold(link.String("rel"), "up") {
			continue
		}
		href := strings.TrimRight(strings.TrimSpace(link.String("href")), "/")
		if href == "" {
			continue
		}
		if id := path.Base(href); id != "." && id != "/" {
			return id
		}
	}
	return ""
}
