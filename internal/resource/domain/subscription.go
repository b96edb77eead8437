package domain

import "strings"

// Subscription binds a subscriber to a plan. CustomID carries the local
// entry id so provider events can be correlated without a lookup table.
type Subscription struct {
	ID                 string              `json:"id,omitempty"`
	PlanID             string              `json:"plan_id" validate:"required,min=3,max=50"`
	Quantity           string              `json:"quantity,omitempty" validate:"omitempty,min=1,max=32,numeric"`
	CustomID           string              `json:"custom_id,omitempty" validate:"omitempty,min=1,max=127"`
	Status             SubscriptionStatus  `json:"status,omitempty" validate:"omitempty,oneof=APPROVAL_PENDING APPROVED ACTIVE SUSPENDED CANCELLED EXPIRED"`
	StartTime          string              `json:"start_time,omitempty"`
	Subscriber         *SubscriberRequest  `json:"subscriber,omitempty"`
	ApplicationContext *ApplicationContext `json:"application_context,omitempty"`
	Links              []Link              `json:"links,omitempty"`
}

var _ Resource = (*Subscription)(nil)

func (s *Subscription) SetStatus(raw string) error {
	status, err := parseEnum("subscription", "status", raw,
		SubscriptionStatusApprovalPending,
		SubscriptionStatusApproved,
		SubscriptionStatusActive,
		SubscriptionStatusSuspended,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	)
	if err != nil {
		return err
	}
	s.Status = status
	return nil
}

// ApproveURL returns the payer approval link, if the provider returned one.
func (s *Subscription) ApproveURL() string {
	for _, l := range s.Links {
		if l.Rel == "approve" {
			return l.Href
		}
	}
	return ""
}

func (s *Subscription) Hydrate(data map[string]any) error {
	if v, ok := readString(data, "id"); ok {
		s.ID = strings.TrimSpace(v)
	}
	if v, ok := readString(data, "plan_id"); ok {
		s.PlanID = strings.TrimSpace(v)
	}
	if v, ok := readString(data, "quantity"); ok {
		s.Quantity = v
	}
	if v, ok := readString(data, "custom_id"); ok {
		s.CustomID = v
	}
	if v, ok := readString(data, "status"); ok {
		if err := s.SetStatus(v); err != nil {
			return err
		}
	}
	if v, ok := readString(data, "start_time"); ok {
		s.StartTime = v
	}
	if raw, ok := readMap(data, "subscriber"); ok {
		sub := &SubscriberRequest{}
		if err := sub.Hydrate(raw); err != nil {
			return nested("subscription", "subscriber", err)
		}
		s.Subscriber = sub
	}
	if raw, ok := readMap(data, "application_context"); ok {
		ac := &ApplicationContext{}
		if err := ac.Hydrate(raw); err != nil {
			return nested("subscription", "application_context", err)
		}
		s.ApplicationContext = ac
	}
	if links := readLinks(data); links != nil {
		s.Links = links
	}
	return nil
}

func (s *Subscription) Serialize() map[string]any {
	out := map[string]any{}
	putString(out, "id", s.ID)
	putString(out, "plan_id", s.PlanID)
	putString(out, "quantity", s.Quantity)
	putString(out, "custom_id", s.CustomID)
	putString(out, "status", string(s.Status))
	putString(out, "start_time", s.StartTime)
	putResource(out, "subscriber", s.Subscriber, s.Subscriber != nil)
	putResource(out, "application_context", s.ApplicationContext, s.ApplicationContext != nil)
	return out
}

func (s *Subscription) Validate() error {
	return validateStruct("subscription", s)
}

// CreateRequest is the body sent when creating the subscription remotely.
// Provider-owned fields are left out.
func (s *Subscription) CreateRequest() map[string]any {
	out := s.Serialize()
	delete(out, "id")
	delete(out, "status")
	return out
}
