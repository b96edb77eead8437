package domain

import (
	"context"
	"errors"
	"fmt"

	checkoutdomain "github.com/smallbiznis/formpay/internal/checkout/domain"
	entrydomain "github.com/smallbiznis/formpay/internal/entry/domain"
	feeddomain "github.com/smallbiznis/formpay/internal/feed/domain"
	resource "github.com/smallbiznis/formpay/internal/resource/domain"
)

var (
	ErrMissingRecurringAmount   = errors.New("missing_recurring_amount")
	ErrUnsupportedPaymentMethod = errors.New("unsupported_payment_method")
	ErrMissingSubscriptionID    = errors.New("missing_subscription_id")
)

// UnknownErrorMessage is reported when a failure carries no message.
const UnknownErrorMessage = "An unknown error has occurred."

// Step names the remote resource a provisioning failure belongs to.
type Step string

const (
	StepProduct      Step = "product"
	StepPlan         Step = "plan"
	StepSubscription Step = "subscription"
)

// ProvisionError tags a failure with the prerequisite that could not be
// built, validated or created.
type ProvisionError struct {
	Step Step
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision %s: %v", e.Step, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// Request carries everything needed to provision a subscription for one
// submission. Entry may not be saved yet, in which case its ID is zero.
type Request struct {
	Feed           *feeddomain.Feed
	Entry          *entrydomain.Entry
	Submission     checkoutdomain.Submission
	SubscriptionID string
}

// Currency is the currency the plan is priced in.
func (r Request) Currency() string {
	if r.Entry == nil {
		return ""
	}
	return r.Entry.Currency
}

// Result is the normalized outcome reported back to the submission flow.
type Result struct {
	IsSuccess      bool   `json:"is_success"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	PlanID         string `json:"plan_id,omitempty"`
	Amount         string `json:"amount,omitempty"`
	Status         string `json:"status,omitempty"`
	ApproveURL     string `json:"approve_url,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// Provisioning is a subscription together with the plan it was built on.
type Provisioning struct {
	Subscription *resource.Subscription
	Plan         *resource.Plan
	Product      *resource.Product
}

type Provisioner interface {
	// Prepare resolves the product and plan, creating or reusing them, and
	// returns a validated subscription that has not been sent yet.
	Prepare(ctx context.Context, req Request) (*Provisioning, error)
	// Initialize creates the subscription, or activates the one the payer
	// already approved when req.SubscriptionID is set.
	Initialize(ctx context.Context, req Request) (*Provisioning, error)
	// Submit runs Initialize and reports the outcome as a Result.
	Submit(ctx context.Context, req Request) Result
	// TagEntry stamps the entry id onto the remote subscription.
	TagEntry(ctx context.Context, subscriptionID string, entryID string) error
}
