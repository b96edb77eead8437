package domain

type ProductType string

const (
	ProductTypePhysical ProductType = "PHYSICAL"
	ProductTypeDigital  ProductType = "DIGITAL"
	ProductTypeService  ProductType = "SERVICE"
)

type PlanStatus string

const (
	PlanStatusCreated PlanStatus = "CREATED"
	PlanStatusActive  PlanStatus = "ACTIVE"
)

type IntervalUnit string

const (
	IntervalUnitDay   IntervalUnit = "DAY"
	IntervalUnitWeek  IntervalUnit = "WEEK"
	IntervalUnitMonth IntervalUnit = "MONTH"
	IntervalUnitYear  IntervalUnit = "YEAR"
)

// MaxIntervalCount is the largest interval_count the provider accepts per unit.
func (u IntervalUnit) MaxIntervalCount() int {
	switch u {
	case IntervalUnitDay:
		return 365
	case IntervalUnitWeek:
		return 52
	case IntervalUnitMonth:
		return 12
	case IntervalUnitYear:
		return 1
	default:
		return 0
	}
}

type TenureType string

const (
	TenureTypeTrial   TenureType = "TRIAL"
	TenureTypeRegular TenureType = "REGULAR"
)

type SetupFeeFailureAction string

const (
	SetupFeeFailureActionContinue SetupFeeFailureAction = "CONTINUE"
	SetupFeeFailureActionCancel   SetupFeeFailureAction = "CANCEL"
)

type SubscriptionStatus string

const (
	SubscriptionStatusApprovalPending SubscriptionStatus = "APPROVAL_PENDING"
	SubscriptionStatusApproved        SubscriptionStatus = "APPROVED"
	SubscriptionStatusActive          SubscriptionStatus = "ACTIVE"
	SubscriptionStatusSuspended       SubscriptionStatus = "SUSPENDED"
	SubscriptionStatusCancelled       SubscriptionStatus = "CANCELLED"
	SubscriptionStatusExpired         SubscriptionStatus = "EXPIRED"
)

type ShippingPreference string

const (
	ShippingPreferenceGetFromFile        ShippingPreference = "GET_FROM_FILE"
	ShippingPreferenceNoShipping         ShippingPreference = "NO_SHIPPING"
	ShippingPreferenceSetProvidedAddress ShippingPreference = "SET_PROVIDED_ADDRESS"
)

type UserAction string

const (
	UserActionContinue     UserAction = "CONTINUE"
	UserActionSubscribeNow UserAction = "SUBSCRIBE_NOW"
)

type PayerSelected string

const (
	PayerSelectedPayPal PayerSelected = "PAYPAL"
)

type PayeePreferred string

const (
	PayeePreferredUnrestricted             PayeePreferred = "UNRESTRICTED"
	PayeePreferredImmediatePaymentRequired PayeePreferred = "IMMEDIATE_PAYMENT_REQUIRED"
)

type PhoneType string

const (
	PhoneTypeFax    PhoneType = "FAX"
	PhoneTypeHome   PhoneType = "HOME"
	PhoneTypeMobile PhoneType = "MOBILE"
	PhoneTypeOther  PhoneType = "OTHER"
	PhoneTypePager  PhoneType = "PAGER"
)
