package domain

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrFeedNotFound = errors.New("feed_not_found")
	ErrInvalidFeed  = errors.New("invalid_feed")
)

// Meta keys read from or written to a feed.
const (
	MetaProductID    = "ppcpSubscriptionProductID"
	MetaPlanID       = "ppcpSubscriptionPlanID"
	MetaPlanCurrency = "ppcpSubscriptionPlanIDCurrency"

	MetaFeedName           = "feedName"
	MetaTransactionType    = "transactionType"
	MetaAuthorizeOnly      = "authorizeOnly"
	MetaRecurringAmount    = "recurringAmount"
	MetaSubscriptionType   = "subscription_type"
	MetaBillingCycleLength = "billingCycle_length"
	MetaBillingCycleUnit   = "billingCycle_unit"
	MetaRecurringRetry     = "recurringRetry"
	MetaRecurringTimes     = "recurringTimes"
	MetaSetupFeeEnabled    = "setupFee_enabled"
	MetaSetupFeeProduct    = "setupFee_product"
	MetaTrialEnabled       = "trial_enabled"
	MetaTrialPriceProduct  = "trialPrice_product"
	MetaTrialPriceAmount   = "trialPrice_amount"
	MetaTrialPeriodLength  = "trialPeriod_length"
	MetaTrialPeriodUnit    = "trialPeriod_unit"
	MetaTrialProduct       = "trial_product"
	MetaTrialAmount        = "trial_amount"
	MetaNoShipping         = "no_shipping"

	MetaBillingFirstName = "billingInformation_first_name"
	MetaBillingLastName  = "billingInformation_last_name"
	MetaBillingEmail     = "billingInformation_email"
)

const TransactionTypeSubscription = "subscription"

// ProviderProperties are the settings that shape the remote product and plan.
// Changing any of them invalidates the cached remote ids.
var ProviderProperties = []string{
	MetaFeedName,
	MetaTransactionType,
	MetaRecurringAmount,
	MetaSubscriptionType,
	MetaBillingCycleLength,
	MetaBillingCycleUnit,
	MetaRecurringRetry,
	MetaRecurringTimes,
	MetaSetupFeeEnabled,
	MetaSetupFeeProduct,
	MetaTrialEnabled,
	MetaTrialPriceProduct,
	MetaTrialPriceAmount,
	MetaTrialPeriodLength,
	MetaTrialPeriodUnit,
	MetaNoShipping,
}

// Feed is a payment configuration attached to a form.
type Feed struct {
	ID        snowflake.ID      `json:"id" gorm:"primaryKey"`
	FormID    snowflake.ID      `json:"form_id" gorm:"not null;index"`
	AddonSlug string            `json:"addon_slug" gorm:"size:64;not null"`
	IsActive  bool              `json:"is_active" gorm:"not null;default:true"`
	Meta      datatypes.JSONMap `json:"meta"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (Feed) TableName() string { return "feeds" }

// MetaString renders a meta value as a string. Numbers and booleans are
// formatted the way a settings form would post them.
func (f *Feed) MetaString(key string) string {
	if f == nil || f.Meta == nil {
		return ""
	}
	switch v := f.Meta[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// MetaBool reports whether a checkbox style setting is on.
func (f *Feed) MetaBool(key string) bool {
	switch strings.ToLower(f.MetaString(key)) {
	case "", "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

// MetaInt reads a numeric setting, 0 when absent or malformed.
func (f *Feed) MetaInt(key string) int {
	n, err := strconv.Atoi(f.MetaString(key))
	if err != nil {
		return 0
	}
	return n
}

func (f *Feed) IsSubscription() bool {
	return f.MetaString(MetaTransactionType) == TransactionTypeSubscription
}

func (f *Feed) IsAuthorizeOnly() bool {
	return f.MetaString(MetaAuthorizeOnly) == "1"
}

func (f *Feed) Name() string {
	return f.MetaString(MetaFeedName)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, feed *Feed) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Feed, error)
	UpdateMeta(ctx context.Context, db *gorm.DB, id snowflake.ID, meta datatypes.JSONMap, updatedAt time.Time) error
}

// Store is the feed persistence contract used by the payment engines.
type Store interface {
	SaveFeed(ctx context.Context, feed *Feed) error
	GetFeed(ctx context.Context, id snowflake.ID) (*Feed, error)
	// UpdateFeedMeta merges values into the feed meta. A nil value removes
	// the key.
	UpdateFeedMeta(ctx context.Context, id snowflake.ID, values map[string]any) error
	// SaveSettings replaces the feed settings, clearing cached remote
	// product and plan ids when a provider property changed.
	SaveSettings(ctx context.Context, id snowflake.ID, settings map[string]any) (*Feed, error)
}
