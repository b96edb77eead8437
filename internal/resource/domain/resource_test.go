package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlan() *Plan {
	plan := NewPlan()
	plan.ProductID = "PROD-123456"
	plan.Name = "Gold membership"
	plan.BillingCycles = []BillingCycle{
		{
			PricingScheme: &PricingScheme{FixedPrice: NewMoney("USD", decimal.RequireFromString("10"))},
			Frequency:     NewFrequency(IntervalUnitMonth, 1),
			TenureType:    TenureTypeRegular,
			Sequence:      1,
			TotalCycles:   0,
		},
	}
	plan.PaymentPreferences = NewPaymentPreferences()
	return plan
}

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	assert.Equal(t, field, ve.Field)
	assert.True(t, errors.Is(err, ErrInvalidResource))
}

func TestProductValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(p *Product)
		field   string
		wantErr bool
	}{
		{name: "valid", mutate: func(p *Product) {}},
		{name: "missing name", mutate: func(p *Product) { p.Name = "" }, field: "name", wantErr: true},
		{name: "name too long", mutate: func(p *Product) { p.Name = strings.Repeat("a", 128) }, field: "name", wantErr: true},
		{name: "id too short", mutate: func(p *Product) { p.ID = "PROD" }, field: "id", wantErr: true},
		{name: "description too long", mutate: func(p *Product) { p.Description = strings.Repeat("d", 257) }, field: "description", wantErr: true},
		{name: "missing type", mutate: func(p *Product) { p.Type = "" }, field: "type", wantErr: true},
		{name: "image url too long", mutate: func(p *Product) { p.ImageURL = strings.Repeat("u", 2001) }, field: "image_url", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Product{Name: "Gold membership", Type: ProductTypeService}
			tc.mutate(p)
			err := p.Validate()
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			requireValidationField(t, err, tc.field)
		})
	}
}

func TestProductHydrateUppercasesTypeAndIgnoresContext(t *testing.T) {
	p := &Product{}
	err := p.Hydrate(map[string]any{
		"id":              "PROD-ABCDEF",
		"name":            "Gold",
		"type":            "digital",
		"unknown":         "ignored",
		"feed":            map[string]any{"id": 3},
		"submission_data": map[string]any{"payment_amount": "10"},
	})
	require.NoError(t, err)
	assert.Equal(t, ProductTypeDigital, p.Type)

	out := p.Serialize()
	assert.Equal(t, map[string]any{"id": "PROD-ABCDEF", "name": "Gold", "type": "DIGITAL"}, out)
	for key := range out {
		assert.False(t, IsTransientKey(key))
	}
}

func TestProductHydrateRejectsUnknownType(t *testing.T) {
	p := &Product{}
	err := p.Hydrate(map[string]any{"type": "subscription"})
	requireValidationField(t, err, "type")
}

func TestFrequencyBoundsPerUnit(t *testing.T) {
	cases := []struct {
		unit  IntervalUnit
		count int
		ok    bool
	}{
		{IntervalUnitDay, 365, true},
		{IntervalUnitDay, 366, false},
		{IntervalUnitWeek, 52, true},
		{IntervalUnitWeek, 53, false},
		{IntervalUnitMonth, 12, true},
		{IntervalUnitMonth, 13, false},
		{IntervalUnitYear, 1, true},
		{IntervalUnitYear, 2, false},
		{IntervalUnitMonth, 0, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.unit), func(t *testing.T) {
			f := NewFrequency(tc.unit, tc.count)
			err := f.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				requireValidationField(t, err, "interval_count")
			}
		})
	}
}

func TestBillingCycleInfiniteOnlyForRegular(t *testing.T) {
	cycle := BillingCycle{
		Frequency:   NewFrequency(IntervalUnitDay, 7),
		TenureType:  TenureTypeTrial,
		Sequence:    1,
		TotalCycles: 0,
	}
	requireValidationField(t, cycle.Validate(), "total_cycles")

	cycle.TenureType = TenureTypeRegular
	assert.NoError(t, cycle.Validate())
}

func TestPlanValidate(t *testing.T) {
	require.NoError(t, validPlan().Validate())

	t.Run("product id bounds", func(t *testing.T) {
		plan := validPlan()
		plan.ProductID = "P-1"
		requireValidationField(t, plan.Validate(), "product_id")
	})

	t.Run("missing payment preferences", func(t *testing.T) {
		plan := validPlan()
		plan.PaymentPreferences = nil
		requireValidationField(t, plan.Validate(), "payment_preferences")
	})

	t.Run("two regular cycles", func(t *testing.T) {
		plan := validPlan()
		second := plan.BillingCycles[0]
		second.Sequence = 2
		plan.BillingCycles = append(plan.BillingCycles, second)
		requireValidationField(t, plan.Validate(), "billing_cycles")
	})

	t.Run("mixed currencies", func(t *testing.T) {
		plan := validPlan()
		plan.AddTrialCycle(BillingCycle{
			PricingScheme: &PricingScheme{FixedPrice: NewMoney("EUR", decimal.NewFromInt(1))},
			Frequency:     NewFrequency(IntervalUnitWeek, 1),
			TotalCycles:   1,
		})
		requireValidationField(t, plan.Validate(), "billing_cycles")
	})
}

func TestPlanAddTrialCycleShiftsRegular(t *testing.T) {
	plan := validPlan()
	plan.AddTrialCycle(BillingCycle{
		PricingScheme: &PricingScheme{FixedPrice: NewMoney("USD", decimal.NewFromInt(1))},
		Frequency:     NewFrequency(IntervalUnitWeek, 2),
		TotalCycles:   1,
	})
	require.Len(t, plan.BillingCycles, 2)
	assert.Equal(t, TenureTypeTrial, plan.BillingCycles[0].TenureType)
	assert.Equal(t, 1, plan.BillingCycles[0].Sequence)
	assert.Equal(t, TenureTypeRegular, plan.BillingCycles[1].TenureType)
	assert.Equal(t, 2, plan.BillingCycles[1].Sequence)
	require.NoError(t, plan.Validate())
}

func TestPlanCurrencySurvivesReload(t *testing.T) {
	reloaded := NewPlan()
	require.NoError(t, reloaded.Hydrate(map[string]any{
		"id":         "P-5ML4271244454362WXNWU5NQ",
		"product_id": "PROD-XXCD1234QWER65782",
		"name":       "Gold",
		"status":     "ACTIVE",
	}))
	assert.Equal(t, "", reloaded.Currency())

	reloaded.SetCurrency("eur")
	assert.Equal(t, "EUR", reloaded.Currency())

	plan := validPlan()
	plan.SetCurrency("JPY")
	assert.Equal(t, "JPY", plan.BillingCycles[0].FixedPrice().CurrencyCode)
}

func TestPlanSerializeRoundTripKeepsMoneyAsString(t *testing.T) {
	plan := validPlan()
	out := plan.Serialize()
	cycles := out["billing_cycles"].([]any)
	scheme := cycles[0].(map[string]any)["pricing_scheme"].(map[string]any)
	assert.Equal(t, map[string]any{"currency_code": "USD", "value": "10.00"}, scheme["fixed_price"])

	var hydrated Plan
	require.NoError(t, hydrated.Hydrate(out))
	amount, ok := hydrated.RecurringAmount()
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "USD", hydrated.Currency())
}

func TestMoneyValidate(t *testing.T) {
	require.NoError(t, NewMoney("usd", decimal.RequireFromString("1.5")).Validate())
	requireValidationField(t, NewMoney("US", decimal.NewFromInt(1)).Validate(), "currency_code")
	requireValidationField(t, NewMoney("USD", decimal.NewFromInt(-1)).Validate(), "value")
	assert.Equal(t, "1500", NewMoney("JPY", decimal.RequireFromString("1500")).String())
}

func TestSubscriptionValidate(t *testing.T) {
	sub := &Subscription{
		PlanID:   "P-5ML4271244454362WXNWU5NQ",
		Quantity: "1",
		CustomID: "42",
		Subscriber: &SubscriberRequest{
			Name:         &Name{GivenName: "Ada", Surname: "Lovelace"},
			EmailAddress: "ada@example.com",
		},
		ApplicationContext: &ApplicationContext{
			ShippingPreference: ShippingPreferenceNoShipping,
			UserAction:         UserActionSubscribeNow,
		},
	}
	require.NoError(t, sub.Validate())

	sub.PlanID = "P1"
	requireValidationField(t, sub.Validate(), "plan_id")

	sub.PlanID = "P-5ML4271244454362WXNWU5NQ"
	sub.Quantity = "one"
	requireValidationField(t, sub.Validate(), "quantity")

	sub.Quantity = "1"
	sub.CustomID = strings.Repeat("x", 128)
	requireValidationField(t, sub.Validate(), "custom_id")
}

func TestSubscriptionHydrateFromProvider(t *testing.T) {
	var sub Subscription
	err := sub.Hydrate(map[string]any{
		"id":      "I-BW452GLLEP1G",
		"plan_id": "P-5ML4271244454362WXNWU5NQ",
		"status":  "APPROVAL_PENDING",
		"links": []any{
			map[string]any{"href": "https://www.paypal.com/webapps/billing/subscriptions?ba_token=BA-2M539689T3856352J", "rel": "approve", "method": "GET"},
			map[string]any{"href": "https://api-m.paypal.com/v1/billing/subscriptions/I-BW452GLLEP1G", "rel": "self", "method": "GET"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, SubscriptionStatusApprovalPending, sub.Status)
	assert.Contains(t, sub.ApproveURL(), "ba_token")

	body := sub.CreateRequest()
	assert.NotContains(t, body, "id")
	assert.NotContains(t, body, "status")

	err = sub.Hydrate(map[string]any{"status": "PAUSED"})
	requireValidationField(t, err, "status")
}

func TestApplicationContextRejectsUnknownShippingPreference(t *testing.T) {
	var ac ApplicationContext
	err := ac.Hydrate(map[string]any{"shipping_preference": "SHIP_ANYWHERE"})
	requireValidationField(t, err, "shipping_preference")
}

func TestNestedHydrateErrorCarriesPath(t *testing.T) {
	var plan Plan
	err := plan.Hydrate(map[string]any{
		"billing_cycles": []any{
			map[string]any{"tenure_type": "REGULAR", "frequency": map[string]any{"interval_unit": "FORTNIGHT"}},
		},
	})
	requireValidationField(t, err, "billing_cycles[0].frequency.interval_unit")
}
