package domain

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Plan is a recurring billing template. Its currency lives on the fixed
// price of the billing cycles; the provider strips that detail from create
// responses, so the plan also caches the currency it was built with.
type Plan struct {
	ID                 string              `json:"id,omitempty"`
	ProductID          string              `json:"product_id" validate:"required,min=6,max=50"`
	Name               string              `json:"name" validate:"required,max=127"`
	Status             PlanStatus          `json:"status" validate:"required,oneof=CREATED ACTIVE"`
	Description        string              `json:"description,omitempty" validate:"omitempty,max=256"`
	BillingCycles      []BillingCycle      `json:"billing_cycles" validate:"required,min=1,max=2,dive"`
	PaymentPreferences *PaymentPreferences `json:"payment_preferences" validate:"required"`
	Taxes              *Taxes              `json:"taxes,omitempty"`
	QuantitySupported  bool                `json:"quantity_supported"`

	currency string
}

var _ Resource = (*Plan)(nil)

func NewPlan() *Plan {
	return &Plan{
		Status:            PlanStatusActive,
		QuantitySupported: true,
	}
}

func (p *Plan) SetStatus(raw string) error {
	status, err := parseEnum("plan", "status", raw, PlanStatusCreated, PlanStatusActive)
	if err != nil {
		return err
	}
	p.Status = status
	return nil
}

// Currency returns the cached currency, falling back to the first cycle's
// fixed price.
func (p *Plan) Currency() string {
	if p.currency != "" {
		return p.currency
	}
	if len(p.BillingCycles) > 0 {
		if fixed := p.BillingCycles[0].FixedPrice(); fixed != nil {
			return fixed.CurrencyCode
		}
	}
	return ""
}

// SetCurrency caches the currency and applies it to the first cycle's fixed price.
func (p *Plan) SetCurrency(code string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	p.currency = code
	if len(p.BillingCycles) > 0 {
		if fixed := p.BillingCycles[0].FixedPrice(); fixed != nil {
			fixed.CurrencyCode = code
		}
	}
}

// RegularCycle returns the REGULAR billing cycle, if any.
func (p *Plan) RegularCycle() *BillingCycle {
	for i := range p.BillingCycles {
		if p.BillingCycles[i].TenureType == TenureTypeRegular {
			return &p.BillingCycles[i]
		}
	}
	return nil
}

// TrialCycle returns the TRIAL billing cycle, if any.
func (p *Plan) TrialCycle() *BillingCycle {
	for i := range p.BillingCycles {
		if p.BillingCycles[i].TenureType == TenureTypeTrial {
			return &p.BillingCycles[i]
		}
	}
	return nil
}

// RecurringAmount returns the REGULAR cycle's fixed price value.
func (p *Plan) RecurringAmount() (decimal.Decimal, bool) {
	regular := p.RegularCycle()
	if fixed := regular.FixedPrice(); fixed != nil {
		return fixed.Value, true
	}
	return decimal.Zero, false
}

// AddTrialCycle prepends a trial cycle and renumbers the sequences.
func (p *Plan) AddTrialCycle(trial BillingCycle) {
	trial.TenureType = TenureTypeTrial
	p.BillingCycles = append([]BillingCycle{trial}, p.BillingCycles...)
	for i := range p.BillingCycles {
		p.BillingCycles[i].Sequence = i + 1
	}
}

func (p *Plan) Hydrate(data map[string]any) error {
	if v, ok := readString(data, "id"); ok {
		p.ID = strings.TrimSpace(v)
	}
	if v, ok := readString(data, "product_id"); ok {
		p.ProductID = strings.TrimSpace(v)
	}
	if v, ok := readString(data, "name"); ok {
		p.Name = v
	}
	if v, ok := readString(data, "status"); ok {
		if err := p.SetStatus(v); err != nil {
			return err
		}
	}
	if v, ok := readString(data, "description"); ok {
		p.Description = v
	}
	if items, ok := readMaps(data, "billing_cycles"); ok {
		cycles := make([]BillingCycle, 0, len(items))
		for i, item := range items {
			var cycle BillingCycle
			if err := cycle.Hydrate(item); err != nil {
				return nested("plan", "billing_cycles["+itoa(i)+"]", err)
			}
			cycles = append(cycles, cycle)
		}
		p.BillingCycles = cycles
	}
	if raw, ok := readMap(data, "payment_preferences"); ok {
		prefs := &PaymentPreferences{}
		if err := prefs.Hydrate(raw); err != nil {
			return nested("plan", "payment_preferences", err)
		}
		p.PaymentPreferences = prefs
	}
	if raw, ok := readMap(data, "taxes"); ok {
		taxes := &Taxes{}
		if err := taxes.Hydrate(raw); err != nil {
			return nested("plan", "taxes", err)
		}
		p.Taxes = taxes
	}
	if v, ok := readBool(data, "quantity_supported"); ok {
		p.QuantitySupported = v
	}
	if v, ok := readString(data, "currency"); ok {
		p.SetCurrency(v)
	}
	return nil
}

func (p *Plan) Serialize() map[string]any {
	out := map[string]any{}
	putString(out, "id", p.ID)
	putString(out, "product_id", p.ProductID)
	putString(out, "name", p.Name)
	putString(out, "status", string(p.Status))
	putString(out, "description", p.Description)
	if len(p.BillingCycles) > 0 {
		cycles := make([]any, 0, len(p.BillingCycles))
		for i := range p.BillingCycles {
			cycles = append(cycles, p.BillingCycles[i].Serialize())
		}
		out["billing_cycles"] = cycles
	}
	putResource(out, "payment_preferences", p.PaymentPreferences, p.PaymentPreferences != nil)
	putResource(out, "taxes", p.Taxes, p.Taxes != nil)
	out["quantity_supported"] = p.QuantitySupported
	return out
}

func (p *Plan) Validate() error {
	return validateStruct("plan", p)
}

func validatePlan(sl validator.StructLevel) {
	p := sl.Current().Interface().(Plan)

	regular, trial := 0, 0
	sequences := map[int]struct{}{}
	currency := ""
	for _, cycle := range p.BillingCycles {
		switch cycle.TenureType {
		case TenureTypeRegular:
			regular++
		case TenureTypeTrial:
			trial++
		}
		if _, seen := sequences[cycle.Sequence]; seen {
			sl.ReportError(p.BillingCycles, "billing_cycles", "BillingCycles", "unique_sequence", "")
			return
		}
		sequences[cycle.Sequence] = struct{}{}

		if fixed := cycle.FixedPrice(); fixed != nil {
			if currency == "" {
				currency = fixed.CurrencyCode
			} else if fixed.CurrencyCode != currency {
				sl.ReportError(p.BillingCycles, "billing_cycles", "BillingCycles", "currency_mismatch", "")
				return
			}
		}
	}
	if len(p.BillingCycles) == 0 {
		return
	}
	if regular != 1 {
		sl.ReportError(p.BillingCycles, "billing_cycles", "BillingCycles", "one_regular", "")
		return
	}
	if trial > 1 {
		sl.ReportError(p.BillingCycles, "billing_cycles", "BillingCycles", "max_one_trial", "")
		return
	}
	if p.RegularCycle().FixedPrice() == nil {
		sl.ReportError(p.BillingCycles, "billing_cycles", "BillingCycles", "required", "")
	}
}
