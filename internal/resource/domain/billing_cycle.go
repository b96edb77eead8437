package domain

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

type Frequency struct {
	IntervalUnit  IntervalUnit `json:"interval_unit" validate:"required,oneof=DAY WEEK MONTH YEAR"`
	IntervalCount int          `json:"interval_count" validate:"min=1"`
}

func NewFrequency(unit IntervalUnit, count int) Frequency {
	return Frequency{IntervalUnit: unit, IntervalCount: count}
}

func (f *Frequency) SetIntervalUnit(raw string) error {
	unit, err := parseEnum("frequency", "interval_unit", raw,
		IntervalUnitDay, IntervalUnitWeek, IntervalUnitMonth, IntervalUnitYear)
	if err != nil {
		return err
	}
	f.IntervalUnit = unit
	return nil
}

func (f *Frequency) Hydrate(data map[string]any) error {
	if raw, ok := readString(data, "interval_unit"); ok {
		if err := f.SetIntervalUnit(raw); err != nil {
			return err
		}
	}
	if f.IntervalCount == 0 {
		f.IntervalCount = 1
	}
	return intField("frequency", data, "interval_count", &f.IntervalCount)
}

func (f *Frequency) Serialize() map[string]any {
	out := map[string]any{}
	putString(out, "interval_unit", string(f.IntervalUnit))
	if f.IntervalCount > 0 {
		out["interval_count"] = f.IntervalCount
	}
	return out
}

func (f *Frequency) Validate() error {
	return validateStruct("frequency", f)
}

func validateFrequency(sl validator.StructLevel) {
	f := sl.Current().Interface().(Frequency)
	limit := f.IntervalUnit.MaxIntervalCount()
	if limit > 0 && f.IntervalCount > limit {
		sl.ReportError(f.IntervalCount, "interval_count", "IntervalCount", "interval_range", strconv.Itoa(limit))
	}
}

type PricingScheme struct {
	Version    int    `json:"version,omitempty"`
	FixedPrice *Money `json:"fixed_price,omitempty"`
}

func (p *PricingScheme) Hydrate(data map[string]any) error {
	if err := intField("pricing_scheme", data, "version", &p.Version); err != nil {
		return err
	}
	fixed, err := hydrateMoney("pricing_scheme", data, "fixed_price")
	if err != nil {
		return err
	}
	if fixed != nil {
		p.FixedPrice = fixed
	}
	return nil
}

func (p *PricingScheme) Serialize() map[string]any {
	if p == nil {
		return nil
	}
	out := map[string]any{}
	if p.Version > 0 {
		out["version"] = p.Version
	}
	putResource(out, "fixed_price", p.FixedPrice, p.FixedPrice != nil)
	return out
}

func (p *PricingScheme) Validate() error {
	return validateStruct("pricing_scheme", p)
}

type BillingCycle struct {
	PricingScheme *PricingScheme `json:"pricing_scheme,omitempty"`
	Frequency     Frequency      `json:"frequency"`
	TenureType    TenureType     `json:"tenure_type" validate:"required,oneof=TRIAL REGULAR"`
	Sequence      int            `json:"sequence" validate:"min=1,max=99"`
	TotalCycles   int            `json:"total_cycles" validate:"min=0,max=999"`
}

func (b *BillingCycle) SetTenureType(raw string) error {
	tenure, err := parseEnum("billing_cycle", "tenure_type", raw, TenureTypeTrial, TenureTypeRegular)
	if err != nil {
		return err
	}
	b.TenureType = tenure
	return nil
}

// FixedPrice returns the cycle's fixed price, or nil when the cycle has no pricing.
func (b *BillingCycle) FixedPrice() *Money {
	if b == nil || b.PricingScheme == nil {
		return nil
	}
	return b.PricingScheme.FixedPrice
}

func (b *BillingCycle) Hydrate(data map[string]any) error {
	if raw, ok := readMap(data, "pricing_scheme"); ok {
		scheme := &PricingScheme{}
		if err := scheme.Hydrate(raw); err != nil {
			return nested("billing_cycle", "pricing_scheme", err)
		}
		b.PricingScheme = scheme
	}
	if raw, ok := readMap(data, "frequency"); ok {
		if err := b.Frequency.Hydrate(raw); err != nil {
			return nested("billing_cycle", "frequency", err)
		}
	}
	if raw, ok := readString(data, "tenure_type"); ok {
		if err := b.SetTenureType(raw); err != nil {
			return err
		}
	}
	if err := intField("billing_cycle", data, "sequence", &b.Sequence); err != nil {
		return err
	}
	if _, present := data["total_cycles"]; !present && b.TotalCycles == 0 && b.TenureType == TenureTypeTrial {
		b.TotalCycles = 1
	}
	return intField("billing_cycle", data, "total_cycles", &b.TotalCycles)
}

func (b *BillingCycle) Serialize() map[string]any {
	out := map[string]any{}
	putResource(out, "pricing_scheme", b.PricingScheme, b.PricingScheme != nil)
	out["frequency"] = b.Frequency.Serialize()
	putString(out, "tenure_type", string(b.TenureType))
	out["sequence"] = b.Sequence
	out["total_cycles"] = b.TotalCycles
	return out
}

func (b *BillingCycle) Validate() error {
	return validateStruct("billing_cycle", b)
}

func validateBillingCycle(sl validator.StructLevel) {
	b := sl.Current().Interface().(BillingCycle)
	if b.TotalCycles == 0 && b.TenureType != TenureTypeRegular {
		sl.ReportError(b.TotalCycles, "total_cycles", "TotalCycles", "regular_only", "")
	}
}
