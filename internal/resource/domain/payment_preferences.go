package domain

type PaymentPreferences struct {
	AutoBillOutstanding     bool                  `json:"auto_bill_outstanding"`
	SetupFee                *Money                `json:"setup_fee,omitempty"`
	SetupFeeFailureAction   SetupFeeFailureAction `json:"setup_fee_failure_action,omitempty" validate:"omitempty,oneof=CONTINUE CANCEL"`
	PaymentFailureThreshold int                   `json:"payment_failure_threshold" validate:"min=0,max=999"`
}

// NewPaymentPreferences returns the preferences used for form subscriptions:
// outstanding balances are billed automatically, a failed setup fee cancels
// the subscription and payment failures never suspend it.
func NewPaymentPreferences() *PaymentPreferences {
	return &PaymentPreferences{
		AutoBillOutstanding:     true,
		SetupFeeFailureAction:   SetupFeeFailureActionCancel,
		PaymentFailureThreshold: 0,
	}
}

func (p *PaymentPreferences) SetSetupFeeFailureAction(raw string) error {
	action, err := parseEnum("payment_preferences", "setup_fee_failure_action", raw,
		SetupFeeFailureActionContinue, SetupFeeFailureActionCancel)
	if err != nil {
		return err
	}
	p.SetupFeeFailureAction = action
	return nil
}

func (p *PaymentPreferences) Hydrate(data map[string]any) error {
	if v, ok := readBool(data, "auto_bill_outstanding"); ok {
		p.AutoBillOutstanding = v
	}
	fee, err := hydrateMoney("payment_preferences", data, "setup_fee")
	if err != nil {
		return err
	}
	if fee != nil {
		p.SetupFee = fee
	}
	if raw, ok := readString(data, "setup_fee_failure_action"); ok {
		if err := p.SetSetupFeeFailureAction(raw); err != nil {
			return err
		}
	}
	return intField("payment_preferences", data, "payment_failure_threshold", &p.PaymentFailureThreshold)
}

func (p *PaymentPreferences) Serialize() map[string]any {
	if p == nil {
		return nil
	}
	out := map[string]any{
		"auto_bill_outstanding":     p.AutoBillOutstanding,
		"payment_failure_threshold": p.PaymentFailureThreshold,
	}
	putResource(out, "setup_fee", p.SetupFee, p.SetupFee != nil)
	putString(out, "setup_fee_failure_action", string(p.SetupFeeFailureAction))
	return out
}

func (p *PaymentPreferences) Validate() error {
	return validateStruct("payment_preferences", p)
}

type Taxes struct {
	Percentage string `json:"percentage" validate:"required,numeric"`
	Inclusive  bool   `json:"inclusive"`
}

func (t *Taxes) Hydrate(data map[string]any) error {
	if v, ok := readString(data, "percentage"); ok {
		t.Percentage = v
	}
	if v, ok := readBool(data, "inclusive"); ok {
		t.Inclusive = v
	}
	return nil
}

func (t *Taxes) Serialize() map[string]any {
	if t == nil {
		return nil
	}
	out := map[string]any{"inclusive": t.Inclusive}
	putString(out, "percentage", t.Percentage)
	return out
}

func (t *Taxes) Validate() error {
	return validateStruct("taxes", t)
}
