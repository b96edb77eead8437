package domain

import "strings"

type Name struct {
	GivenName string `json:"given_name,omitempty" validate:"omitempty,max=140"`
	Surname   string `json:"surname,omitempty" validate:"omitempty,max=140"`
	FullName  string `json:"full_name,omitempty" validate:"omitempty,max=300"`
}

func (n *Name) Hydrate(data map[string]any) error {
	if v, ok := readString(data, "given_name"); ok {
		n.GivenName = v
	}
	if v, ok := readString(data, "surname"); ok {
		n.Surname = v
	}
	if v, ok := readString(data, "full_name"); ok {
		n.FullName = v
	}
	return nil
}

func (n *Name) Serialize() map[string]any {
	if n == nil {
		return nil
	}
	out := map[string]any{}
	putString(out, "given_name", n.GivenName)
	putString(out, "surname", n.Surname)
	putString(out, "full_name", n.FullName)
	return out
}

func (n *Name) Validate() error {
	return validateStruct("name", n)
}

type Phone struct {
	NationalNumber string `json:"national_number" validate:"required,min=1,max=14,numeric"`
}

type PhoneWithType struct {
	PhoneType   PhoneType `json:"phone_type,omitempty" validate:"omitempty,oneof=FAX HOME MOBILE OTHER PAGER"`
	PhoneNumber Phone     `json:"phone_number"`
}

func (p *PhoneWithType) Hydrate(data map[string]any) error {
	if v, ok := readString(data, "phone_type"); ok {
		t, err := parseEnum("phone", "phone_type", v,
			PhoneTypeFax, PhoneTypeHome, PhoneTypeMobile, PhoneTypeOther, PhoneTypePager)
		if err != nil {
			return err
		}
		p.PhoneType = t
	}
	if raw, ok := readMap(data, "phone_number"); ok {
		if v, ok := readString(raw, "national_number"); ok {
			p.PhoneNumber.NationalNumber = v
		}
	}
	return nil
}

func (p *PhoneWithType) Serialize() map[string]any {
	if p == nil {
		return nil
	}
	out := map[string]any{}
	putString(out, "phone_type", string(p.PhoneType))
	if p.PhoneNumber.NationalNumber != "" {
		out["phone_number"] = map[string]any{"national_number": p.PhoneNumber.NationalNumber}
	}
	return out
}

func (p *PhoneWithType) Validate() error {
	return validateStruct("phone", p)
}

// Address is a postal address. AdminArea2 is the city and AdminArea1 the
// state or province.
type Address struct {
	AddressLine1 string `json:"address_line_1,omitempty" validate:"omitempty,max=300"`
	AddressLine2 string `json:"address_line_2,omitempty" validate:"omitempty,max=300"`
	AdminArea2   string `json:"admin_area_2,omitempty" validate:"omitempty,max=120"`
	AdminArea1   string `json:"admin_area_1,omitempty" validate:"omitempty,max=300"`
	PostalCode   string `json:"postal_code,omitempty" validate:"omitempty,max=60"`
	CountryCode  string `json:"country_code" validate:"required,len=2"`
}

func (a *Address) Hydrate(data map[string]any) error {
	if v, ok := readString(data, "address_line_1"); ok {
		a.AddressLine1 = v
	}
	if v, ok := readString(data, "address_line_2"); ok {
		a.AddressLine2 = v
	}
	if v, ok := readString(data, "admin_area_2"); ok {
		a.AdminArea2 = v
	}
	if v, ok := readString(data, "admin_area_1"); ok {
		a.AdminArea1 = v
	}
	if v, ok := readString(data, "postal_code"); ok {
		a.PostalCode = v
	}
	if v, ok := readString(data, "country_code"); ok {
		a.CountryCode = strings.ToUpper(strings.TrimSpace(v))
	}
	return nil
}

func (a *Address) Serialize() map[string]any {
	if a == nil {
		return nil
	}
	out := map[string]any{}
	putString(out, "address_line_1", a.AddressLine1)
	putString(out, "address_line_2", a.AddressLine2)
	putString(out, "admin_area_2", a.AdminArea2)
	putString(out, "admin_area_1", a.AdminArea1)
	putString(out, "postal_code", a.PostalCode)
	putString(out, "country_code", a.CountryCode)
	return out
}

func (a *Address) Validate() error {
	return validateStruct("address", a)
}

type ShippingDetail struct {
	Name    *Name    `json:"name,omitempty"`
	Address *Address `json:"address,omitempty"`
}

func (s *ShippingDetail) Hydrate(data map[string]any) error {
	if raw, ok := readMap(data, "name"); ok {
		name := &Name{}
		if err := name.Hydrate(raw); err != nil {
			return nested("shipping_detail", "name", err)
		}
		s.Name = name
	}
	if raw, ok := readMap(data, "address"); ok {
		addr := &Address{}
		if err := addr.Hydrate(raw); err != nil {
			return nested("shipping_detail", "address", err)
		}
		s.Address = addr
	}
	return nil
}

func (s *ShippingDetail) Serialize() map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{}
	putResource(out, "name", s.Name, s.Name != nil)
	putResource(out, "address", s.Address, s.Address != nil)
	return out
}

func (s *ShippingDetail) Validate() error {
	return validateStruct("shipping_detail", s)
}

// SubscriberRequest identifies the payer of a subscription.
type SubscriberRequest struct {
	Name            *Name           `json:"name,omitempty"`
	EmailAddress    string          `json:"email_address,omitempty" validate:"omitempty,max=254,email"`
	Phone           *PhoneWithType  `json:"phone,omitempty"`
	ShippingAddress *ShippingDetail `json:"shipping_address,omitempty"`
}

func (s *SubscriberRequest) Hydrate(data map[string]any) error {
	if raw, ok := readMap(data, "name"); ok {
		name := &Name{}
		if err := name.Hydrate(raw); err != nil {
			return nested("subscriber", "name", err)
		}
		s.Name = name
	}
	if v, ok := readString(data, "email_address"); ok {
		s.EmailAddress = strings.TrimSpace(v)
	}
	if raw, ok := readMap(data, "phone"); ok {
		phone := &PhoneWithType{}
		if err := phone.Hydrate(raw); err != nil {
			return nested("subscriber", "phone", err)
		}
		s.Phone = phone
	}
	if raw, ok := readMap(data, "shipping_address"); ok {
		shipping := &ShippingDetail{}
		if err := shipping.Hydrate(raw); err != nil {
			return nested("subscriber", "shipping_address", err)
		}
		s.ShippingAddress = shipping
	}
	return nil
}

func (s *SubscriberRequest) Serialize() map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{}
	putResource(out, "name", s.Name, s.Name != nil)
	putString(out, "email_address", s.EmailAddress)
	putResource(out, "phone", s.Phone, s.Phone != nil)
	putResource(out, "shipping_address", s.ShippingAddress, s.ShippingAddress != nil)
	return out
}

func (s *SubscriberRequest) Validate() error {
	return validateStruct("subscriber", s)
}

type PaymentMethod struct {
	PayerSelected  PayerSelected  `json:"payer_selected,omitempty" validate:"omitempty,oneof=PAYPAL"`
	PayeePreferred PayeePreferred `json:"payee_preferred,omitempty" validate:"omitempty,oneof=UNRESTRICTED IMMEDIATE_PAYMENT_REQUIRED"`
}

func NewPaymentMethod() *PaymentMethod {
	return &PaymentMethod{
		PayerSelected:  PayerSelectedPayPal,
		PayeePreferred: PayeePreferredUnrestricted,
	}
}

func (p *PaymentMethod) Serialize() map[string]any {
	if p == nil {
		return nil
	}
	out := map[string]any{}
	putString(out, "payer_selected", string(p.PayerSelected))
	putString(out, "payee_preferred", string(p.PayeePreferred))
	return out
}

// ApplicationContext controls the payer experience during approval.
type ApplicationContext struct {
	BrandName          string             `json:"brand_name,omitempty" validate:"omitempty,max=127"`
	Locale             string             `json:"locale,omitempty" validate:"omitempty,max=10"`
	ShippingPreference ShippingPreference `json:"shipping_preference,omitempty" validate:"omitempty,oneof=GET_FROM_FILE NO_SHIPPING SET_PROVIDED_ADDRESS"`
	UserAction         UserAction         `json:"user_action,omitempty" validate:"omitempty,oneof=CONTINUE SUBSCRIBE_NOW"`
	PaymentMethod      *PaymentMethod     `json:"payment_method,omitempty"`
	ReturnURL          string             `json:"return_url,omitempty" validate:"omitempty,url"`
	CancelURL          string             `json:"cancel_url,omitempty" validate:"omitempty,url"`
}

func (a *ApplicationContext) SetShippingPreference(raw string) error {
	pref, err := parseEnum("application_context", "shipping_preference", raw,
		ShippingPreferenceGetFromFile, ShippingPreferenceNoShipping, ShippingPreferenceSetProvidedAddress)
	if err != nil {
		return err
	}
	a.ShippingPreference = pref
	return nil
}

func (a *ApplicationContext) Hydrate(data map[string]any) error {
	if v, ok := readString(data, "brand_name"); ok {
		a.BrandName = v
	}
	if v, ok := readString(data, "locale"); ok {
		a.Locale = v
	}
	if v, ok := readString(data, "shipping_preference"); ok {
		if err := a.SetShippingPreference(v); err != nil {
			return err
		}
	}
	if v, ok := readString(data, "user_action"); ok {
		action, err := parseEnum("application_context", "user_action", v, UserActionContinue, UserActionSubscribeNow)
		if err != nil {
			return err
		}
		a.UserAction = action
	}
	if raw, ok := readMap(data, "payment_method"); ok {
		pm := NewPaymentMethod()
		if v, ok := readString(raw, "payer_selected"); ok {
			pm.PayerSelected = PayerSelected(strings.ToUpper(v))
		}
		if v, ok := readString(raw, "payee_preferred"); ok {
			pm.PayeePreferred = PayeePreferred(strings.ToUpper(v))
		}
		a.PaymentMethod = pm
	}
	if v, ok := readString(data, "return_url"); ok {
		a.ReturnURL = v
	}
	if v, ok := readString(data, "cancel_url"); ok {
		a.CancelURL = v
	}
	return nil
}

func (a *ApplicationContext) Serialize() map[string]any {
	if a == nil {
		return nil
	}
	out := map[string]any{}
	putString(out, "brand_name", a.BrandName)
	putString(out, "locale", a.Locale)
	putString(out, "shipping_preference", string(a.ShippingPreference))
	putString(out, "user_action", string(a.UserAction))
	putResource(out, "payment_method", a.PaymentMethod, a.PaymentMethod != nil)
	putString(out, "return_url", a.ReturnURL)
	putString(out, "cancel_url", a.CancelURL)
	return out
}

func (a *ApplicationContext) Validate() error {
	return validateStruct("application_context", a)
}

// Link is a HATEOAS link returned by the provider.
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

func readLinks(data map[string]any) []Link {
	items, ok := readMaps(data, "links")
	if !ok {
		return nil
	}
	links := make([]Link, 0, len(items))
	for _, item := range items {
		var l Link
		l.Href, _ = readString(item, "href")
		l.Rel, _ = readString(item, "rel")
		l.Method, _ = readString(item, "method")
		links = append(links, l)
	}
	return links
}
