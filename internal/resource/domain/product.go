package domain

import "strings"

// Product is the catalog item a plan is defined for.
type Product struct {
	ID          string      `json:"id,omitempty" validate:"omitempty,min=6,max=50"`
	Name        string      `json:"name" validate:"required,max=127"`
	Description string      `json:"description,omitempty" validate:"omitempty,max=256"`
	Type        ProductType `json:"type" validate:"required,oneof=PHYSICAL DIGITAL SERVICE"`
	Category    string      `json:"category,omitempty" validate:"omitempty,max=256"`
	ImageURL    string      `json:"image_url,omitempty" validate:"omitempty,max=2000"`
	HomeURL     string      `json:"home_url,omitempty" validate:"omitempty,max=2000"`
}

var _ Resource = (*Product)(nil)

// SetType uppercases the value before checking it against the product types.
func (p *Product) SetType(raw string) error {
	t, err := parseEnum("product", "type", raw, ProductTypePhysical, ProductTypeDigital, ProductTypeService)
	if err != nil {
		return err
	}
	p.Type = t
	return nil
}

func (p *Product) Hydrate(data map[string]any) error {
	if v, ok := readString(data, "id"); ok {
		p.ID = strings.TrimSpace(v)
	}
	if v, ok := readString(data, "name"); ok {
		p.Name = v
	}
	if v, ok := readString(data, "description"); ok {
		p.Description = v
	}
	if v, ok := readString(data, "type"); ok {
		if err := p.SetType(v); err != nil {
			return err
		}
	}
	if v, ok := readString(data, "category"); ok {
		p.Category = v
	}
	if v, ok := readString(data, "image_url"); ok {
		p.ImageURL = v
	}
	if v, ok := readString(data, "home_url"); ok {
		p.HomeURL = v
	}
	return nil
}

func (p *Product) Serialize() map[string]any {
	out := map[string]any{}
	putString(out, "id", p.ID)
	putString(out, "name", p.Name)
	putString(out, "description", p.Description)
	putString(out, "type", string(p.Type))
	putString(out, "category", p.Category)
	putString(out, "image_url", p.ImageURL)
	putString(out, "home_url", p.HomeURL)
	return out
}

func (p *Product) Validate() error {
	return validateStruct("product", p)
}
