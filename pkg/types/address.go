package types

import "strings"

// ShippingAddress is the delivery address captured on an order.
type ShippingAddress struct {
	Street  string `json:"street" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	ZipCode string `json:"zip_code" validate:"required,max=20"`
	Country string `json:"country" validate:"required,max=100"`
}

// Normalize trims every field.
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		ZipCode: strings.TrimSpace(a.ZipCode),
		Country: strings.TrimSpace(a.Country),
	}
}

// MissingFields lists the json names of blank fields after trimming.
func (a ShippingAddress) MissingFields() []string {
	n := a.Normalize()
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"street", n.Street},
		{"city", n.City},
		{"state", n.State},
		{"zip_code", n.ZipCode},
		{"country", n.Country},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
