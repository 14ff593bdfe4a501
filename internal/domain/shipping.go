package domain

import "strings"

// ShippingMethod is a selectable delivery option. The table is static
// configuration; prices feed into the order total as plain inputs.
type ShippingMethod struct {
	Code       string
	Label      string
	PriceCents int
	Carrier    string
	Enabled    bool
}

var shippingMethods = []ShippingMethod{
	{Code: "MONDIAL_RELAY", Label: "Mondial Relay - Point relais", PriceCents: 490, Carrier: "MONDIAL_RELAY", Enabled: true},
	{Code: "COLISSIMO_HOME", Label: "Colissimo - Domicile", PriceCents: 790, Carrier: "COLISSIMO", Enabled: true},
}

// EnabledShippingMethods returns the methods currently offered at checkout.
func EnabledShippingMethods() []ShippingMethod {
	out := make([]ShippingMethod, 0, len(shippingMethods))
	for _, m := range shippingMethods {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// FindShippingMethod resolves a method code case-insensitively; it returns
// false for unknown or disabled codes.
func FindShippingMethod(code string) (ShippingMethod, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for _, m := range shippingMethods {
		if m.Enabled && m.Code == normalized {
			return m, true
		}
	}
	return ShippingMethod{}, false
}
