package domain

import "testing"

func TestFindShippingMethod(t *testing.T) {
	t.Parallel()

	m, ok := FindShippingMethod("mondial_relay")
	if !ok {
		t.Fatalf("expected method found")
	}
	if m.Code != "MONDIAL_RELAY" || m.PriceCents != 490 {
		t.Fatalf("unexpected method: %+v", m)
	}

	if _, ok := FindShippingMethod("  COLISSIMO_HOME "); !ok {
		t.Fatalf("expected whitespace trimmed")
	}

	if _, ok := FindShippingMethod("PIGEON"); ok {
		t.Fatalf("expected unknown code rejected")
	}
	if _, ok := FindShippingMethod(""); ok {
		t.Fatalf("expected empty code rejected")
	}
}

func TestEnabledShippingMethods(t *testing.T) {
	t.Parallel()

	methods := EnabledShippingMethods()
	if len(methods) == 0 {
		t.Fatalf("expected at least one enabled method")
	}
	for _, m := range methods {
		if !m.Enabled {
			t.Fatalf("disabled method leaked: %+v", m)
		}
	}
}
