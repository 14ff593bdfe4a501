package domain

import (
	"testing"
	"time"
)

func TestPromoCodeDiscountFor(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	base := PromoCode{
		Code:       "WELCOME10",
		Type:       PromoTypePercentage,
		Value:      10,
		IsActive:   true,
		ValidFrom:  now.Add(-24 * time.Hour),
		ValidUntil: now.Add(24 * time.Hour),
	}

	tests := []struct {
		name     string
		mutate   func(*PromoCode)
		subtotal int
		want     int
	}{
		{"percentage", nil, 11170, 1117},
		{"percentage capped", func(p *PromoCode) { p.MaxDiscountCents = 500 }, 11170, 500},
		{"fixed", func(p *PromoCode) { p.Type = PromoTypeFixed; p.Value = 300 }, 11170, 300},
		{"fixed never exceeds subtotal", func(p *PromoCode) { p.Type = PromoTypeFixed; p.Value = 300 }, 200, 200},
		{"inactive", func(p *PromoCode) { p.IsActive = false }, 11170, 0},
		{"not yet valid", func(p *PromoCode) { p.ValidFrom = now.Add(time.Hour) }, 11170, 0},
		{"expired", func(p *PromoCode) { p.ValidUntil = now.Add(-time.Hour) }, 11170, 0},
		{"below minimum purchase", func(p *PromoCode) { p.MinPurchaseCents = 20000 }, 11170, 0},
		{"usage limit reached", func(p *PromoCode) { p.UsageLimit = 5; p.UsedCount = 5 }, 11170, 0},
		{"unlimited usage", func(p *PromoCode) { p.UsedCount = 9999 }, 11170, 1117},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			promo := base
			if tc.mutate != nil {
				tc.mutate(&promo)
			}
			if got := promo.DiscountFor(tc.subtotal, now); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
