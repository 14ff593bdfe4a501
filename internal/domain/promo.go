package domain

import "time"

type PromoType string

const (
	PromoTypePercentage PromoType = "percentage"
	PromoTypeFixed      PromoType = "fixed"
)

// PromoCode is a discount applied at session creation. UsageLimit of zero
// means unlimited; the usage counter is advanced with a conditional update
// so concurrent checkouts cannot exceed the limit.
type PromoCode struct {
	Code             string
	Type             PromoType
	Value            int
	MaxDiscountCents int
	MinPurchaseCents int
	UsageLimit       int
	UsedCount        int
	IsActive         bool
	ValidFrom        time.Time
	ValidUntil       time.Time
}

// DiscountFor computes the discount in cents for a given order subtotal, or
// zero when the code does not apply at the given instant.
func (p PromoCode) DiscountFor(subtotalCents int, now time.Time) int {
	if !p.IsActive {
		return 0
	}
	if now.Before(p.ValidFrom) || now.After(p.ValidUntil) {
		return 0
	}
	if p.MinPurchaseCents > 0 && subtotalCents < p.MinPurchaseCents {
		return 0
	}
	if p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit {
		return 0
	}

	if p.Type == PromoTypePercentage {
		discount := subtotalCents * p.Value / 100
		if p.MaxDiscountCents > 0 && discount > p.MaxDiscountCents {
			discount = p.MaxDiscountCents
		}
		return discount
	}

	discount := p.Value
	if discount > subtotalCents {
		discount = subtotalCents
	}
	return discount
}
