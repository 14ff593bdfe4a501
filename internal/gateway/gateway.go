// Package gateway adapts the external payment provider. The provider is a
// black box to the rest of the service: it opens a checkout session against
// opaque metadata and later reports completion, at least once, through a
// signed webhook or a polled lookup.
package gateway

import "context"

// Payment status values reported on a session.
const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

// Metadata keys the checkout flow embeds in a session. The gateway round-
// trips them untouched; the finalizer parses them back out.
const (
	MetaItems              = "items"
	MetaOwnerKey           = "ownerKey"
	MetaCartID             = "cartId"
	MetaUserID             = "userId"
	MetaShippingMethodCode = "shippingMethodCode"
	MetaShippingPriceCents = "shippingPriceCents"
	MetaShippingCarrier    = "shippingCarrier"
	MetaPromoCode          = "promoCode"
	MetaPromoDiscount      = "promoDiscount"
	MetaCustomerEmail      = "customerEmail"
)

type LineItem struct {
	Name            string `json:"name"`
	UnitAmountCents int    `json:"unitAmountCents"`
	Quantity        int    `json:"quantity"`
}

type CreateSessionParams struct {
	LineItems     []LineItem        `json:"lineItems"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customerEmail,omitempty"`
	SuccessURL    string            `json:"successUrl"`
	CancelURL     string            `json:"cancelUrl"`
	DiscountCents int               `json:"discountCents,omitempty"`
	Metadata      map[string]string `json:"metadata"`
}

// Session mirrors what the provider reports about a checkout session.
type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"paymentStatus"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customerEmail"`
	Metadata      map[string]string `json:"metadata"`
}

func (s Session) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// Gateway is the surface the checkout flow needs from the provider.
type Gateway interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (Session, error)
	GetSession(ctx context.Context, sessionID string) (Session, error)
}
