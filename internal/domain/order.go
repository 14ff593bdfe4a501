package domain

import "time"

type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "confirmed"
)

// Order is the permanent record produced by finalizing a paid checkout
// session. PaymentSessionID is unique: it is what makes finalization
// idempotent at the storage level.
type Order struct {
	ID                 string
	OrderNumber        string
	UserID             string
	Status             OrderStatus
	TotalCents         int
	Currency           string
	PaymentSessionID   string
	ShippingMethodCode string
	ShippingCostCents  int
	CreatedAt          time.Time
}

// OrderItem snapshots catalog data at finalization time. Prices are re-read
// from the variant inside the finalizing transaction, never trusted from
// values cached at hold time.
type OrderItem struct {
	ID             string
	OrderID        string
	ProductID      string
	VariantID      string
	ProductName    string
	VariantName    string
	Quantity       int
	UnitPriceCents int
	TotalCents     int
}
