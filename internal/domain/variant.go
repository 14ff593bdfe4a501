package domain

// Variant is a sellable catalog SKU. Stock is the authoritative counter;
// it only ever changes through the finalizer's conditional decrement.
type Variant struct {
	ID          string
	ProductID   string
	ProductName string
	Name        string
	PriceCents  int
	Stock       int
	IsActive    bool
}
