package domain

import "time"

// Reservation is a short-lived claim on stock for one cart owner and one
// variant. A reservation is active while ExpiresAt is in the future; expired
// rows are excluded from availability arithmetic until the cleanup job
// physically deletes them.
type Reservation struct {
	VariantID string
	OwnerKey  string
	Quantity  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Active reports whether the reservation still counts against stock at the
// given instant.
func (r Reservation) Active(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// Availability is a read-only snapshot of a variant's stock position, used
// for display. Write decisions always recompute inside their own transaction.
type Availability struct {
	Stock     int
	Reserved  int
	Available int
}
