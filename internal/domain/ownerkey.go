package domain

// Owner keys group reservations by cart owner. They are either user-scoped
// ("user:<userId>") or cart-scoped ("cart:<cartId>") and must stay stable
// across the hold, session and finalize steps of a single checkout.

const (
	ownerKeyUserPrefix = "user:"
	ownerKeyCartPrefix = "cart:"
)

func UserOwnerKey(userID string) string {
	return ownerKeyUserPrefix + userID
}

func CartOwnerKey(cartID string) string {
	return ownerKeyCartPrefix + cartID
}
