package domain

import (
	"errors"
	"fmt"
)

var (
	ErrVariantNotFound         = errors.New("variant not found")
	ErrVariantInactive         = errors.New("variant inactive")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrInvalidID               = errors.New("invalid id")
	ErrInvalidShippingMethod   = errors.New("invalid shipping method")
	ErrInsufficientReservation = errors.New("insufficient reservation")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrSessionAlreadyFinalized = errors.New("session already finalized")
	ErrPaymentNotCompleted     = errors.New("payment not completed")
	ErrOrderNotFound           = errors.New("order not found")
	ErrEmptyCart               = errors.New("cart is empty")
	ErrQuantityTooLarge        = errors.New("quantity too large")
	ErrDuplicateItems          = errors.New("duplicate cart items")
	ErrInvalidSessionID        = errors.New("invalid session id")
	ErrInvalidRedirectURL      = errors.New("redirect url not allowed")
	ErrNoCartItems             = errors.New("session has no cart items")
)

// StockShortage describes one cart line that could not be covered by
// available stock.
type StockShortage struct {
	VariantID string `json:"variantId"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// OutOfStockError is returned by reservation writes when the requested
// quantity exceeds availability. It always carries per-line detail so the
// caller can let the shopper adjust quantities.
type OutOfStockError struct {
	Shortages []StockShortage
}

func (e *OutOfStockError) Error() string {
	if len(e.Shortages) == 1 {
		s := e.Shortages[0]
		return fmt.Sprintf("out of stock: available %d, requested %d", s.Available, s.Requested)
	}
	return fmt.Sprintf("out of stock: %d lines short", len(e.Shortages))
}

// HoldShortfall describes one cart line whose active reservation does not
// cover the requested quantity.
type HoldShortfall struct {
	VariantID string `json:"variantId"`
	Requested int    `json:"requested"`
	Held      int    `json:"held"`
}

// HoldCoverageError signals that the caller's hold has expired or never
// covered the cart; the client is expected to re-run the hold step.
type HoldCoverageError struct {
	Shortfalls []HoldShortfall
}

func (e *HoldCoverageError) Error() string {
	return fmt.Sprintf("hold does not cover cart: %d lines short", len(e.Shortfalls))
}
