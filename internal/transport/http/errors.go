package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BoulevardTcg/shop-api/internal/domain"
)

const (
	codeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	codeNotFound            = "NOT_FOUND"
	codeInvalidRequestBody  = "INVALID_REQUEST_BODY"
	codeInvalidID           = "INVALID_ID"
	codeInvalidQuantity     = "INVALID_QUANTITY"
	codeEmptyCart           = "EMPTY_CART"
	codeQuantityTooLarge    = "QUANTITY_TOO_LARGE"
	codeDuplicateItems      = "DUPLICATE_ITEMS"
	codeVariantNotFound     = "VARIANT_NOT_FOUND"
	codeVariantInactive     = "VARIANT_INACTIVE"
	codeOutOfStock          = "OUT_OF_STOCK"
	codeHoldExpired         = "HOLD_EXPIRED"
	codeInvalidShipping     = "INVALID_SHIPPING_METHOD"
	codeInvalidRedirectURL  = "INVALID_REDIRECT_URL"
	codeInvalidSessionID    = "INVALID_SESSION_ID"
	codePaymentNotCompleted = "PAYMENT_NOT_COMPLETED"
	codeAlreadyFinalized    = "SESSION_ALREADY_FINALIZED"
	codeInsufficientHold    = "INSUFFICIENT_RESERVATION"
	codeInvalidSignature    = "INVALID_SIGNATURE"
	codeForbidden           = "FORBIDDEN"
	codeInternalError       = "INTERNAL_ERROR"
)

type errorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorDetails(w, status, code, msg, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error:   msg,
		Code:    code,
		Details: details,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"ok":false,"error":"internal error","code":"INTERNAL_ERROR"}`))
		return
	}
	_, _ = w.Write(payload)
}

// respondError translates service errors into the JSON error contract.
// Anything unrecognized is logged and reported as a 500 without detail.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var outOfStock *domain.OutOfStockError
	if errors.As(err, &outOfStock) {
		writeErrorDetails(w, http.StatusConflict, codeOutOfStock, "insufficient stock", outOfStock.Shortages)
		return
	}
	var coverage *domain.HoldCoverageError
	if errors.As(err, &coverage) {
		writeErrorDetails(w, http.StatusConflict, codeHoldExpired, "hold expired or does not cover cart", coverage.Shortfalls)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, codeEmptyCart, err.Error())
	case errors.Is(err, domain.ErrQuantityTooLarge):
		writeError(w, http.StatusBadRequest, codeQuantityTooLarge, err.Error())
	case errors.Is(err, domain.ErrDuplicateItems):
		writeError(w, http.StatusBadRequest, codeDuplicateItems, err.Error())
	case errors.Is(err, domain.ErrVariantNotFound):
		writeError(w, http.StatusBadRequest, codeVariantNotFound, err.Error())
	case errors.Is(err, domain.ErrVariantInactive):
		writeError(w, http.StatusBadRequest, codeVariantInactive, err.Error())
	case errors.Is(err, domain.ErrInvalidShippingMethod):
		writeError(w, http.StatusBadRequest, codeInvalidShipping, err.Error())
	case errors.Is(err, domain.ErrInvalidRedirectURL):
		writeError(w, http.StatusBadRequest, codeInvalidRedirectURL, err.Error())
	case errors.Is(err, domain.ErrInvalidSessionID):
		writeError(w, http.StatusBadRequest, codeInvalidSessionID, err.Error())
	case errors.Is(err, domain.ErrPaymentNotCompleted):
		writeError(w, http.StatusBadRequest, codePaymentNotCompleted, err.Error())
	case errors.Is(err, domain.ErrSessionAlreadyFinalized):
		writeError(w, http.StatusConflict, codeAlreadyFinalized, err.Error())
	case errors.Is(err, domain.ErrInsufficientReservation):
		writeError(w, http.StatusConflict, codeInsufficientHold, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, codeOutOfStock, err.Error())
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
