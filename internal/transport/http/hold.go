package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/BoulevardTcg/shop-api/internal/app"
)

// StockHolder is the minimal interface needed to place a checkout hold.
type StockHolder interface {
	Hold(ctx context.Context, in app.HoldInput) (app.HoldResult, error)
}

// HandleHold returns an HTTP handler for POST /checkout/hold.
func HandleHold(svc StockHolder, auth Authenticator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := resolveCheckoutOwner(w, r, auth)

		var req holdRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		result, err := svc.Hold(r.Context(), app.HoldInput{
			OwnerKey: owner.OwnerKey,
			Lines:    req.Items,
			TTL:      time.Duration(req.TTLMinutes) * time.Minute,
		})
		if err != nil {
			respondError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, holdResponse{
			OK:             true,
			ExpiresAt:      result.ExpiresAt,
			HoldTTLMinutes: int(result.TTL / time.Minute),
			Items:          result.Items,
		})
	}
}

type holdRequest struct {
	Items      []app.CartLine `json:"items"`
	TTLMinutes int            `json:"ttlMinutes"`
}

type holdResponse struct {
	OK             bool           `json:"ok"`
	ExpiresAt      time.Time      `json:"expiresAt"`
	HoldTTLMinutes int            `json:"holdTtlMinutes"`
	Items          []app.HeldItem `json:"items"`
}
