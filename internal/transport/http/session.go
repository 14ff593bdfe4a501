package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BoulevardTcg/shop-api/internal/app"
	"github.com/BoulevardTcg/shop-api/internal/cache"
)

const idempotencyHeader = "Idempotency-Key"

// idempotencyTTL bounds how long a replayed create-session returns the
// cached session instead of opening a new one.
const idempotencyTTL = time.Hour

// SessionCreator is the minimal interface needed to open a checkout session.
type SessionCreator interface {
	CreateSession(ctx context.Context, in app.CreateSessionInput) (app.SessionResult, error)
}

// HandleCreateSession returns an HTTP handler for POST /checkout/create-session.
func HandleCreateSession(svc SessionCreator, idem cache.SessionCache, auth Authenticator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := resolveCheckoutOwner(w, r, auth)

		idemKey := r.Header.Get(idempotencyHeader)
		if idemKey != "" && idem != nil {
			ref, err := idem.Get(r.Context(), idemKey)
			if err == nil {
				writeJSON(w, http.StatusOK, sessionResponse{
					SessionID: ref.SessionID,
					URL:       ref.URL,
					Cached:    true,
				})
				return
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				logger.Warn("idempotency cache read failed", slog.String("error", err.Error()))
			}
		}

		var req createSessionRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		result, err := svc.CreateSession(r.Context(), app.CreateSessionInput{
			OwnerKey:      owner.OwnerKey,
			CartID:        owner.CartID,
			UserID:        owner.UserID,
			Lines:         req.Items,
			ShippingCode:  req.ShippingMethodCode,
			CustomerEmail: req.CustomerEmail,
			PromoCode:     req.PromoCode,
			SuccessURL:    req.SuccessURL,
			CancelURL:     req.CancelURL,
		})
		if err != nil {
			respondError(w, logger, err)
			return
		}

		if idemKey != "" && idem != nil {
			ref := cache.SessionRef{SessionID: result.SessionID, URL: result.URL}
			if err := idem.Set(r.Context(), idemKey, ref, idempotencyTTL); err != nil {
				logger.Warn("idempotency cache write failed", slog.String("error", err.Error()))
			}
		}

		writeJSON(w, http.StatusCreated, sessionResponse{
			SessionID: result.SessionID,
			URL:       result.URL,
		})
	}
}

type createSessionRequest struct {
	Items              []app.CartLine `json:"items"`
	ShippingMethodCode string         `json:"shippingMethodCode"`
	CustomerEmail      string         `json:"customerEmail"`
	PromoCode          string         `json:"promoCode"`
	SuccessURL         string         `json:"successUrl"`
	CancelURL          string         `json:"cancelUrl"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	Cached    bool   `json:"cached,omitempty"`
}
