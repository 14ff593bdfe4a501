package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BoulevardTcg/shop-api/internal/app"
	"github.com/go-chi/chi/v5"
)

// SessionVerifier is the minimal interface needed to verify and finalize a
// checkout session from the client-polling path.
type SessionVerifier interface {
	VerifySession(ctx context.Context, sessionID, authUserID string) (app.VerifyResult, error)
}

// HandleVerifySession returns an HTTP handler for
// GET /checkout/verify-session/{sessionID}.
func HandleVerifySession(svc SessionVerifier, auth Authenticator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		userID := ""
		if auth != nil {
			userID = auth.UserID(r)
		}

		result, err := svc.VerifySession(r.Context(), sessionID, userID)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, verifyResponse{
			Success:        true,
			OrderID:        result.OrderID,
			OrderNumber:    result.OrderNumber,
			AlreadyCreated: result.AlreadyCreated,
		})
	}
}

type verifyResponse struct {
	Success        bool   `json:"success"`
	OrderID        string `json:"orderId"`
	OrderNumber    string `json:"orderNumber"`
	AlreadyCreated bool   `json:"alreadyCreated"`
}
