package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/BoulevardTcg/shop-api/internal/clock"
	"github.com/BoulevardTcg/shop-api/internal/domain"
	"github.com/BoulevardTcg/shop-api/internal/gateway"
)

const signatureHeader = "Gateway-Signature"

// maxWebhookBody bounds how much of a delivery is read before verification.
const maxWebhookBody = 1 << 20

// SessionFinalizer is the minimal interface needed to turn a paid session
// into an order.
type SessionFinalizer interface {
	Finalize(ctx context.Context, session gateway.Session) (domain.Order, error)
}

// HandleWebhook returns an HTTP handler for POST /checkout/webhook. The
// signature is verified against the raw payload before anything else; an
// unverified delivery never reaches the ledger. Responding non-2xx makes the
// provider retry, so failures that retrying cannot fix return 200.
func HandleWebhook(svc SessionFinalizer, webhookSecret string, clk clock.Clock, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "could not read payload")
			return
		}

		event, err := gateway.ParseEvent(payload, r.Header.Get(signatureHeader), webhookSecret, gateway.DefaultSignatureTolerance, clk.Now())
		if err != nil {
			logger.Warn("webhook rejected", slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, codeInvalidSignature, "invalid signature")
			return
		}

		if event.Type != gateway.EventCheckoutCompleted {
			writeJSON(w, http.StatusOK, webhookResponse{Received: true})
			return
		}
		if !event.Session.Paid() {
			writeJSON(w, http.StatusOK, webhookResponse{Received: true})
			return
		}

		if _, err := svc.Finalize(r.Context(), event.Session); err != nil {
			switch {
			case errors.Is(err, domain.ErrNoCartItems):
				// Not our session; acknowledge so the provider stops retrying.
				logger.Info("webhook session has no cart metadata, ignored",
					slog.String("session_id", event.Session.ID))
			case errors.Is(err, domain.ErrSessionAlreadyFinalized):
				logger.Info("webhook session already finalized",
					slog.String("session_id", event.Session.ID))
			default:
				logger.Error("webhook finalize failed",
					slog.String("session_id", event.Session.ID),
					slog.String("error", err.Error()))
				writeError(w, http.StatusInternalServerError, codeInternalError, "finalize failed")
				return
			}
		}

		writeJSON(w, http.StatusOK, webhookResponse{Received: true})
	}
}

type webhookResponse struct {
	Received bool `json:"received"`
}
