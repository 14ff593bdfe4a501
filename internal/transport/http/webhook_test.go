package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BoulevardTcg/shop-api/internal/domain"
	"github.com/BoulevardTcg/shop-api/internal/gateway"
)

func completedEventPayload(t *testing.T) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":   "evt_1",
		"type": gateway.EventCheckoutCompleted,
		"data": map[string]any{
			"object": map[string]any{
				"id":            "cs_1",
				"paymentStatus": gateway.PaymentStatusPaid,
				"metadata": map[string]string{
					"items":    `[{"variantId":"v1","quantity":1}]`,
					"ownerKey": "cart:a",
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func postWebhook(router http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/checkout/webhook", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleWebhook(t *testing.T) {
	t.Parallel()

	t.Run("finalizes a signed completed session", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{}
		router := newTestRouter(checkout, &fakeReservationAPI{})
		payload := completedEventPayload(t)

		rec := postWebhook(router, payload, gateway.SignPayload(payload, testWebhookSecret, routerTestNow))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(checkout.finalized) != 1 || checkout.finalized[0].ID != "cs_1" {
			t.Fatalf("expected session finalized, got %+v", checkout.finalized)
		}

		var resp webhookResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !resp.Received {
			t.Fatalf("expected received ack")
		}
	})

	t.Run("rejects missing signature before touching the ledger", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{}
		router := newTestRouter(checkout, &fakeReservationAPI{})

		rec := postWebhook(router, completedEventPayload(t), "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if len(checkout.finalized) != 0 {
			t.Fatalf("finalize must not run on unsigned delivery")
		}
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{}
		router := newTestRouter(checkout, &fakeReservationAPI{})
		payload := completedEventPayload(t)

		rec := postWebhook(router, payload, gateway.SignPayload(payload, "whsec_wrong", routerTestNow))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if len(checkout.finalized) != 0 {
			t.Fatalf("finalize must not run on forged delivery")
		}
	})

	t.Run("other event types are acknowledged and ignored", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{}
		router := newTestRouter(checkout, &fakeReservationAPI{})
		payload := []byte(`{"id":"evt_2","type":"charge.refunded","data":{"object":{}}}`)

		rec := postWebhook(router, payload, gateway.SignPayload(payload, testWebhookSecret, routerTestNow))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(checkout.finalized) != 0 {
			t.Fatalf("expected no finalize for other event types")
		}
	})

	t.Run("session without cart metadata is acknowledged", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{finalizeErr: domain.ErrNoCartItems}
		router := newTestRouter(checkout, &fakeReservationAPI{})
		payload := completedEventPayload(t)

		rec := postWebhook(router, payload, gateway.SignPayload(payload, testWebhookSecret, routerTestNow))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for foreign session, got %d", rec.Code)
		}
	})

	t.Run("duplicate delivery is acknowledged", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{finalizeErr: domain.ErrSessionAlreadyFinalized}
		router := newTestRouter(checkout, &fakeReservationAPI{})
		payload := completedEventPayload(t)

		rec := postWebhook(router, payload, gateway.SignPayload(payload, testWebhookSecret, routerTestNow))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for duplicate delivery, got %d", rec.Code)
		}
	})

	t.Run("finalize failure returns 500 so the provider retries", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{finalizeErr: errors.New("db down")}
		router := newTestRouter(checkout, &fakeReservationAPI{})
		payload := completedEventPayload(t)

		rec := postWebhook(router, payload, gateway.SignPayload(payload, testWebhookSecret, routerTestNow))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}
