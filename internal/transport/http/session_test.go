package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BoulevardTcg/shop-api/internal/app"
	"github.com/BoulevardTcg/shop-api/internal/domain"
)

func TestHandleCreateSession(t *testing.T) {
	t.Parallel()

	body := `{"items":[{"variantId":"v1","quantity":1}],"shippingMethodCode":"MONDIAL_RELAY"}`

	t.Run("creates session", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{
			sessionResult: app.SessionResult{SessionID: "cs_1", URL: "https://pay.example/cs_1"},
		}
		router := newTestRouter(checkout, &fakeReservationAPI{})

		req := httptest.NewRequest(http.MethodPost, "/checkout/create-session", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp sessionResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.SessionID != "cs_1" || resp.Cached {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("idempotency key replays the cached session", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{
			sessionResult: app.SessionResult{SessionID: "cs_1", URL: "https://pay.example/cs_1"},
		}
		router := newTestRouter(checkout, &fakeReservationAPI{})

		for i, wantStatus := range []int{http.StatusCreated, http.StatusOK} {
			req := httptest.NewRequest(http.MethodPost, "/checkout/create-session", strings.NewReader(body))
			req.Header.Set("Idempotency-Key", "idem-1")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != wantStatus {
				t.Fatalf("call %d: expected %d, got %d", i, wantStatus, rec.Code)
			}

			var resp sessionResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.SessionID != "cs_1" {
				t.Fatalf("call %d: unexpected session %q", i, resp.SessionID)
			}
			if i == 1 && !resp.Cached {
				t.Fatalf("expected cached flag on replay")
			}
		}
		if checkout.sessionCalls != 1 {
			t.Fatalf("expected a single service call, got %d", checkout.sessionCalls)
		}
	})

	t.Run("expired hold maps to 409 HOLD_EXPIRED", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{
			sessionErr: &domain.HoldCoverageError{Shortfalls: []domain.HoldShortfall{
				{VariantID: "v1", Requested: 2, Held: 0},
			}},
		}
		router := newTestRouter(checkout, &fakeReservationAPI{})

		req := httptest.NewRequest(http.MethodPost, "/checkout/create-session", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}

		var resp struct {
			Code    string                 `json:"code"`
			Details []domain.HoldShortfall `json:"details"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Code != codeHoldExpired {
			t.Fatalf("expected code %s, got %s", codeHoldExpired, resp.Code)
		}
		if len(resp.Details) != 1 || resp.Details[0].Requested != 2 {
			t.Fatalf("unexpected details: %+v", resp.Details)
		}
	})

	t.Run("invalid shipping maps to 400", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{sessionErr: domain.ErrInvalidShippingMethod}
		router := newTestRouter(checkout, &fakeReservationAPI{})

		req := httptest.NewRequest(http.MethodPost, "/checkout/create-session", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
