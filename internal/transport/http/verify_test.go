package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BoulevardTcg/shop-api/internal/app"
	"github.com/BoulevardTcg/shop-api/internal/domain"
)

func TestHandleVerifySession(t *testing.T) {
	t.Parallel()

	t.Run("returns order detail", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{
			verifyResult: app.VerifyResult{OrderID: "order-1", OrderNumber: "BLVD-20250310-1234"},
		}
		router := newTestRouter(checkout, &fakeReservationAPI{})

		req := httptest.NewRequest(http.MethodGet, "/checkout/verify-session/cs_123", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if checkout.verifyID != "cs_123" {
			t.Fatalf("expected session id passed through, got %q", checkout.verifyID)
		}

		var resp verifyResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !resp.Success || resp.OrderNumber != "BLVD-20250310-1234" || resp.AlreadyCreated {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("already created", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{
			verifyResult: app.VerifyResult{OrderID: "order-1", OrderNumber: "BLVD-20250310-1234", AlreadyCreated: true},
		}
		router := newTestRouter(checkout, &fakeReservationAPI{})

		req := httptest.NewRequest(http.MethodGet, "/checkout/verify-session/cs_123", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var resp verifyResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !resp.AlreadyCreated {
			t.Fatalf("expected alreadyCreated, got %+v", resp)
		}
	})

	t.Run("invalid session id maps to 400", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{verifyErr: domain.ErrInvalidSessionID}
		router := newTestRouter(checkout, &fakeReservationAPI{})

		req := httptest.NewRequest(http.MethodGet, "/checkout/verify-session/garbage", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unpaid session maps to 400", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{verifyErr: domain.ErrPaymentNotCompleted}
		router := newTestRouter(checkout, &fakeReservationAPI{})

		req := httptest.NewRequest(http.MethodGet, "/checkout/verify-session/cs_123", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}

		var resp errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Code != codePaymentNotCompleted {
			t.Fatalf("expected code %s, got %s", codePaymentNotCompleted, resp.Code)
		}
	})
}
