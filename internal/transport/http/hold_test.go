package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BoulevardTcg/shop-api/internal/app"
	"github.com/BoulevardTcg/shop-api/internal/domain"
)

func TestHandleHold(t *testing.T) {
	t.Parallel()

	t.Run("returns hold detail", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{
			holdResult: app.HoldResult{
				ExpiresAt: routerTestNow.Add(15 * time.Minute),
				TTL:       15 * time.Minute,
				Items:     []app.HeldItem{{VariantID: "v1", QuantityHeld: 2}},
			},
		}
		router := newTestRouter(checkout, &fakeReservationAPI{})

		req := httptest.NewRequest(http.MethodPost, "/checkout/hold",
			strings.NewReader(`{"items":[{"variantId":"v1","quantity":2}]}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp holdResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !resp.OK || resp.HoldTTLMinutes != 15 || len(resp.Items) != 1 {
			t.Fatalf("unexpected response: %+v", resp)
		}
		if !strings.HasPrefix(checkout.holdOwnerKey, "cart:") {
			t.Fatalf("expected cart owner key, got %q", checkout.holdOwnerKey)
		}
	})

	t.Run("echoes a generated cart id", func(t *testing.T) {
		router := newTestRouter(&fakeCheckoutAPI{}, &fakeReservationAPI{})

		req := httptest.NewRequest(http.MethodPost, "/checkout/hold",
			strings.NewReader(`{"items":[{"variantId":"v1","quantity":1}]}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		cartID := rec.Header().Get("X-Cart-Id")
		if len(cartID) != 32 {
			t.Fatalf("expected 32-char cart id header, got %q", cartID)
		}
	})

	t.Run("keeps a valid cart id", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{}
		router := newTestRouter(checkout, &fakeReservationAPI{})

		const cartID = "0123456789abcdef0123456789abcdef"
		req := httptest.NewRequest(http.MethodPost, "/checkout/hold",
			strings.NewReader(`{"items":[{"variantId":"v1","quantity":1}]}`))
		req.Header.Set("X-Cart-Id", cartID)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Cart-Id"); got != cartID {
			t.Fatalf("expected cart id kept, got %q", got)
		}
		if checkout.holdOwnerKey != "cart:"+cartID {
			t.Fatalf("expected owner key pinned to cart id, got %q", checkout.holdOwnerKey)
		}
	})

	t.Run("out of stock maps to 409 with detail", func(t *testing.T) {
		checkout := &fakeCheckoutAPI{
			holdErr: &domain.OutOfStockError{Shortages: []domain.StockShortage{
				{VariantID: "v1", Available: 1, Requested: 3},
			}},
		}
		router := newTestRouter(checkout, &fakeReservationAPI{})

		req := httptest.NewRequest(http.MethodPost, "/checkout/hold",
			strings.NewReader(`{"items":[{"variantId":"v1","quantity":3}]}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}

		var resp struct {
			OK      bool                   `json:"ok"`
			Code    string                 `json:"code"`
			Details []domain.StockShortage `json:"details"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.OK || resp.Code != codeOutOfStock {
			t.Fatalf("unexpected error response: %+v", resp)
		}
		if len(resp.Details) != 1 || resp.Details[0].Available != 1 {
			t.Fatalf("unexpected details: %+v", resp.Details)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		router := newTestRouter(&fakeCheckoutAPI{}, &fakeReservationAPI{})

		req := httptest.NewRequest(http.MethodPost, "/checkout/hold", strings.NewReader(`{nope`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
