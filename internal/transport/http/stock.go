package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BoulevardTcg/shop-api/internal/app"
)

// maxStockBatch bounds one storefront stock query.
const maxStockBatch = 200

// StockReader is the minimal interface needed by the stock display endpoint.
type StockReader interface {
	StockForDisplay(ctx context.Context, variantIDs []string, ownerKey string) (map[string]app.VariantStock, error)
}

// HandleVariantStock returns an HTTP handler for POST /products/variants/stock.
// Display-only aggregates; write paths recompute availability transactionally.
func HandleVariantStock(svc StockReader, auth Authenticator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := resolveOwner(w, r, auth)

		var req variantStockRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if len(req.VariantIDs) == 0 {
			writeJSON(w, http.StatusOK, map[string]app.VariantStock{})
			return
		}
		if len(req.VariantIDs) > maxStockBatch {
			writeError(w, http.StatusBadRequest, codeQuantityTooLarge, "too many variant ids")
			return
		}

		stock, err := svc.StockForDisplay(r.Context(), req.VariantIDs, owner.OwnerKey)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, stock)
	}
}

type variantStockRequest struct {
	VariantIDs []string `json:"variantIds"`
}
