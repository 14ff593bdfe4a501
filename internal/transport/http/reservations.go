package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/BoulevardTcg/shop-api/internal/app"
	"github.com/BoulevardTcg/shop-api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ReservationManager is the interface the reservation endpoints need.
type ReservationManager interface {
	Reserve(ctx context.Context, in app.ReserveInput) (domain.Reservation, error)
	Release(ctx context.Context, variantID, ownerKey string, quantity int) error
	ReleaseAllForOwner(ctx context.Context, ownerKey string) (int64, error)
	ActiveReservationsForOwner(ctx context.Context, ownerKey string) ([]domain.Reservation, error)
	GetAvailableStock(ctx context.Context, variantID string) (domain.Availability, error)
}

// HandleReserve returns an HTTP handler for POST /reservations/reserve.
func HandleReserve(svc ReservationManager, auth Authenticator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := resolveOwner(w, r, auth)

		var req reserveRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.VariantID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "variantId is required")
			return
		}

		res, err := svc.Reserve(r.Context(), app.ReserveInput{
			VariantID: req.VariantID,
			OwnerKey:  owner.OwnerKey,
			Quantity:  req.Quantity,
			TTL:       time.Duration(req.TTLMinutes) * time.Minute,
		})
		if err != nil {
			respondError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, reserveResponse{
			OK:        true,
			VariantID: res.VariantID,
			Quantity:  res.Quantity,
			ExpiresAt: res.ExpiresAt,
		})
	}
}

// HandleRelease returns an HTTP handler for POST /reservations/release.
func HandleRelease(svc ReservationManager, auth Authenticator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := resolveOwner(w, r, auth)

		var req releaseRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.VariantID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "variantId is required")
			return
		}

		if err := svc.Release(r.Context(), req.VariantID, owner.OwnerKey, req.Quantity); err != nil {
			respondError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}

// HandleReleaseAll returns an HTTP handler for POST /reservations/release-all.
func HandleReleaseAll(svc ReservationManager, auth Authenticator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := resolveOwner(w, r, auth)

		released, err := svc.ReleaseAllForOwner(r.Context(), owner.OwnerKey)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, releaseAllResponse{OK: true, Released: released})
	}
}

// HandleMyReservations returns an HTTP handler for GET /reservations/my.
func HandleMyReservations(svc ReservationManager, auth Authenticator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := resolveOwner(w, r, auth)

		reservations, err := svc.ActiveReservationsForOwner(r.Context(), owner.OwnerKey)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		items := make([]reservationItem, 0, len(reservations))
		for _, res := range reservations {
			items = append(items, reservationItem{
				VariantID: res.VariantID,
				Quantity:  res.Quantity,
				ExpiresAt: res.ExpiresAt,
			})
		}
		writeJSON(w, http.StatusOK, myReservationsResponse{Reservations: items})
	}
}

// HandleAvailability returns an HTTP handler for
// GET /reservations/availability/{variantID}. Display-only: the numbers may
// be stale by the time the client reads them.
func HandleAvailability(svc ReservationManager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID := chi.URLParam(r, "variantID")
		if variantID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "variantId is required")
			return
		}

		availability, err := svc.GetAvailableStock(r.Context(), variantID)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, availabilityResponse{
			Stock:     availability.Stock,
			Reserved:  availability.Reserved,
			Available: availability.Available,
		})
	}
}

type reserveRequest struct {
	VariantID  string `json:"variantId"`
	Quantity   int    `json:"quantity"`
	TTLMinutes int    `json:"ttlMinutes"`
}

type reserveResponse struct {
	OK        bool      `json:"ok"`
	VariantID string    `json:"variantId"`
	Quantity  int       `json:"quantity"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type releaseRequest struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type releaseAllResponse struct {
	OK       bool  `json:"ok"`
	Released int64 `json:"released"`
}

type reservationItem struct {
	VariantID string    `json:"variantId"`
	Quantity  int       `json:"quantity"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type myReservationsResponse struct {
	Reservations []reservationItem `json:"reservations"`
}

type availabilityResponse struct {
	Stock     int `json:"stock"`
	Reserved  int `json:"reserved"`
	Available int `json:"available"`
}
