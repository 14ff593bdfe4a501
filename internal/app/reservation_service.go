package app

import (
	"context"
	"errors"
	"time"

	"github.com/BoulevardTcg/shop-api/internal/clock"
	"github.com/BoulevardTcg/shop-api/internal/domain"
)

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetVariantForUpdate(ctx context.Context, variantID string) (domain.Variant, error)
	GetVariant(ctx context.Context, variantID string) (domain.Variant, error)
	GetReservation(ctx context.Context, variantID, ownerKey string) (*domain.Reservation, error)
	SumActiveExcluding(ctx context.Context, variantID, ownerKey string, now time.Time) (int, error)
	SumActive(ctx context.Context, variantID string, now time.Time) (int, error)
	UpsertReservation(ctx context.Context, res domain.Reservation) error
	SetReservationQuantity(ctx context.Context, variantID, ownerKey string, quantity int) error
	DeleteReservation(ctx context.Context, variantID, ownerKey string) error
	DeleteAllForOwner(ctx context.Context, ownerKey string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	ListActiveForOwner(ctx context.Context, ownerKey string, now time.Time) ([]domain.Reservation, error)
}

const (
	// DefaultReservationTTL applies when the caller does not ask for one.
	DefaultReservationTTL = 15 * time.Minute
	// MaxReservationTTL caps direct reservation requests.
	MaxReservationTTL = 24 * time.Hour
)

// ReservationService owns every write to the reservation ledger. All
// stock-affecting decisions are made inside a transaction that first locks
// the variant row, so concurrent writers on the same variant serialize.
type ReservationService struct {
	repo  ReservationRepository
	clock clock.Clock
}

func NewReservationService(repo ReservationRepository, clk clock.Clock) *ReservationService {
	return &ReservationService{
		repo:  repo,
		clock: clk,
	}
}

type ReserveInput struct {
	VariantID string
	OwnerKey  string
	Quantity  int
	TTL       time.Duration
}

// Reserve creates or overwrites the caller's hold on a variant. Quantity
// replaces the stored value (never accumulates) and the expiry is always
// extended, so repeated calls act as a heartbeat.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error) {
	if in.Quantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	if ttl > MaxReservationTTL {
		ttl = MaxReservationTTL
	}

	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		variant, err := s.repo.GetVariantForUpdate(txCtx, in.VariantID)
		if err != nil {
			return err
		}
		if !variant.IsActive {
			return domain.ErrVariantInactive
		}

		existing, err := s.repo.GetReservation(txCtx, in.VariantID, in.OwnerKey)
		if err != nil {
			return err
		}
		current := 0
		createdAt := now
		if existing != nil {
			current = existing.Quantity
			createdAt = existing.CreatedAt
		}

		othersReserved, err := s.repo.SumActiveExcluding(txCtx, in.VariantID, in.OwnerKey, now)
		if err != nil {
			return err
		}

		// Only the increment over the caller's current hold needs free stock.
		delta := in.Quantity - current
		if delta < 0 {
			delta = 0
		}
		available := variant.Stock - othersReserved
		if available < delta {
			if available < 0 {
				available = 0
			}
			return &domain.OutOfStockError{Shortages: []domain.StockShortage{{
				VariantID: in.VariantID,
				Available: available,
				Requested: delta,
			}}}
		}

		result = domain.Reservation{
			VariantID: in.VariantID,
			OwnerKey:  in.OwnerKey,
			Quantity:  in.Quantity,
			ExpiresAt: now.Add(ttl),
			CreatedAt: createdAt,
		}
		return s.repo.UpsertReservation(txCtx, result)
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

// Release gives back held stock. Quantity <= 0 or >= the stored amount
// deletes the row; anything else shrinks it in place without touching the
// expiry. Releasing a nonexistent reservation is a no-op.
func (s *ReservationService) Release(ctx context.Context, variantID, ownerKey string, quantity int) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.GetReservation(txCtx, variantID, ownerKey)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil
		}
		if quantity <= 0 || quantity >= existing.Quantity {
			return s.repo.DeleteReservation(txCtx, variantID, ownerKey)
		}
		return s.repo.SetReservationQuantity(txCtx, variantID, ownerKey, existing.Quantity-quantity)
	})
}

// ReleaseAllForOwner drops every reservation for the owner; used on cart
// abandonment and logout.
func (s *ReservationService) ReleaseAllForOwner(ctx context.Context, ownerKey string) (int64, error) {
	return s.repo.DeleteAllForOwner(ctx, ownerKey)
}

// CleanupExpired deletes rows that no availability computation counts
// anymore. Correctness never depends on when this runs.
func (s *ReservationService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.clock.Now())
}

// GetAvailableStock is a display-only snapshot; write paths always recompute
// availability inside their own transaction.
func (s *ReservationService) GetAvailableStock(ctx context.Context, variantID string) (domain.Availability, error) {
	variant, err := s.repo.GetVariant(ctx, variantID)
	if err != nil {
		return domain.Availability{}, err
	}
	reserved, err := s.repo.SumActive(ctx, variantID, s.clock.Now())
	if err != nil {
		return domain.Availability{}, err
	}
	available := variant.Stock - reserved
	if available < 0 {
		available = 0
	}
	return domain.Availability{
		Stock:     variant.Stock,
		Reserved:  reserved,
		Available: available,
	}, nil
}

func (s *ReservationService) ActiveReservationsForOwner(ctx context.Context, ownerKey string) ([]domain.Reservation, error) {
	return s.repo.ListActiveForOwner(ctx, ownerKey, s.clock.Now())
}

// VariantStock is the per-variant snapshot served by the storefront stock
// endpoint.
type VariantStock struct {
	Available    int `json:"available"`
	ReservedByMe int `json:"reservedByMe"`
	MaxAllowed   int `json:"maxAllowed"`
	PriceCents   int `json:"priceCents"`
}

// StockForDisplay builds best-effort availability for a batch of variants,
// seen from one shopper's point of view. Unknown and inactive variants are
// simply omitted. MaxAllowed is what this owner could hold in total, their
// own reservation included, capped at the per-line limit.
func (s *ReservationService) StockForDisplay(ctx context.Context, variantIDs []string, ownerKey string) (map[string]VariantStock, error) {
	now := s.clock.Now()
	result := make(map[string]VariantStock, len(variantIDs))

	for _, variantID := range variantIDs {
		variant, err := s.repo.GetVariant(ctx, variantID)
		if errors.Is(err, domain.ErrVariantNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !variant.IsActive {
			continue
		}

		others, err := s.repo.SumActiveExcluding(ctx, variantID, ownerKey, now)
		if err != nil {
			return nil, err
		}
		mine := 0
		if res, err := s.repo.GetReservation(ctx, variantID, ownerKey); err != nil {
			return nil, err
		} else if res != nil && res.Active(now) {
			mine = res.Quantity
		}

		holdable := variant.Stock - others
		if holdable < 0 {
			holdable = 0
		}
		available := holdable - mine
		if available < 0 {
			available = 0
		}
		maxAllowed := holdable
		if maxAllowed > MaxQuantityPerLine {
			maxAllowed = MaxQuantityPerLine
		}

		result[variantID] = VariantStock{
			Available:    available,
			ReservedByMe: mine,
			MaxAllowed:   maxAllowed,
			PriceCents:   variant.PriceCents,
		}
	}
	return result, nil
}

// ReservedByOwner reports the owner's own active quantity for one variant,
// used by the display endpoint to compute per-shopper limits.
func (s *ReservationService) ReservedByOwner(ctx context.Context, variantID, ownerKey string) (int, error) {
	res, err := s.repo.GetReservation(ctx, variantID, ownerKey)
	if err != nil {
		return 0, err
	}
	if res == nil || !res.Active(s.clock.Now()) {
		return 0, nil
	}
	return res.Quantity, nil
}
