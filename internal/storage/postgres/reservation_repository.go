package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/BoulevardTcg/shop-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const variantColumns = `v.id, v.product_id, p.name, v.name, v.price_cents, v.stock, v.is_active`

// GetVariantForUpdate locks the variant row for the rest of the transaction.
// Concurrent writers for the same variant serialize here, which is what makes
// the availability arithmetic that follows safe.
func (r *ReservationRepository) GetVariantForUpdate(ctx context.Context, variantID string) (domain.Variant, error) {
	const query = `
SELECT ` + variantColumns + `
FROM product_variants v
JOIN products p ON p.id = v.product_id
WHERE v.id = $1
FOR UPDATE OF v`

	return r.scanVariant(r.queryRow(ctx, query, variantID))
}

func (r *ReservationRepository) GetVariant(ctx context.Context, variantID string) (domain.Variant, error) {
	const query = `
SELECT ` + variantColumns + `
FROM product_variants v
JOIN products p ON p.id = v.product_id
WHERE v.id = $1`

	return r.scanVariant(r.queryRow(ctx, query, variantID))
}

func (r *ReservationRepository) scanVariant(row pgx.Row) (domain.Variant, error) {
	var v domain.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.ProductName, &v.Name, &v.PriceCents, &v.Stock, &v.IsActive)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Variant{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Variant{}, domain.ErrVariantNotFound
		}
		return domain.Variant{}, fmt.Errorf("get variant: %w", err)
	}
	return v, nil
}

func (r *ReservationRepository) GetReservation(ctx context.Context, variantID, ownerKey string) (*domain.Reservation, error) {
	const query = `
SELECT variant_id, owner_key, quantity, expires_at, created_at
FROM cart_reservations
WHERE variant_id = $1 AND owner_key = $2`

	var res domain.Reservation
	err := r.queryRow(ctx, query, variantID, ownerKey).
		Scan(&res.VariantID, &res.OwnerKey, &res.Quantity, &res.ExpiresAt, &res.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return &res, nil
}

// SumActiveExcluding aggregates active reservations for a variant, leaving
// out the caller's own row so re-reserving the same cart never self-blocks.
func (r *ReservationRepository) SumActiveExcluding(ctx context.Context, variantID, ownerKey string, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM cart_reservations
WHERE variant_id = $1 AND owner_key <> $2 AND expires_at > $3`

	var total int
	if err := r.queryRow(ctx, query, variantID, ownerKey, now).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum active reservations: %w", err)
	}
	return total, nil
}

func (r *ReservationRepository) SumActive(ctx context.Context, variantID string, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM cart_reservations
WHERE variant_id = $1 AND expires_at > $2`

	var total int
	if err := r.queryRow(ctx, query, variantID, now).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum active reservations: %w", err)
	}
	return total, nil
}

// UpsertReservation overwrites quantity and extends expiry for the
// (variant, owner) pair, creating the row on first reserve.
func (r *ReservationRepository) UpsertReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO cart_reservations (variant_id, owner_key, quantity, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (variant_id, owner_key)
DO UPDATE SET quantity = EXCLUDED.quantity, expires_at = EXCLUDED.expires_at`

	_, err := r.exec(ctx, stmt, res.VariantID, res.OwnerKey, res.Quantity, res.ExpiresAt, res.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrVariantNotFound
		}
		return fmt.Errorf("upsert reservation: %w", err)
	}
	return nil
}

// SetReservationQuantity shrinks a reservation in place without touching its
// expiry; used by partial release.
func (r *ReservationRepository) SetReservationQuantity(ctx context.Context, variantID, ownerKey string, quantity int) error {
	const stmt = `
UPDATE cart_reservations
SET quantity = $3
WHERE variant_id = $1 AND owner_key = $2`

	_, err := r.exec(ctx, stmt, variantID, ownerKey, quantity)
	if err != nil {
		return fmt.Errorf("set reservation quantity: %w", err)
	}
	return nil
}

func (r *ReservationRepository) DeleteReservation(ctx context.Context, variantID, ownerKey string) error {
	const stmt = `DELETE FROM cart_reservations WHERE variant_id = $1 AND owner_key = $2`

	if _, err := r.exec(ctx, stmt, variantID, ownerKey); err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) DeleteAllForOwner(ctx context.Context, ownerKey string) (int64, error) {
	const stmt = `DELETE FROM cart_reservations WHERE owner_key = $1`

	tag, err := r.exec(ctx, stmt, ownerKey)
	if err != nil {
		return 0, fmt.Errorf("delete reservations for owner: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes rows no other operation counts as active. Safe to run
// concurrently with everything else.
func (r *ReservationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const stmt = `DELETE FROM cart_reservations WHERE expires_at <= $1`

	tag, err := r.exec(ctx, stmt, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired reservations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *ReservationRepository) ListActiveForOwner(ctx context.Context, ownerKey string, now time.Time) ([]domain.Reservation, error) {
	const query = `
SELECT variant_id, owner_key, quantity, expires_at, created_at
FROM cart_reservations
WHERE owner_key = $1 AND expires_at > $2
ORDER BY created_at DESC`

	rows, err := r.query(ctx, query, ownerKey, now)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.VariantID, &res.OwnerKey, &res.Quantity, &res.ExpiresAt, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservations: %w", rows.Err())
	}
	return out, nil
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
