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

// OrderRepository carries the checkout side of the store: catalog reads,
// the conditional stock decrement, order creation and promo accounting.
// Reservation rows consumed during finalization go through the same
// transaction via the shared tx-in-context helpers.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OrderRepository) GetVariantForUpdate(ctx context.Context, variantID string) (domain.Variant, error) {
	const query = `
SELECT ` + variantColumns + `
FROM product_variants v
JOIN products p ON p.id = v.product_id
WHERE v.id = $1
FOR UPDATE OF v`

	return scanOrderVariant(r.queryRow(ctx, query, variantID))
}

// ListActiveVariants returns only active variants; callers compare the result
// count against the requested ids to detect missing or deactivated SKUs.
func (r *OrderRepository) ListActiveVariants(ctx context.Context, variantIDs []string) ([]domain.Variant, error) {
	const query = `
SELECT ` + variantColumns + `
FROM product_variants v
JOIN products p ON p.id = v.product_id
WHERE v.id = ANY($1) AND v.is_active`

	rows, err := r.query(ctx, query, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var out []domain.Variant
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.ProductName, &v.Name, &v.PriceCents, &v.Stock, &v.IsActive); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		out = append(out, v)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate variants: %w", rows.Err())
	}
	return out, nil
}

// DecrementStock performs the conditional decrement: the stock check and the
// write are a single statement, so a concurrent sale cannot slip between
// them. Zero affected rows means insufficient stock.
func (r *OrderRepository) DecrementStock(ctx context.Context, variantID string, quantity int) error {
	const stmt = `
UPDATE product_variants
SET stock = stock - $2
WHERE id = $1 AND stock >= $2`

	tag, err := r.exec(ctx, stmt, variantID, quantity)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order, items []domain.OrderItem) error {
	const orderStmt = `
INSERT INTO orders (id, order_number, user_id, status, total_cents, currency,
	payment_session_id, shipping_method, shipping_cost_cents, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.exec(ctx, orderStmt,
		order.ID,
		order.OrderNumber,
		order.UserID,
		order.Status,
		order.TotalCents,
		order.Currency,
		order.PaymentSessionID,
		order.ShippingMethodCode,
		order.ShippingCostCents,
		order.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSessionAlreadyFinalized
		}
		return fmt.Errorf("create order: %w", err)
	}

	const itemStmt = `
INSERT INTO order_items (id, order_id, product_id, product_variant_id,
	product_name, variant_name, quantity, unit_price_cents, total_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, item := range items {
		_, err := r.exec(ctx, itemStmt,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.VariantID,
			item.ProductName,
			item.VariantName,
			item.Quantity,
			item.UnitPriceCents,
			item.TotalCents,
		)
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}
	return nil
}

func (r *OrderRepository) GetOrderByPaymentSessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	const query = `
SELECT id, order_number, COALESCE(user_id, ''), status, total_cents, currency,
	payment_session_id, COALESCE(shipping_method, ''), shipping_cost_cents, created_at
FROM orders
WHERE payment_session_id = $1`

	var o domain.Order
	err := r.queryRow(ctx, query, sessionID).Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.TotalCents,
		&o.Currency,
		&o.PaymentSessionID,
		&o.ShippingMethodCode,
		&o.ShippingCostCents,
		&o.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by session: %w", err)
	}
	return &o, nil
}

func (r *OrderRepository) GetPromoCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	const query = `
SELECT code, type, value, max_discount_cents, min_purchase_cents,
	usage_limit, used_count, is_active, valid_from, valid_until
FROM promo_codes
WHERE code = $1`

	var p domain.PromoCode
	err := r.queryRow(ctx, query, code).Scan(
		&p.Code,
		&p.Type,
		&p.Value,
		&p.MaxDiscountCents,
		&p.MinPurchaseCents,
		&p.UsageLimit,
		&p.UsedCount,
		&p.IsActive,
		&p.ValidFrom,
		&p.ValidUntil,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get promo code: %w", err)
	}
	return &p, nil
}

// ConsumePromoCode advances the usage counter only while under the limit,
// mirroring the conditional decrement on stock. False means the limit was
// reached by a concurrent checkout.
func (r *OrderRepository) ConsumePromoCode(ctx context.Context, code string) (bool, error) {
	const stmt = `
UPDATE promo_codes
SET used_count = used_count + 1
WHERE code = $1 AND is_active AND (usage_limit = 0 OR used_count < usage_limit)`

	tag, err := r.exec(ctx, stmt, code)
	if err != nil {
		return false, fmt.Errorf("consume promo code: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ActiveQuantitiesForOwner returns the owner's active held quantity per
// variant, restricted to the given ids; missing entries mean no active hold.
func (r *OrderRepository) ActiveQuantitiesForOwner(ctx context.Context, ownerKey string, variantIDs []string, now time.Time) (map[string]int, error) {
	const query = `
SELECT variant_id, quantity
FROM cart_reservations
WHERE owner_key = $1 AND variant_id = ANY($2) AND expires_at > $3`

	rows, err := r.query(ctx, query, ownerKey, variantIDs, now)
	if err != nil {
		return nil, fmt.Errorf("list held quantities: %w", err)
	}
	defer rows.Close()

	held := make(map[string]int, len(variantIDs))
	for rows.Next() {
		var variantID string
		var quantity int
		if err := rows.Scan(&variantID, &quantity); err != nil {
			return nil, fmt.Errorf("scan held quantity: %w", err)
		}
		held[variantID] = quantity
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate held quantities: %w", rows.Err())
	}
	return held, nil
}

func (r *OrderRepository) GetReservation(ctx context.Context, variantID, ownerKey string) (*domain.Reservation, error) {
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

func (r *OrderRepository) DeleteReservation(ctx context.Context, variantID, ownerKey string) error {
	const stmt = `DELETE FROM cart_reservations WHERE variant_id = $1 AND owner_key = $2`

	if _, err := r.exec(ctx, stmt, variantID, ownerKey); err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return nil
}

func (r *OrderRepository) SumActiveExcluding(ctx context.Context, variantID, ownerKey string, now time.Time) (int, error) {
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

func (r *OrderRepository) UpsertReservation(ctx context.Context, res domain.Reservation) error {
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

func scanOrderVariant(row pgx.Row) (domain.Variant, error) {
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

func (r *OrderRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OrderRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *OrderRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
