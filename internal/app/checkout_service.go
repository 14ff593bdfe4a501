package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BoulevardTcg/shop-api/internal/clock"
	"github.com/BoulevardTcg/shop-api/internal/domain"
	"github.com/BoulevardTcg/shop-api/internal/gateway"
	"github.com/google/uuid"
)

type CheckoutRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetVariantForUpdate(ctx context.Context, variantID string) (domain.Variant, error)
	ListActiveVariants(ctx context.Context, variantIDs []string) ([]domain.Variant, error)
	GetReservation(ctx context.Context, variantID, ownerKey string) (*domain.Reservation, error)
	SumActiveExcluding(ctx context.Context, variantID, ownerKey string, now time.Time) (int, error)
	UpsertReservation(ctx context.Context, res domain.Reservation) error
	ActiveQuantitiesForOwner(ctx context.Context, ownerKey string, variantIDs []string, now time.Time) (map[string]int, error)
	DeleteReservation(ctx context.Context, variantID, ownerKey string) error
	DecrementStock(ctx context.Context, variantID string, quantity int) error
	CreateOrder(ctx context.Context, order domain.Order, items []domain.OrderItem) error
	GetOrderByPaymentSessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	GetPromoCode(ctx context.Context, code string) (*domain.PromoCode, error)
	ConsumePromoCode(ctx context.Context, code string) (bool, error)
}

// Cart limits, enforced on both hold and session creation.
const (
	MaxCartLines       = 50
	MaxQuantityPerLine = 100
	MaxTotalQuantity   = 500
)

const (
	defaultHoldTTL = 15 * time.Minute
	maxHoldTTL     = 60 * time.Minute
)

// CheckoutService drives the hold → session → finalize protocol. Everything
// that mutates the stock or reservation ledgers runs inside a repository
// transaction; the gateway call in CreateSession deliberately happens before
// any ledger mutation.
type CheckoutService struct {
	repo    CheckoutRepository
	gateway gateway.Gateway
	clock   clock.Clock
	logger  *slog.Logger
	holdTTL time.Duration

	successURL     string
	cancelURL      string
	allowedOrigins map[string]struct{}
}

func NewCheckoutService(repo CheckoutRepository, gw gateway.Gateway, clk clock.Clock, logger *slog.Logger, opts ...CheckoutServiceOption) *CheckoutService {
	svc := &CheckoutService{
		repo:           repo,
		gateway:        gw,
		clock:          clk,
		logger:         logger,
		holdTTL:        defaultHoldTTL,
		allowedOrigins: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CheckoutServiceOption func(*CheckoutService)

// WithHoldTTL overrides the default TTL for checkout holds.
func WithHoldTTL(d time.Duration) CheckoutServiceOption {
	return func(s *CheckoutService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithRedirectURLs sets the default post-payment redirect targets and the
// origins a client-supplied override may point at.
func WithRedirectURLs(successURL, cancelURL string, allowedOrigins []string) CheckoutServiceOption {
	return func(s *CheckoutService) {
		s.successURL = successURL
		s.cancelURL = cancelURL
		for _, origin := range allowedOrigins {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				s.allowedOrigins[origin] = struct{}{}
			}
		}
	}
}

type CartLine struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type HoldInput struct {
	OwnerKey string
	Lines    []CartLine
	TTL      time.Duration
}

type HeldItem struct {
	VariantID    string `json:"variantId"`
	QuantityHeld int    `json:"quantityHeld"`
}

type HoldResult struct {
	ExpiresAt time.Time
	TTL       time.Duration
	Items     []HeldItem
}

// Hold reserves every cart line or none of them. Availability per line is
// computed with the caller's own existing hold excluded, so re-holding the
// same cart never self-blocks; all lines share a single expiry.
func (s *CheckoutService) Hold(ctx context.Context, in HoldInput) (HoldResult, error) {
	if err := validateCart(in.Lines); err != nil {
		return HoldResult{}, err
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.holdTTL
	}
	if ttl > maxHoldTTL {
		ttl = maxHoldTTL
	}

	now := s.clock.Now()
	expiresAt := now.Add(ttl)
	lines := lockOrdered(in.Lines)
	var result HoldResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var shortages []domain.StockShortage

		for _, line := range lines {
			variant, err := s.repo.GetVariantForUpdate(txCtx, line.VariantID)
			if err != nil {
				return err
			}
			if !variant.IsActive {
				return domain.ErrVariantInactive
			}

			existing, err := s.repo.GetReservation(txCtx, line.VariantID, in.OwnerKey)
			if err != nil {
				return err
			}
			current := 0
			if existing != nil {
				current = existing.Quantity
			}

			othersReserved, err := s.repo.SumActiveExcluding(txCtx, line.VariantID, in.OwnerKey, now)
			if err != nil {
				return err
			}

			needed := line.Quantity - current
			if needed < 0 {
				needed = 0
			}
			available := variant.Stock - othersReserved
			if available < 0 {
				available = 0
			}
			if available < needed {
				shortages = append(shortages, domain.StockShortage{
					VariantID: line.VariantID,
					Available: available,
					Requested: needed,
				})
			}
		}

		// All-or-nothing: any shortage aborts before the first upsert.
		if len(shortages) > 0 {
			return &domain.OutOfStockError{Shortages: shortages}
		}

		items := make([]HeldItem, 0, len(lines))
		for _, line := range lines {
			res := domain.Reservation{
				VariantID: line.VariantID,
				OwnerKey:  in.OwnerKey,
				Quantity:  line.Quantity,
				ExpiresAt: expiresAt,
				CreatedAt: now,
			}
			if err := s.repo.UpsertReservation(txCtx, res); err != nil {
				return err
			}
			items = append(items, HeldItem{VariantID: line.VariantID, QuantityHeld: line.Quantity})
		}

		result = HoldResult{ExpiresAt: expiresAt, TTL: ttl, Items: items}
		return nil
	})
	if err != nil {
		return HoldResult{}, err
	}
	return result, nil
}

type CreateSessionInput struct {
	OwnerKey      string
	CartID        string
	UserID        string
	Lines         []CartLine
	ShippingCode  string
	CustomerEmail string
	PromoCode     string
	SuccessURL    string
	CancelURL     string
}

type SessionResult struct {
	SessionID string
	URL       string
}

// CreateSession re-validates that the caller's hold covers the cart, prices
// it from the catalog and opens a gateway session carrying the cart and the
// owner identity in opaque metadata. No ledger state changes here.
func (s *CheckoutService) CreateSession(ctx context.Context, in CreateSessionInput) (SessionResult, error) {
	if err := validateCart(in.Lines); err != nil {
		return SessionResult{}, err
	}
	method, ok := domain.FindShippingMethod(in.ShippingCode)
	if !ok {
		return SessionResult{}, domain.ErrInvalidShippingMethod
	}

	successURL, err := s.resolveRedirectURL(in.SuccessURL, s.successURL)
	if err != nil {
		return SessionResult{}, err
	}
	cancelURL, err := s.resolveRedirectURL(in.CancelURL, s.cancelURL)
	if err != nil {
		return SessionResult{}, err
	}

	now := s.clock.Now()
	variantIDs := cartVariantIDs(in.Lines)

	held, err := s.repo.ActiveQuantitiesForOwner(ctx, in.OwnerKey, variantIDs, now)
	if err != nil {
		return SessionResult{}, err
	}
	var shortfalls []domain.HoldShortfall
	for _, line := range in.Lines {
		if held[line.VariantID] < line.Quantity {
			shortfalls = append(shortfalls, domain.HoldShortfall{
				VariantID: line.VariantID,
				Requested: line.Quantity,
				Held:      held[line.VariantID],
			})
		}
	}
	// The gateway is never contacted when the hold is short.
	if len(shortfalls) > 0 {
		return SessionResult{}, &domain.HoldCoverageError{Shortfalls: shortfalls}
	}

	variants, err := s.repo.ListActiveVariants(ctx, variantIDs)
	if err != nil {
		return SessionResult{}, err
	}
	if len(variants) != len(variantIDs) {
		return SessionResult{}, domain.ErrVariantNotFound
	}
	byID := make(map[string]domain.Variant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}

	subtotal := 0
	lineItems := make([]gateway.LineItem, 0, len(in.Lines)+1)
	for _, line := range in.Lines {
		variant := byID[line.VariantID]
		subtotal += variant.PriceCents * line.Quantity
		lineItems = append(lineItems, gateway.LineItem{
			Name:            gatewayLineName(variant),
			UnitAmountCents: variant.PriceCents,
			Quantity:        line.Quantity,
		})
	}
	lineItems = append(lineItems, gateway.LineItem{
		Name:            "Livraison - " + method.Label,
		UnitAmountCents: method.PriceCents,
		Quantity:        1,
	})

	discount, appliedPromo, err := s.applyPromoCode(ctx, in.PromoCode, subtotal, now)
	if err != nil {
		return SessionResult{}, err
	}

	itemsJSON, err := json.Marshal(in.Lines)
	if err != nil {
		return SessionResult{}, fmt.Errorf("encode cart metadata: %w", err)
	}
	metadata := map[string]string{
		gateway.MetaItems:              string(itemsJSON),
		gateway.MetaOwnerKey:           in.OwnerKey,
		gateway.MetaShippingMethodCode: method.Code,
		gateway.MetaShippingPriceCents: strconv.Itoa(method.PriceCents),
		gateway.MetaShippingCarrier:    method.Carrier,
	}
	if in.CartID != "" {
		metadata[gateway.MetaCartID] = in.CartID
	}
	if in.UserID != "" {
		metadata[gateway.MetaUserID] = in.UserID
	}
	if in.CustomerEmail != "" {
		metadata[gateway.MetaCustomerEmail] = in.CustomerEmail
	}
	if appliedPromo != "" {
		metadata[gateway.MetaPromoCode] = appliedPromo
		metadata[gateway.MetaPromoDiscount] = strconv.Itoa(discount)
	}

	session, err := s.gateway.CreateSession(ctx, gateway.CreateSessionParams{
		LineItems:     lineItems,
		Currency:      "eur",
		CustomerEmail: in.CustomerEmail,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		DiscountCents: discount,
		Metadata:      metadata,
	})
	if err != nil {
		return SessionResult{}, fmt.Errorf("create gateway session: %w", err)
	}

	s.logger.Info("checkout session created",
		slog.String("session_id", session.ID),
		slog.String("owner_key", in.OwnerKey),
		slog.Int("subtotal_cents", subtotal),
	)
	return SessionResult{SessionID: session.ID, URL: session.URL}, nil
}

// applyPromoCode resolves and, when applicable, consumes one use of a promo
// code. Consumption is conditional on the usage limit inside the UPDATE, so
// concurrent checkouts cannot overrun it; losing that race drops the
// discount rather than failing the checkout.
func (s *CheckoutService) applyPromoCode(ctx context.Context, code string, subtotal int, now time.Time) (int, string, error) {
	if code == "" {
		return 0, "", nil
	}
	promo, err := s.repo.GetPromoCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return 0, "", err
	}
	if promo == nil {
		return 0, "", nil
	}
	discount := promo.DiscountFor(subtotal, now)
	if discount <= 0 {
		return 0, "", nil
	}
	consumed, err := s.repo.ConsumePromoCode(ctx, promo.Code)
	if err != nil {
		return 0, "", err
	}
	if !consumed {
		return 0, "", nil
	}
	return discount, promo.Code, nil
}

// Finalize converts a paid gateway session into a permanent order: verify
// the reservation backstop, conditionally decrement stock at current prices,
// snapshot the order, and consume the reservation rows — all in one
// transaction. Safe under duplicate delivery: the first successful run
// removes the reservations, so a second run fails on the backstop.
func (s *CheckoutService) Finalize(ctx context.Context, session gateway.Session) (domain.Order, error) {
	lines := parseMetadataItems(session.Metadata)
	if len(lines) == 0 {
		return domain.Order{}, domain.ErrNoCartItems
	}
	lines = lockOrdered(lines)

	ownerKey := session.Metadata[gateway.MetaOwnerKey]
	userID := strings.TrimSpace(session.Metadata[gateway.MetaUserID])
	if ownerKey == "" && userID != "" {
		ownerKey = domain.UserOwnerKey(userID)
	}

	shippingCents := 0
	if raw := session.Metadata[gateway.MetaShippingPriceCents]; raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			shippingCents = parsed
		}
	}
	currency := strings.ToUpper(session.Currency)
	if currency == "" {
		currency = "EUR"
	}

	now := s.clock.Now()
	variantIDs := cartVariantIDs(lines)
	var order domain.Order

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		// Reservation backstop: after the first successful run the rows are
		// gone, so a duplicate delivery fails here instead of reprocessing.
		if ownerKey != "" {
			held, err := s.repo.ActiveQuantitiesForOwner(txCtx, ownerKey, variantIDs, now)
			if err != nil {
				return err
			}
			for _, line := range lines {
				if held[line.VariantID] < line.Quantity {
					return fmt.Errorf("%w: variant %s held %d, need %d",
						domain.ErrInsufficientReservation, line.VariantID, held[line.VariantID], line.Quantity)
				}
			}
		}

		orderID := uuid.NewString()
		total := 0
		items := make([]domain.OrderItem, 0, len(lines))

		for _, line := range lines {
			// Re-read the variant: prices cached at hold time are never
			// trusted at finalization.
			variant, err := s.repo.GetVariantForUpdate(txCtx, line.VariantID)
			if err != nil {
				return err
			}
			if err := s.repo.DecrementStock(txCtx, line.VariantID, line.Quantity); err != nil {
				return fmt.Errorf("variant %s: %w", line.VariantID, err)
			}

			lineTotal := variant.PriceCents * line.Quantity
			total += lineTotal
			items = append(items, domain.OrderItem{
				ID:             uuid.NewString(),
				OrderID:        orderID,
				ProductID:      variant.ProductID,
				VariantID:      variant.ID,
				ProductName:    variant.ProductName,
				VariantName:    variant.Name,
				Quantity:       line.Quantity,
				UnitPriceCents: variant.PriceCents,
				TotalCents:     lineTotal,
			})
		}

		total += shippingCents
		order = domain.Order{
			ID:                 orderID,
			OrderNumber:        s.newOrderNumber(now),
			UserID:             userID,
			Status:             domain.OrderStatusConfirmed,
			TotalCents:         total,
			Currency:           currency,
			PaymentSessionID:   session.ID,
			ShippingMethodCode: session.Metadata[gateway.MetaShippingMethodCode],
			ShippingCostCents:  shippingCents,
			CreatedAt:          now,
		}
		if err := s.repo.CreateOrder(txCtx, order, items); err != nil {
			return err
		}

		if ownerKey != "" {
			for _, line := range lines {
				if err := s.repo.DeleteReservation(txCtx, line.VariantID, ownerKey); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.Info("order finalized",
		slog.String("order_number", order.OrderNumber),
		slog.String("session_id", session.ID),
		slog.Int("total_cents", order.TotalCents),
	)
	return order, nil
}

type VerifyResult struct {
	OrderID        string
	OrderNumber    string
	AlreadyCreated bool
}

// VerifySession is the client-polling finalize path. It short-circuits on an
// order that already exists for the session, which is how a verify racing a
// webhook stays idempotent from the caller's point of view.
func (s *CheckoutService) VerifySession(ctx context.Context, sessionID, authUserID string) (VerifyResult, error) {
	if !strings.HasPrefix(sessionID, "cs_") {
		return VerifyResult{}, domain.ErrInvalidSessionID
	}

	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("get gateway session: %w", err)
	}
	if !session.Paid() {
		return VerifyResult{}, domain.ErrPaymentNotCompleted
	}

	if existing, err := s.repo.GetOrderByPaymentSessionID(ctx, sessionID); err != nil {
		return VerifyResult{}, err
	} else if existing != nil {
		return VerifyResult{
			OrderID:        existing.ID,
			OrderNumber:    existing.OrderNumber,
			AlreadyCreated: true,
		}, nil
	}

	// An authenticated caller can stand in for a missing userId in metadata.
	if session.Metadata[gateway.MetaUserID] == "" && authUserID != "" {
		if session.Metadata == nil {
			session.Metadata = map[string]string{}
		}
		session.Metadata[gateway.MetaUserID] = authUserID
	}

	order, err := s.Finalize(ctx, session)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{OrderID: order.ID, OrderNumber: order.OrderNumber}, nil
}

func (s *CheckoutService) resolveRedirectURL(override, fallback string) (string, error) {
	if override == "" {
		return fallback, nil
	}
	// The session id placeholder is not a valid URL character sequence;
	// substitute before parsing.
	probe := strings.ReplaceAll(override, "{CHECKOUT_SESSION_ID}", "session-id")
	parsed, err := url.Parse(probe)
	if err != nil || !parsed.IsAbs() {
		return "", domain.ErrInvalidRedirectURL
	}
	if _, ok := s.allowedOrigins[parsed.Scheme+"://"+parsed.Host]; !ok {
		return "", domain.ErrInvalidRedirectURL
	}
	return override, nil
}

func (s *CheckoutService) newOrderNumber(now time.Time) string {
	return fmt.Sprintf("BLVD-%s-%04d", now.Format("20060102"), 1000+rand.Intn(9000))
}

func validateCart(lines []CartLine) error {
	if len(lines) == 0 {
		return domain.ErrEmptyCart
	}
	if len(lines) > MaxCartLines {
		return domain.ErrQuantityTooLarge
	}
	seen := make(map[string]struct{}, len(lines))
	total := 0
	for _, line := range lines {
		if line.VariantID == "" {
			return domain.ErrInvalidID
		}
		if line.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
		if line.Quantity > MaxQuantityPerLine {
			return domain.ErrQuantityTooLarge
		}
		if _, dup := seen[line.VariantID]; dup {
			return domain.ErrDuplicateItems
		}
		seen[line.VariantID] = struct{}{}
		total += line.Quantity
	}
	if total > MaxTotalQuantity {
		return domain.ErrQuantityTooLarge
	}
	return nil
}

// lockOrdered copies the lines sorted by variant id. Hold and Finalize lock
// variant rows in this order, so two overlapping carts cannot deadlock on
// each other's locks.
func lockOrdered(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool { return out[i].VariantID < out[j].VariantID })
	return out
}

func cartVariantIDs(lines []CartLine) []string {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.VariantID)
	}
	return ids
}

func gatewayLineName(v domain.Variant) string {
	name := strings.TrimSpace(v.ProductName)
	if variantName := strings.TrimSpace(v.Name); variantName != "" && !strings.EqualFold(variantName, "standard") {
		name += " - " + variantName
	}
	return name
}

func parseMetadataItems(metadata map[string]string) []CartLine {
	raw := metadata[gateway.MetaItems]
	if raw == "" {
		return nil
	}
	var parsed []CartLine
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}
	lines := parsed[:0]
	for _, line := range parsed {
		if line.VariantID != "" && line.Quantity > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}
