package http

import (
	"log/slog"
	"net/http"

	"github.com/BoulevardTcg/shop-api/internal/cache"
	"github.com/BoulevardTcg/shop-api/internal/clock"
	"github.com/go-chi/chi/v5"
)

// CheckoutAPI groups the checkout service methods the router mounts.
type CheckoutAPI interface {
	StockHolder
	SessionCreator
	SessionVerifier
	SessionFinalizer
}

// ReservationAPI groups the reservation service methods the router mounts.
type ReservationAPI interface {
	ReservationManager
	StockReader
}

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Checkout       CheckoutAPI
	Reservations   ReservationAPI
	Idempotency    cache.SessionCache
	Auth           Authenticator
	Clock          clock.Clock
	Logger         *slog.Logger
	WebhookSecret  string
	AllowedOrigins []string
}

// NewRouter builds the public HTTP surface.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", HealthHandler)

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/hold", HandleHold(cfg.Checkout, cfg.Auth, logger))
		r.Post("/create-session", HandleCreateSession(cfg.Checkout, cfg.Idempotency, cfg.Auth, logger))
		r.Get("/verify-session/{sessionID}", HandleVerifySession(cfg.Checkout, cfg.Auth, logger))
		r.Post("/webhook", HandleWebhook(cfg.Checkout, cfg.WebhookSecret, cfg.Clock, logger))
	})

	r.Route("/reservations", func(r chi.Router) {
		r.Post("/reserve", HandleReserve(cfg.Reservations, cfg.Auth, logger))
		r.Post("/release", HandleRelease(cfg.Reservations, cfg.Auth, logger))
		r.Post("/release-all", HandleReleaseAll(cfg.Reservations, cfg.Auth, logger))
		r.Get("/my", HandleMyReservations(cfg.Reservations, cfg.Auth, logger))
		r.Get("/availability/{variantID}", HandleAvailability(cfg.Reservations, logger))
	})

	r.Post("/products/variants/stock", HandleVariantStock(cfg.Reservations, cfg.Auth, logger))

	return CORS(cfg.AllowedOrigins, RequestLogger(r, logger))
}
