package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/haulmart-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/haulmart-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/haulmart-backend/api/controllers/payments"
	payoutcontrollers "github.com/angelmondragon/haulmart-backend/api/controllers/payouts"
	webhookcontrollers "github.com/angelmondragon/haulmart-backend/api/controllers/webhooks"
	"github.com/angelmondragon/haulmart-backend/api/middleware"
	"github.com/angelmondragon/haulmart-backend/internal/orders"
	"github.com/angelmondragon/haulmart-backend/internal/payments"
	"github.com/angelmondragon/haulmart-backend/internal/payouts"
	"github.com/angelmondragon/haulmart-backend/pkg/config"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
	"github.com/angelmondragon/haulmart-backend/pkg/redis"
)

// Store is the Redis surface the HTTP layer needs: idempotent replay and
// rate-limit counters.
type Store interface {
	redis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	store Store,
	ordersSvc orders.Service,
	paymentsSvc payments.Service,
	payoutsSvc payouts.Service,
	webhookSvc webhookcontrollers.GatewayWebhookService,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	moneyPolicy := middleware.NewRateLimitPolicy(
		"money",
		cfg.RateLimit.Window,
		cfg.RateLimit.IPLimit,
		cfg.RateLimit.UserLimit,
	)
	limited := middleware.RateLimit(moneyPolicy, store, logg)

	readiness := map[string]controllers.Pinger{"db": dbP}
	if store != nil {
		if p, ok := store.(controllers.Pinger); ok {
			readiness["redis"] = p
		}
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/gateway", webhookcontrollers.GatewayWebhook(webhookSvc, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.Idempotency(store, logg),
		)

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.ActorRoleCustomer)).
				Post("/", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleVendor, enums.ActorRoleDriver, enums.ActorRoleAdmin)).
				Post("/{orderId}/status", ordercontrollers.UpdateStatus(ordersSvc, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleCustomer, enums.ActorRoleVendor, enums.ActorRoleAdmin)).
				Post("/{orderId}/cancel", ordercontrollers.Cancel(ordersSvc, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleCustomer, enums.ActorRoleAdmin), limited).
				Post("/{orderId}/refunds", paymentcontrollers.RequestRefund(paymentsSvc, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Use(limited)
			r.With(middleware.RequireRole(logg, enums.ActorRoleCustomer)).
				Post("/initialize", paymentcontrollers.Initialize(paymentsSvc, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleCustomer, enums.ActorRoleAdmin)).
				Post("/verify", paymentcontrollers.Verify(paymentsSvc, logg))
		})

		r.With(middleware.RequireRole(logg, enums.ActorRoleVendor, enums.ActorRoleDriver), limited).
			Post("/payouts", payoutcontrollers.Request(payoutsSvc, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireRole(logg, enums.ActorRoleAdmin),
			middleware.Idempotency(store, logg),
		)
		r.Post("/payouts/{payoutId}/process", controllers.AdminProcessPayout(payoutsSvc, logg))
		r.Post("/refunds/{refundId}/process", controllers.AdminProcessRefund(paymentsSvc, logg))
	})

	return r
}
