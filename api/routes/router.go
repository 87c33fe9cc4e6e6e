package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmdeleon/tahanan-backend/api/controllers"
	ordercontrollers "github.com/kmdeleon/tahanan-backend/api/controllers/orders"
	webhookcontrollers "github.com/kmdeleon/tahanan-backend/api/controllers/webhooks"
	"github.com/kmdeleon/tahanan-backend/api/middleware"
	checkoutsvc "github.com/kmdeleon/tahanan-backend/internal/checkout"
	"github.com/kmdeleon/tahanan-backend/internal/orders"
	"github.com/kmdeleon/tahanan-backend/internal/reconcile"
	"github.com/kmdeleon/tahanan-backend/pkg/config"
	"github.com/kmdeleon/tahanan-backend/pkg/db"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
	"github.com/kmdeleon/tahanan-backend/pkg/paymongo"
	"github.com/kmdeleon/tahanan-backend/pkg/redis"
)

const roleStaff = "staff"

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	paymongoClient *paymongo.Client,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	reconcileService reconcile.Service,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	var idempotencyStore redis.IdempotencyStore
	var redisPinger redis.Pinger
	if redisClient != nil {
		idempotencyStore = redisClient
		redisPinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paymongo", webhookcontrollers.PayMongoWebhook(reconcileService, paymongoClient, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/session", controllers.CreateCheckoutSession(checkoutService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(ordersService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(roleStaff, logg))
			r.Post("/orders/{orderId}/status", controllers.AdminOrderStatus(ordersService, logg))
		})
	})

	return r
}
