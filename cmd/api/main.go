package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kmdeleon/tahanan-backend/api/routes"
	"github.com/kmdeleon/tahanan-backend/internal/cart"
	checkoutsvc "github.com/kmdeleon/tahanan-backend/internal/checkout"
	"github.com/kmdeleon/tahanan-backend/internal/notifications"
	"github.com/kmdeleon/tahanan-backend/internal/orders"
	"github.com/kmdeleon/tahanan-backend/internal/products"
	"github.com/kmdeleon/tahanan-backend/internal/reconcile"
	"github.com/kmdeleon/tahanan-backend/pkg/config"
	"github.com/kmdeleon/tahanan-backend/pkg/db"
	"github.com/kmdeleon/tahanan-backend/pkg/instance"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
	"github.com/kmdeleon/tahanan-backend/pkg/metrics"
	"github.com/kmdeleon/tahanan-backend/pkg/migrate"
	"github.com/kmdeleon/tahanan-backend/pkg/paymongo"
	"github.com/kmdeleon/tahanan-backend/pkg/paypal"
	"github.com/kmdeleon/tahanan-backend/pkg/pubsub"
	"github.com/kmdeleon/tahanan-backend/pkg/redis"
)

const webhookGuardTTL = 7 * 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paymongoClient, err := paymongo.NewClient(cfg.PayMongo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paymongo client", err)
		os.Exit(1)
	}

	var paypalClient *paypal.Client
	if cfg.PayPal.ClientID != "" && cfg.PayPal.ClientSecret != "" {
		paypalClient, err = paypal.NewClient(cfg.PayPal, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create paypal client", err)
			os.Exit(1)
		}
	}

	var pubsubClient *pubsub.Client
	if cfg.Notifications.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.Notifications, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create pubsub client", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	cartRepo := cart.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	sessionsRepo := checkoutsvc.NewSessionRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	notifier, err := notifications.NewService(notificationsRepo, publisherOrNil(pubsubClient), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		dbClient,
		cartRepo,
		ordersRepo,
		productsRepo,
		sessionsRepo,
		paymongoClient,
		paypalOrNil(paypalClient),
		cfg.Checkout,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	webhookGuard, err := reconcile.NewIdempotencyGuard(redisClient, webhookGuardTTL, "paymongo-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	reconcileService, err := reconcile.NewService(
		dbClient,
		cartRepo,
		ordersRepo,
		sessionsRepo,
		notifier,
		webhookGuard,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			paymongoClient,
			checkoutService,
			ordersService,
			reconcileService,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// paypalOrNil keeps a typed-nil client out of the checkout service's
// provider interface.
func paypalOrNil(client *paypal.Client) interface {
	CreateOrder(ctx context.Context, params paypal.OrderParams) (*paypal.Order, error)
} {
	if client == nil {
		return nil
	}
	return client
}

// publisherOrNil does the same for the optional pubsub publisher.
func publisherOrNil(client *pubsub.Client) notifications.Publisher {
	if client == nil {
		return nil
	}
	return client
}
