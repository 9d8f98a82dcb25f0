package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/haulmart-backend/api/routes"
	"github.com/angelmondragon/haulmart-backend/internal/audit"
	"github.com/angelmondragon/haulmart-backend/internal/catalog"
	"github.com/angelmondragon/haulmart-backend/internal/deliveries"
	"github.com/angelmondragon/haulmart-backend/internal/ledger"
	"github.com/angelmondragon/haulmart-backend/internal/orders"
	"github.com/angelmondragon/haulmart-backend/internal/payments"
	"github.com/angelmondragon/haulmart-backend/internal/payouts"
	"github.com/angelmondragon/haulmart-backend/internal/pricing"
	gatewaywebhook "github.com/angelmondragon/haulmart-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/haulmart-backend/pkg/config"
	"github.com/angelmondragon/haulmart-backend/pkg/db"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/gateway"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
	"github.com/angelmondragon/haulmart-backend/pkg/metrics"
	"github.com/angelmondragon/haulmart-backend/pkg/migrate"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox"
	"github.com/angelmondragon/haulmart-backend/pkg/redis"
)

const webhookGuardScope = "gateway-webhook"

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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		_ = dbClient.Close()
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing api dependencies", err)
		}
	}()

	gatewayClient, err := gateway.NewClient(
		cfg.Gateway.SecretKey,
		gateway.WithBaseURL(cfg.Gateway.BaseURL),
		gateway.WithTimeout(cfg.Gateway.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	services, err := buildServices(cfg, logg, dbClient, redisClient, gatewayClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			services.orders,
			services.payments,
			services.payouts,
			services.webhook,
			promhttp.Handler(),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown", err)
	}
	logg.Info(ctx, "api server shutting down gracefully")
}

type apiServices struct {
	orders   orders.Service
	payments payments.Service
	payouts  payouts.Service
	webhook  *gatewaywebhook.Service
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, gatewayClient *gateway.Client) (*apiServices, error) {
	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	earnings := ledger.NewEarnings()
	currency, err := enums.ParseCurrency(cfg.Pricing.Currency)
	if err != nil {
		return nil, err
	}

	auditSvc, err := audit.NewService(audit.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	deliverySvc, err := deliveries.NewService(deliveries.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	catalogRepo := catalog.NewRepository(dbClient.DB())
	lowStock, err := catalog.NewLowStockChecker(catalog.LowStockParams{
		Repository:       catalogRepo,
		Tx:               dbClient,
		Outbox:           outboxSvc,
		Logger:           logg,
		DefaultThreshold: cfg.Pricing.LowStockAlertThreshold,
		Enabled:          cfg.FeatureFlags.LowStockAlert,
	})
	if err != nil {
		return nil, err
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repository: orders.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Inventory:  ledger.NewInventory(),
		Earnings:   earnings,
		Catalog:    catalogRepo,
		Deliveries: deliverySvc,
		Audit:      auditSvc,
		Outbox:     outboxSvc,
		LowStock:   lowStock,
		Pricing:    pricing.NewCalculator(cfg.Pricing),
		Currency:   currency,
		Logger:     logg,
		Metrics:    settlementMetrics,
	})
	if err != nil {
		return nil, err
	}

	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		Repository:  payments.NewRepository(dbClient.DB()),
		Tx:          dbClient,
		Gateway:     gatewayClient,
		Earnings:    earnings,
		Audit:       auditSvc,
		Outbox:      outboxSvc,
		Logger:      logg,
		Metrics:     settlementMetrics,
		RedirectURL: cfg.Gateway.RedirectURL,
	})
	if err != nil {
		return nil, err
	}

	payoutsSvc, err := payouts.NewService(payouts.ServiceParams{
		Repository:         payouts.NewRepository(dbClient.DB()),
		Tx:                 dbClient,
		Gateway:            gatewayClient,
		Earnings:           earnings,
		Audit:              auditSvc,
		Outbox:             outboxSvc,
		Logger:             logg,
		Metrics:            settlementMetrics,
		MinimumAmountCents: cfg.Payout.MinimumAmountCents,
		Currency:           currency,
	})
	if err != nil {
		return nil, err
	}

	guard, err := gatewaywebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, webhookGuardScope)
	if err != nil {
		return nil, err
	}
	webhookSvc, err := gatewaywebhook.NewService(gatewaywebhook.ServiceParams{
		Secret:   cfg.Gateway.WebhookSecret,
		Guard:    guard,
		Payments: paymentsSvc,
		Payouts:  payoutsSvc,
		Logger:   logg,
		Metrics:  settlementMetrics,
	})
	if err != nil {
		return nil, err
	}

	return &apiServices{
		orders:   ordersSvc,
		payments: paymentsSvc,
		payouts:  payoutsSvc,
		webhook:  webhookSvc,
	}, nil
}
