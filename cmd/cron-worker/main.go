package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/haulmart-backend/internal/audit"
	"github.com/angelmondragon/haulmart-backend/internal/cron"
	"github.com/angelmondragon/haulmart-backend/internal/ledger"
	"github.com/angelmondragon/haulmart-backend/internal/payments"
	"github.com/angelmondragon/haulmart-backend/pkg/config"
	"github.com/angelmondragon/haulmart-backend/pkg/db"
	"github.com/angelmondragon/haulmart-backend/pkg/gateway"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
	"github.com/angelmondragon/haulmart-backend/pkg/metrics"
	"github.com/angelmondragon/haulmart-backend/pkg/migrate"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox"
	"github.com/angelmondragon/haulmart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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
			logg.Error(context.Background(), "error closing cron worker dependencies", err)
		}
	}()

	service, err := buildService(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire reconcile jobs", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "cron-worker",
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Service, error) {
	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	gatewayClient, err := gateway.NewClient(
		cfg.Gateway.SecretKey,
		gateway.WithBaseURL(cfg.Gateway.BaseURL),
		gateway.WithTimeout(cfg.Gateway.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("gateway client: %w", err)
	}
	auditSvc, err := audit.NewService(audit.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	outboxRepo := outbox.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		Repository:  paymentsRepo,
		Tx:          dbClient,
		Gateway:     gatewayClient,
		Earnings:    ledger.NewEarnings(),
		Audit:       auditSvc,
		Outbox:      outbox.NewService(outboxRepo, logg),
		Logger:      logg,
		Metrics:     settlementMetrics,
		RedirectURL: cfg.Gateway.RedirectURL,
	})
	if err != nil {
		return nil, err
	}

	paymentJob, err := cron.NewPaymentReconcileJob(cron.PaymentReconcileJobParams{
		Logger:     logg,
		Repository: paymentsRepo,
		Payments:   paymentsSvc,
		Metrics:    jobMetrics,
		StaleAfter: cfg.Reconcile.PaymentStaleAfter,
		MaxAge:     cfg.Reconcile.PaymentMaxAge,
		BatchSize:  cfg.Reconcile.PaymentBatchSize,
		Interval:   cfg.Reconcile.PaymentInterval,
	})
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		DLQ:        outbox.NewDLQRepository(dbClient.DB()),
		Metrics:    jobMetrics,
		Retention:  cfg.Reconcile.OutboxRetentionDays,
		Interval:   cfg.Reconcile.OutboxRetentionPeriod,
	})
	if err != nil {
		return nil, err
	}

	registry, err := cron.NewRegistry(paymentJob, retentionJob)
	if err != nil {
		return nil, err
	}
	lock, err := cron.NewRedisLock(redisClient, lockPrefix(cfg.App.Env), cfg.Reconcile.LockTTL)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  jobMetrics,
		Tick:     cfg.Reconcile.Tick,
	})
}

func lockPrefix(env string) string {
	if env == "" {
		env = "local"
	}
	return redis.Key("reconcile", "lock", env)
}
