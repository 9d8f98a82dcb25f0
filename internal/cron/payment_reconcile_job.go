package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/haulmart-backend/internal/payments"
	"github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
	"github.com/angelmondragon/haulmart-backend/pkg/metrics"
)

const (
	paymentReconcileName     = "payment-reconcile"
	defaultPaymentStaleAfter = 15 * time.Minute
	defaultPaymentMaxAge     = 72 * time.Hour
	defaultPaymentBatch      = 100
	defaultPaymentInterval   = 10 * time.Minute
)

type stalePaymentLister interface {
	ListStalePayments(ctx context.Context, createdAfter, createdBefore time.Time, limit int) ([]models.Transaction, error)
}

type paymentVerifier interface {
	VerifyPayment(ctx context.Context, input payments.VerifyPaymentInput) (*models.Transaction, error)
}

type PaymentReconcileJobParams struct {
	Logger     *logger.Logger
	Repository stalePaymentLister
	Payments   paymentVerifier
	Metrics    *metrics.JobMetrics
	// StaleAfter is how long a payment may stay PENDING before the gateway is
	// asked directly. Payments older than MaxAge are left alone.
	StaleAfter time.Duration
	MaxAge     time.Duration
	BatchSize  int
	Interval   time.Duration
}

// NewPaymentReconcileJob re-verifies PENDING payments whose webhook never
// arrived.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	job := &paymentReconcileJob{
		logg:       params.Logger,
		repo:       params.Repository,
		payments:   params.Payments,
		metrics:    params.Metrics,
		staleAfter: params.StaleAfter,
		maxAge:     params.MaxAge,
		batch:      params.BatchSize,
		interval:   params.Interval,
		now:        time.Now,
	}
	if job.staleAfter <= 0 {
		job.staleAfter = defaultPaymentStaleAfter
	}
	if job.maxAge <= job.staleAfter {
		job.maxAge = defaultPaymentMaxAge
	}
	if job.batch <= 0 {
		job.batch = defaultPaymentBatch
	}
	if job.interval <= 0 {
		job.interval = defaultPaymentInterval
	}
	return job, nil
}

type paymentReconcileJob struct {
	logg       *logger.Logger
	repo       stalePaymentLister
	payments   paymentVerifier
	metrics    *metrics.JobMetrics
	staleAfter time.Duration
	maxAge     time.Duration
	batch      int
	interval   time.Duration
	now        func() time.Time
}

func (j *paymentReconcileJob) Name() string            { return paymentReconcileName }
func (j *paymentReconcileJob) Interval() time.Duration { return j.interval }

// Run verifies one batch. A failure on one reference does not stop the rest;
// the failures are returned together.
func (j *paymentReconcileJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	txns, err := j.repo.ListStalePayments(ctx, now.Add(-j.maxAge), now.Add(-j.staleAfter), j.batch)
	if err != nil {
		return fmt.Errorf("list stale payments: %w", err)
	}

	var errs error
	outcomes := map[string]int{}
	for _, txn := range txns {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		verified, err := j.payments.VerifyPayment(ctx, payments.VerifyPaymentInput{
			Reference: txn.Reference,
			Actor:     auth.System(),
		})
		if err != nil {
			// Final answers (cancelled order, amount mismatch) will not change
			// on the next pass; only transient failures fail the run.
			if !pkgerrors.IsRetryable(err) {
				outcomes["skipped"]++
				j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
					"reference": txn.Reference,
					"code":      pkgerrors.CodeOf(err),
				}), "payment left pending")
				continue
			}
			outcomes["error"]++
			errs = multierr.Append(errs, fmt.Errorf("verify %s: %w", txn.Reference, err))
			continue
		}
		switch verified.Status {
		case enums.TransactionStatusSuccessful:
			outcomes["successful"]++
		case enums.TransactionStatusFailed:
			outcomes["failed"]++
		default:
			outcomes["pending"]++
		}
	}
	for outcome, n := range outcomes {
		j.metrics.AddItems(paymentReconcileName, outcome, n)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(txns),
		"successful": outcomes["successful"],
		"failed":     outcomes["failed"],
		"pending":    outcomes["pending"],
		"skipped":    outcomes["skipped"],
		"errors":     outcomes["error"],
	})
	j.logg.Info(logCtx, "payment reconciliation pass complete")
	return errs
}
