package gatewaywebhook

import (
	"context"
	"fmt"
	"strconv"

	"github.com/angelmondragon/haulmart-backend/internal/payments"
	"github.com/angelmondragon/haulmart-backend/internal/payouts"
	"github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/gateway"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
	"github.com/angelmondragon/haulmart-backend/pkg/metrics"
)

type paymentVerifier interface {
	VerifyPayment(ctx context.Context, input payments.VerifyPaymentInput) (*models.Transaction, error)
}

type transferHandler interface {
	HandleTransferEvent(ctx context.Context, event payouts.TransferEvent) error
}

type deliveryGuard interface {
	CheckAndMark(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type ServiceParams struct {
	Secret   string
	Guard    deliveryGuard
	Payments paymentVerifier
	Payouts  transferHandler
	Logger   *logger.Logger
	Metrics  *metrics.SettlementMetrics
}

// Service authenticates gateway webhooks and routes them to payments or
// payouts.
type Service struct {
	secret   string
	guard    deliveryGuard
	payments paymentVerifier
	payouts  transferHandler
	logg     *logger.Logger
	metrics  *metrics.SettlementMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Secret == "" {
		return nil, fmt.Errorf("webhook secret required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payouts service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		secret:   params.Secret,
		guard:    params.Guard,
		payments: params.Payments,
		payouts:  params.Payouts,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// HandleWebhook verifies the signature over the raw body, then applies the
// event at most once per (event, reference, status). Once the signature
// passes, only retryable failures are returned; anything the gateway cannot
// fix by resending is logged and acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !gateway.VerifySignature(payload, s.secret, signature) {
		s.metrics.IncWebhook("unknown", "bad_signature")
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	event, err := gateway.ParseEvent(payload)
	if err != nil {
		s.metrics.IncWebhook("unknown", "malformed")
		s.logg.Error(ctx, "acknowledging unparseable webhook", err)
		return nil
	}
	eventType := string(event.Type)
	reference := event.Reference()
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"webhook_event": eventType,
		"reference":     reference,
		"status":        event.Data.Status,
	})

	if event.Type != gateway.EventChargeCompleted && event.Type != gateway.EventTransferCompleted {
		s.metrics.IncWebhook(eventType, "ignored")
		s.logg.Info(logCtx, "ignoring webhook event")
		return nil
	}
	if reference == "" {
		s.metrics.IncWebhook(eventType, "malformed")
		s.logg.Warn(logCtx, "acknowledging webhook without reference")
		return nil
	}

	key := DeliveryKey(eventType, reference, event.Data.Status)
	seen, err := s.guard.CheckAndMark(ctx, key)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency")
	}
	if seen {
		s.metrics.IncWebhook(eventType, "duplicate")
		s.logg.Info(logCtx, "duplicate webhook delivery")
		return nil
	}

	if err := s.dispatch(ctx, event); err != nil {
		if !pkgerrors.IsRetryable(err) {
			s.metrics.IncWebhook(eventType, "rejected")
			s.logg.Error(s.logg.WithField(logCtx, "code", string(pkgerrors.CodeOf(err))), "acknowledging webhook that cannot be applied", err)
			return nil
		}
		if derr := s.guard.Delete(ctx, key); derr != nil {
			s.logg.Error(logCtx, "release webhook idempotency key", derr)
		}
		s.metrics.IncWebhook(eventType, "failed")
		s.logg.Error(logCtx, "webhook processing failed", err)
		return err
	}
	s.metrics.IncWebhook(eventType, "processed")
	s.logg.Info(logCtx, "webhook processed")
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *gateway.Event) error {
	switch event.Type {
	case gateway.EventChargeCompleted:
		// The gateway is asked again; the body only names the reference.
		_, err := s.payments.VerifyPayment(ctx, payments.VerifyPaymentInput{
			Reference: event.Reference(),
			Actor:     auth.System(),
		})
		return err
	case gateway.EventTransferCompleted:
		transfer := payouts.TransferEvent{
			Reference: event.Reference(),
			Status:    event.Outcome(),
			RawStatus: event.Data.Status,
		}
		if event.Data.ID != 0 {
			transfer.GatewayReference = strconv.FormatInt(event.Data.ID, 10)
		}
		return s.payouts.HandleTransferEvent(ctx, transfer)
	default:
		return nil
	}
}
