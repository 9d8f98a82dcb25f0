package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/internal/audit"
	"github.com/angelmondragon/haulmart-backend/internal/ledger"
	"github.com/angelmondragon/haulmart-backend/internal/orders"
	"github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/db"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/gateway"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
	"github.com/angelmondragon/haulmart-backend/pkg/metrics"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Gateway is the subset of the payment provider used for charges and refunds.
type Gateway interface {
	InitializeCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error)
	VerifyByReference(ctx context.Context, reference string) (*gateway.Verification, error)
	Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error)
}

// Service reconciles customer payments and refunds with the gateway.
type Service interface {
	InitializePayment(ctx context.Context, input InitializePaymentInput) (*InitializeResult, error)
	VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*models.Transaction, error)
	RequestRefund(ctx context.Context, input RequestRefundInput) (*models.Refund, error)
	ProcessRefund(ctx context.Context, input ProcessRefundInput) (*models.Refund, error)
}

// ServiceParams wires the payments service.
type ServiceParams struct {
	Repository  Repository
	Tx          txRunner
	Gateway     Gateway
	Earnings    ledger.Earnings
	Audit       audit.Service
	Outbox      outboxPublisher
	Logger      *logger.Logger
	Metrics     *metrics.SettlementMetrics
	RedirectURL string
	Clock       func() time.Time
}

type service struct {
	repo        Repository
	tx          txRunner
	gateway     Gateway
	earnings    ledger.Earnings
	audit       audit.Service
	outbox      outboxPublisher
	logg        *logger.Logger
	metrics     *metrics.SettlementMetrics
	redirectURL string
	now         func() time.Time
}

// NewService validates dependencies and builds the payments service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Earnings == nil {
		return nil, fmt.Errorf("earnings ledger required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:        params.Repository,
		tx:          params.Tx,
		gateway:     params.Gateway,
		earnings:    params.Earnings,
		audit:       params.Audit,
		outbox:      params.Outbox,
		logg:        params.Logger,
		metrics:     params.Metrics,
		redirectURL: strings.TrimSpace(params.RedirectURL),
		now:         clock,
	}, nil
}

// InitializePayment creates (or reuses) a PENDING payment transaction and
// opens the hosted checkout. The gateway call runs after the DB unit commits.
func (s *service) InitializePayment(ctx context.Context, input InitializePaymentInput) (*InitializeResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AmountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	if input.Method != "" && !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	reference := strings.TrimSpace(input.Reference)

	var (
		txn      *models.Transaction
		order    *models.Order
		customer *models.Customer
		reused   bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}
		if !ownsOrder(input.Actor, order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
		}
		if order.IsCancelled || order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
		}
		if order.PaymentStatus != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}
		amount := input.AmountCents
		if amount == 0 {
			amount = order.TotalCents
		}
		if amount != order.TotalCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount must equal the order total").
				WithDetails(map[string]any{"order_total_cents": order.TotalCents, "amount_cents": amount})
		}

		customer, err = repo.FindCustomer(ctx, order.CustomerID)
		if err != nil {
			return notFoundOr(err, "customer not found", "load customer")
		}

		if reference != "" {
			existing, err := repo.FindTransactionByReference(ctx, reference)
			switch {
			case err == nil:
				if existing.Type != enums.TransactionTypePayment || existing.OrderID == nil || *existing.OrderID != order.ID {
					return pkgerrors.New(pkgerrors.CodeConflict, "reference already used")
				}
				if existing.Status != enums.TransactionStatusPending {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "payment with this reference is already settled")
				}
				txn = existing
				reused = true
				return nil
			case !isNotFound(err):
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transaction")
			}
		} else {
			reference = newPaymentReference(order.OrderNumber)
		}

		method := input.Method
		if method == "" {
			method = order.PaymentMethod
		}
		if !method.UsesGateway() {
			return pkgerrors.New(pkgerrors.CodeValidation, "cash on delivery orders are not paid online")
		}
		customerID := order.CustomerID
		vendorID := order.VendorID
		txn = &models.Transaction{
			Reference:   reference,
			Type:        enums.TransactionTypePayment,
			AmountCents: amount,
			Currency:    order.Currency,
			Status:      enums.TransactionStatusPending,
			OrderID:     &order.ID,
			CustomerID:  &customerID,
			VendorID:    &vendorID,
			Metadata: types.TransactionMetadata{
				RedirectURL:   s.redirectFor(input.RedirectURL),
				PaymentMethod: string(method),
			},
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "reference already used")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment transaction")
		}
		return repo.SetOrderPaymentStatus(ctx, order.ID, enums.PaymentStatusPending)
	})
	if err != nil {
		return nil, err
	}

	if reused && txn.Metadata.CheckoutURL != "" {
		return &InitializeResult{Transaction: txn, CheckoutURL: txn.Metadata.CheckoutURL, Reused: true}, nil
	}

	started := s.now()
	session, err := s.gateway.InitializeCheckout(ctx, gateway.CheckoutRequest{
		Reference:     txn.Reference,
		AmountCents:   txn.AmountCents,
		Currency:      string(txn.Currency),
		RedirectURL:   txn.Metadata.RedirectURL,
		PaymentMethod: txn.Metadata.PaymentMethod,
		CustomerEmail: customer.Email,
		CustomerName:  customer.FullName,
	})
	s.metrics.ObserveGateway("initialize", started)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "reference", txn.Reference), "gateway checkout failed", err)
		return nil, upstream(err, "open checkout session")
	}

	txn.Metadata.CheckoutURL = session.CheckoutURL
	if err := s.repo.UpdateTransactionMetadata(ctx, txn.ID, txn.Metadata); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store checkout url")
	}
	s.metrics.IncPayment("initialized")
	return &InitializeResult{Transaction: txn, CheckoutURL: session.CheckoutURL, Reused: reused}, nil
}

// VerifyPayment asks the gateway for the charge outcome and applies it once.
// SUCCESSFUL and FAILED are final: redelivered or concurrent verifications
// return the stored transaction without calling the gateway. A charge that
// succeeds after its attempt was marked failed needs a new attempt.
func (s *service) VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*models.Transaction, error) {
	txn, err := s.findPayment(ctx, input)
	if err != nil {
		return nil, err
	}
	if txn.Status != enums.TransactionStatusPending {
		return txn, nil
	}

	logCtx := s.logg.WithField(ctx, "reference", txn.Reference)
	if txn.OrderID != nil {
		logCtx = s.logg.WithOrderID(logCtx, txn.OrderID.String())
	}

	started := s.now()
	verification, err := s.gateway.VerifyByReference(ctx, txn.Reference)
	s.metrics.ObserveGateway("verify", started)
	if err != nil {
		s.logg.Error(logCtx, "gateway verification failed", err)
		return nil, upstream(err, "verify payment")
	}

	switch verification.Status {
	case gateway.StatusSuccessful:
		return s.applySuccess(logCtx, txn, verification)
	case gateway.StatusFailed:
		return s.applyFailure(logCtx, txn, verification)
	default:
		s.logg.Info(s.logg.WithField(logCtx, "gateway_status", verification.RawStatus), "payment still pending at gateway")
		return txn, nil
	}
}

func (s *service) findPayment(ctx context.Context, input VerifyPaymentInput) (*models.Transaction, error) {
	reference := strings.TrimSpace(input.Reference)
	if input.TransactionID == uuid.Nil && reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id or reference required")
	}

	var (
		txn *models.Transaction
		err error
	)
	if input.TransactionID != uuid.Nil {
		txn, err = s.repo.FindTransaction(ctx, input.TransactionID)
	} else {
		txn, err = s.repo.FindTransactionByReference(ctx, reference)
	}
	if err != nil {
		return nil, notFoundOr(err, "transaction not found", "load transaction")
	}
	if txn.Type != enums.TransactionTypePayment || txn.OrderID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}

	if input.Actor.Role == enums.ActorRoleCustomer && (txn.CustomerID == nil || *txn.CustomerID != input.Actor.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transaction does not belong to caller")
	}
	if !canVerify(input.Actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor may not verify payments")
	}
	return txn, nil
}

func (s *service) applySuccess(ctx context.Context, txn *models.Transaction, verification *gateway.Verification) (*models.Transaction, error) {
	now := s.now().UTC()
	metadata := txn.Metadata
	metadata.GatewayStatus = verification.RawStatus
	metadata.VerifiedAt = &now
	if verification.AmountCents != txn.AmountCents {
		gatewayAmount := verification.AmountCents
		metadata.GatewayAmountCents = &gatewayAmount
		metadata.AmountMismatch = true
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"expected_cents": txn.AmountCents,
			"gateway_cents":  verification.AmountCents,
		}), "payment amount differs from gateway amount")
	}

	var (
		applied  bool
		credited bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{"completed_at": now}
		if verification.GatewayReference != "" {
			updates["gateway_reference"] = verification.GatewayReference
		}
		ok, err := repo.CompleteTransaction(ctx, txn.ID,
			[]enums.TransactionStatus{enums.TransactionStatusPending},
			enums.TransactionStatusSuccessful, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete transaction")
		}
		if !ok {
			return nil
		}
		applied = true
		if err := repo.UpdateTransactionMetadata(ctx, txn.ID, metadata); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store verification metadata")
		}

		// Cancellation and status are read under the row lock so a concurrent
		// cancel is either fully visible or waits for this unit.
		order, err := repo.LockOrder(ctx, *txn.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "lock order")
		}
		paid, err := repo.MarkOrderPaid(ctx, order.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}

		amount := txn.AmountCents
		cancelled := order.IsCancelled || order.Status == enums.OrderStatusCancelled
		switch {
		case cancelled:
			if _, err := s.audit.LogAction(ctx, tx, audit.Entry{
				Action:     enums.AuditActionPaymentAfterCancel,
				EntityType: enums.AuditEntityTransaction,
				EntityID:   txn.ID,
				ActorRole:  enums.ActorRoleSystem,
				Details: types.AuditDetails{
					AmountCents: &amount,
					Reference:   txn.Reference,
					OrderID:     order.ID.String(),
					Reason:      "payment received for cancelled order; refund required",
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "audit payment after cancel")
			}
		case paid:
			if err := s.earnings.Credit(ctx, tx, ledger.VendorAccount(order.VendorID), order.VendorEarningCents); err != nil {
				return err
			}
			credited = true
			if order.Status == enums.OrderStatusReceived {
				line := orders.NoteLine(now, enums.OrderStatusReceived, enums.OrderStatusProcessing, auth.System(), "payment confirmed")
				if _, err := repo.AdvanceOrder(ctx, order.ID, enums.OrderStatusReceived, enums.OrderStatusProcessing, line); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "advance paid order")
				}
			}
			if _, err := s.audit.LogAction(ctx, tx, audit.Entry{
				Action:     enums.AuditActionPaymentVerified,
				EntityType: enums.AuditEntityTransaction,
				EntityID:   txn.ID,
				ActorRole:  enums.ActorRoleSystem,
				Details: types.AuditDetails{
					AmountCents: &amount,
					Reference:   txn.Reference,
					OrderID:     order.ID.String(),
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "audit payment")
			}
		default:
			s.logg.Warn(ctx, "order already paid by another transaction; earnings not credited again")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaidEvent{
				OrderID:        order.ID,
				TransactionID:  txn.ID,
				Reference:      txn.Reference,
				VendorID:       order.VendorID,
				AmountCents:    txn.AmountCents,
				VendorCredited: credited,
				PaidAt:         now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if applied {
		s.metrics.IncPayment("successful")
		s.logg.Info(s.logg.WithField(ctx, "vendor_credited", credited), "payment verified")
	}
	return s.reloadTransaction(ctx, txn.ID)
}

func (s *service) applyFailure(ctx context.Context, txn *models.Transaction, verification *gateway.Verification) (*models.Transaction, error) {
	now := s.now().UTC()
	metadata := txn.Metadata
	metadata.GatewayStatus = verification.RawStatus
	metadata.FailureReason = "gateway reported " + strings.ToLower(verification.RawStatus)
	metadata.VerifiedAt = &now

	var applied bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.CompleteTransaction(ctx, txn.ID,
			[]enums.TransactionStatus{enums.TransactionStatusPending},
			enums.TransactionStatusFailed, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fail transaction")
		}
		if !ok {
			return nil
		}
		applied = true
		if err := repo.UpdateTransactionMetadata(ctx, txn.ID, metadata); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store failure metadata")
		}
		if _, err := s.audit.LogAction(ctx, tx, audit.Entry{
			Action:     enums.AuditActionPaymentFailed,
			EntityType: enums.AuditEntityTransaction,
			EntityID:   txn.ID,
			ActorRole:  enums.ActorRoleSystem,
			Details: types.AuditDetails{
				Reference: txn.Reference,
				OrderID:   txn.OrderID.String(),
				Reason:    metadata.FailureReason,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "audit payment failure")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Data: payloads.PaymentFailedEvent{
				OrderID:       *txn.OrderID,
				TransactionID: txn.ID,
				Reference:     txn.Reference,
				Reason:        metadata.FailureReason,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if applied {
		s.metrics.IncPayment("failed")
		s.logg.Warn(ctx, "payment failed at gateway")
	}
	return s.reloadTransaction(ctx, txn.ID)
}

func (s *service) reloadTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	txn, err := s.repo.FindTransaction(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "transaction not found", "reload transaction")
	}
	return txn, nil
}

func (s *service) redirectFor(requested string) string {
	if trimmed := strings.TrimSpace(requested); trimmed != "" {
		return trimmed
	}
	return s.redirectURL
}

// newPaymentReference formats PAY-<order number>-<6 random hex chars>.
func newPaymentReference(orderNumber string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PAY-%s-%s", orderNumber, suffix)
}

func ownsOrder(actor auth.Actor, order *models.Order) bool {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return true
	case enums.ActorRoleCustomer:
		return actor.UserID == order.CustomerID
	}
	return false
}

func canVerify(actor auth.Actor) bool {
	switch actor.Role {
	case enums.ActorRoleAdmin, enums.ActorRoleSystem, enums.ActorRoleCustomer:
		return true
	}
	return false
}

// upstream keeps typed gateway errors and wraps anything else as an upstream
// failure.
func upstream(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, msg)
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if isNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
