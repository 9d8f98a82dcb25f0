package payouts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/internal/audit"
	"github.com/angelmondragon/haulmart-backend/internal/ledger"
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

// Transferer sends money to a payee bank account.
type Transferer interface {
	Transfer(ctx context.Context, req gateway.TransferRequest) (*gateway.TransferResult, error)
}

// Service withdraws credited earnings to vendor and driver bank accounts.
type Service interface {
	RequestPayout(ctx context.Context, input RequestPayoutInput) (*models.PayoutRequest, error)
	ProcessPayoutRequest(ctx context.Context, input ProcessPayoutInput) (*models.PayoutRequest, error)
	HandleTransferEvent(ctx context.Context, event TransferEvent) error
}

// ServiceParams wires the payouts service.
type ServiceParams struct {
	Repository         Repository
	Tx                 txRunner
	Gateway            Transferer
	Earnings           ledger.Earnings
	Audit              audit.Service
	Outbox             outboxPublisher
	Logger             *logger.Logger
	Metrics            *metrics.SettlementMetrics
	MinimumAmountCents int64
	Currency           enums.Currency
	Clock              func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	gateway  Transferer
	earnings ledger.Earnings
	audit    audit.Service
	outbox   outboxPublisher
	logg     *logger.Logger
	metrics  *metrics.SettlementMetrics
	minimum  int64
	currency enums.Currency
	now      func() time.Time
}

// NewService validates dependencies and builds the payouts service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("transfer gateway required")
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
	if params.MinimumAmountCents < 0 {
		return nil, fmt.Errorf("minimum payout must not be negative")
	}
	currency := params.Currency
	if currency == "" {
		currency = enums.CurrencyNGN
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:     params.Repository,
		tx:       params.Tx,
		gateway:  params.Gateway,
		earnings: params.Earnings,
		audit:    params.Audit,
		outbox:   params.Outbox,
		logg:     params.Logger,
		metrics:  params.Metrics,
		minimum:  params.MinimumAmountCents,
		currency: currency,
		now:      clock,
	}, nil
}

// RequestPayout records a PENDING withdrawal after checking the locked
// account balance and payout destination.
func (s *service) RequestPayout(ctx context.Context, input RequestPayoutInput) (*models.PayoutRequest, error) {
	if input.PayeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payee id required")
	}
	if !input.PayeeType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payee type must be VENDOR or DRIVER")
	}
	if !canRequest(input.Actor, input.PayeeType, input.PayeeID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller may not withdraw from this account")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}
	if input.AmountCents < s.minimum {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout below minimum amount").
			WithDetails(map[string]any{"minimum_cents": s.minimum})
	}

	acct := ledger.Account{Type: input.PayeeType, ID: input.PayeeID}
	var req *models.PayoutRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		bal, err := s.earnings.Lock(ctx, tx, acct)
		if err != nil {
			return err
		}
		unpaid := bal.UnpaidCents()
		if input.AmountCents > unpaid {
			return pkgerrors.New(pkgerrors.CodeValidation, "payout exceeds unpaid earnings").
				WithDetails(map[string]any{"unpaid_cents": unpaid})
		}
		if bal.BankDetails == nil || !bal.BankDetails.IsComplete() {
			return pkgerrors.New(pkgerrors.CodeValidation, "bank details incomplete")
		}

		pending, err := repo.HasPendingRequest(ctx, input.PayeeID, input.PayeeType)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check pending payouts")
		}
		if pending {
			return pkgerrors.New(pkgerrors.CodeConflict, "a payout request is already pending")
		}

		req = &models.PayoutRequest{
			PayeeID:     input.PayeeID,
			PayeeType:   input.PayeeType,
			AmountCents: input.AmountCents,
			Currency:    s.currency,
			Status:      enums.PayoutStatusPending,
			BankDetails: *bal.BankDetails,
			RequestedEarnings: types.EarningsSnapshot{
				TotalEarningsCents: bal.TotalEarningsCents,
				TotalPaidOutCents:  bal.TotalPaidOutCents,
				UnpaidCents:        unpaid,
				RequestedCents:     input.AmountCents,
				CapturedAt:         s.now().UTC(),
			},
		}
		if err := repo.CreateRequest(ctx, req); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a payout request is already pending")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payout request")
		}

		if err := s.logAudit(ctx, tx, enums.AuditActionPayoutRequested, req, input.Actor, ""); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPayoutRequested, req, "")
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayout("requested")
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payout_request_id": req.ID.String(),
		"payee_type":        req.PayeeType,
		"amount_cents":      req.AmountCents,
	}), "payout requested")
	return req, nil
}

// ProcessPayoutRequest applies an admin decision. Approval commits the
// APPROVED state and a PENDING transfer transaction before calling the
// gateway, then settles or fails in a second unit.
func (s *service) ProcessPayoutRequest(ctx context.Context, input ProcessPayoutInput) (*models.PayoutRequest, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout request id required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be APPROVE or REJECT")
	}
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may process payouts")
	}

	req, err := s.repo.FindRequest(ctx, input.RequestID)
	if err != nil {
		return nil, notFoundOr(err, "payout request not found", "load payout request")
	}
	if req.Status != enums.PayoutStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payout request already processed")
	}

	if input.Action == enums.ReviewActionReject {
		if err := s.reject(ctx, req, input.Actor, input.Notes); err != nil {
			return nil, err
		}
		return s.reload(ctx, req.ID)
	}

	txn, err := s.approve(ctx, req, input.Actor, input.Notes)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payout_request_id": req.ID.String(),
		"reference":         txn.Reference,
	})
	started := s.now()
	result, err := s.gateway.Transfer(ctx, gateway.TransferRequest{
		Reference:   txn.Reference,
		AmountCents: txn.AmountCents,
		Currency:    string(txn.Currency),
		Destination: req.BankDetails,
		Narration:   "Haulmart earnings payout " + txn.Reference,
	})
	s.metrics.ObserveGateway("transfer", started)

	switch {
	case err != nil:
		s.logg.Error(logCtx, "gateway transfer failed", err)
		if ferr := s.fail(logCtx, txn.Reference, err.Error()); ferr != nil {
			return nil, ferr
		}
	case result.Status == gateway.StatusSuccessful:
		if serr := s.settle(logCtx, txn.Reference, result.GatewayReference); serr != nil {
			return nil, serr
		}
	case result.Status == gateway.StatusFailed:
		if ferr := s.fail(logCtx, txn.Reference, "gateway reported "+strings.ToLower(result.RawStatus)); ferr != nil {
			return nil, ferr
		}
	default:
		if result.GatewayReference != "" {
			txn.Metadata.GatewayStatus = result.RawStatus
			if err := s.repo.UpdateTransactionMetadata(ctx, txn.ID, txn.Metadata); err != nil {
				s.logg.Error(logCtx, "store transfer status", err)
			}
		}
		s.logg.Info(logCtx, "transfer pending at gateway; awaiting webhook")
	}
	return s.reload(ctx, req.ID)
}

// HandleTransferEvent settles or fails a payout from a gateway notification.
// Events for transactions already in a final state are ignored.
func (s *service) HandleTransferEvent(ctx context.Context, event TransferEvent) error {
	reference := strings.TrimSpace(event.Reference)
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transfer reference required")
	}
	txn, err := s.repo.FindTransactionByReference(ctx, reference)
	if err != nil {
		return notFoundOr(err, "payout transaction not found", "load payout transaction")
	}
	if txn.Status != enums.TransactionStatusPending {
		return nil
	}

	logCtx := s.logg.WithField(ctx, "reference", reference)
	switch event.Status {
	case gateway.StatusSuccessful:
		return s.settle(logCtx, reference, event.GatewayReference)
	case gateway.StatusFailed:
		return s.fail(logCtx, reference, "gateway reported "+strings.ToLower(event.RawStatus))
	default:
		s.logg.Info(logCtx, "transfer still pending")
		return nil
	}
}

func (s *service) reject(ctx context.Context, req *models.PayoutRequest, actor auth.Actor, notes string) error {
	notes = strings.TrimSpace(notes)
	updates := map[string]any{
		"processed_by": actor.UserID,
		"processed_at": s.now().UTC(),
	}
	if notes != "" {
		updates["admin_notes"] = notes
		updates["rejection_reason"] = notes
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionRequest(ctx, req.ID, enums.PayoutStatusPending, enums.PayoutStatusRejected, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject payout request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout request already processed")
		}
		req.Status = enums.PayoutStatusRejected
		if err := s.logAudit(ctx, tx, enums.AuditActionPayoutRejected, req, actor, notes); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPayoutRejected, req, notes)
	})
	if err != nil {
		return err
	}
	s.metrics.IncPayout("rejected")
	return nil
}

// approve is the first unit: PENDING -> APPROVED with a fresh balance check
// and the PENDING transfer transaction.
func (s *service) approve(ctx context.Context, req *models.PayoutRequest, actor auth.Actor, notes string) (*models.Transaction, error) {
	updates := map[string]any{
		"processed_by": actor.UserID,
		"processed_at": s.now().UTC(),
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		updates["admin_notes"] = notes
	}

	var txn *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.TransitionRequest(ctx, req.ID, enums.PayoutStatusPending, enums.PayoutStatusApproved, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve payout request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout request already processed")
		}

		bal, err := s.earnings.Lock(ctx, tx, ledger.Account{Type: req.PayeeType, ID: req.PayeeID})
		if err != nil {
			return err
		}
		if bal.UnpaidCents() < req.AmountCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "payout exceeds unpaid earnings").
				WithDetails(map[string]any{"unpaid_cents": bal.UnpaidCents()})
		}

		destination := req.BankDetails
		txn = &models.Transaction{
			Reference:       newPayoutReference(req.ID),
			Type:            enums.TransactionTypePayout,
			AmountCents:     req.AmountCents,
			Currency:        req.Currency,
			Status:          enums.TransactionStatusPending,
			PayoutRequestID: &req.ID,
			Metadata:        types.TransactionMetadata{Destination: &destination},
		}
		payee := req.PayeeID
		if req.PayeeType == enums.PayeeTypeVendor {
			txn.VendorID = &payee
		} else {
			txn.DriverID = &payee
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payout transaction")
		}
		if err := repo.LinkTransaction(ctx, req.ID, txn.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link payout transaction")
		}

		req.Status = enums.PayoutStatusApproved
		return s.logAudit(ctx, tx, enums.AuditActionPayoutApproved, req, actor, notes)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPayout("approved")
	return txn, nil
}

// settle is the second unit after a successful transfer. The earnings guard
// rejects a debit the unpaid balance no longer covers.
func (s *service) settle(ctx context.Context, reference, gatewayRef string) error {
	var settled bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindTransactionByReference(ctx, reference)
		if err != nil {
			return notFoundOr(err, "payout transaction not found", "load payout transaction")
		}
		updates := map[string]any{"completed_at": s.now().UTC()}
		if gatewayRef != "" {
			updates["gateway_reference"] = gatewayRef
		}
		ok, err := repo.SettleTransaction(ctx, txn.ID, enums.TransactionStatusSuccessful, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle payout transaction")
		}
		if !ok || txn.PayoutRequestID == nil {
			return nil
		}

		req, err := repo.FindRequest(ctx, *txn.PayoutRequestID)
		if err != nil {
			return notFoundOr(err, "payout request not found", "load payout request")
		}
		moved, err := repo.TransitionRequest(ctx, req.ID, enums.PayoutStatusApproved, enums.PayoutStatusProcessed, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete payout request")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout request is not approved")
		}
		if err := s.earnings.RecordPayout(ctx, tx, ledger.Account{Type: req.PayeeType, ID: req.PayeeID}, req.AmountCents); err != nil {
			return err
		}

		settled = true
		req.Status = enums.PayoutStatusProcessed
		if err := s.logAudit(ctx, tx, enums.AuditActionPayoutProcessed, req, auth.System(), txn.Reference); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPayoutProcessed, req, "")
	})
	if err != nil {
		s.logg.Error(ctx, "payout settlement failed", err)
		return err
	}
	if settled {
		s.metrics.IncPayout("processed")
		s.logg.Info(ctx, "payout processed")
	}
	return nil
}

// fail marks the transfer FAILED and rejects the approved request. Earnings
// are untouched.
func (s *service) fail(ctx context.Context, reference, reason string) error {
	var failed bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindTransactionByReference(ctx, reference)
		if err != nil {
			return notFoundOr(err, "payout transaction not found", "load payout transaction")
		}
		ok, err := repo.SettleTransaction(ctx, txn.ID, enums.TransactionStatusFailed, map[string]any{"completed_at": s.now().UTC()})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fail payout transaction")
		}
		if !ok {
			return nil
		}
		failed = true
		metadata := txn.Metadata
		metadata.FailureReason = reason
		if err := repo.UpdateTransactionMetadata(ctx, txn.ID, metadata); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store transfer failure")
		}
		if txn.PayoutRequestID == nil {
			return nil
		}

		req, err := repo.FindRequest(ctx, *txn.PayoutRequestID)
		if err != nil {
			return notFoundOr(err, "payout request not found", "load payout request")
		}
		moved, err := repo.TransitionRequest(ctx, req.ID, enums.PayoutStatusApproved, enums.PayoutStatusRejected,
			map[string]any{"rejection_reason": reason})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject payout request")
		}
		if !moved {
			return nil
		}
		req.Status = enums.PayoutStatusRejected
		if err := s.logAudit(ctx, tx, enums.AuditActionPayoutRejected, req, auth.System(), reason); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPayoutRejected, req, reason)
	})
	if err != nil {
		return err
	}
	if failed {
		s.metrics.IncPayout("failed")
		s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "payout transfer failed")
	}
	return nil
}

func (s *service) logAudit(ctx context.Context, tx *gorm.DB, action enums.AuditAction, req *models.PayoutRequest, actor auth.Actor, note string) error {
	amount := req.AmountCents
	entry := audit.Entry{
		Action:     action,
		EntityType: enums.AuditEntityPayoutRequest,
		EntityID:   req.ID,
		ActorRole:  actor.Role,
		Details: types.AuditDetails{
			ToStatus:    string(req.Status),
			AmountCents: &amount,
			Note:        strings.TrimSpace(note),
		},
	}
	if actor.UserID != uuid.Nil {
		performedBy := actor.UserID
		entry.PerformedBy = &performedBy
	}
	if _, err := s.audit.LogAction(ctx, tx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "audit payout")
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, req *models.PayoutRequest, reason string) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayoutRequest,
		AggregateID:   req.ID,
		Data: payloads.PayoutEvent{
			PayoutRequestID: req.ID,
			PayeeID:         req.PayeeID,
			PayeeType:       req.PayeeType,
			AmountCents:     req.AmountCents,
			Status:          req.Status,
			Reason:          reason,
		},
	})
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	req, err := s.repo.FindRequest(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "payout request not found", "reload payout request")
	}
	return req, nil
}

func canRequest(actor auth.Actor, payeeType enums.PayeeType, payeeID uuid.UUID) bool {
	if actor.IsAdmin() {
		return true
	}
	switch payeeType {
	case enums.PayeeTypeVendor:
		return actor.Is(enums.ActorRoleVendor, payeeID)
	case enums.PayeeTypeDriver:
		return actor.Is(enums.ActorRoleDriver, payeeID)
	default:
		return false
	}
}

// newPayoutReference formats PO-<first 8 of request id>-<6 random hex chars>.
func newPayoutReference(requestID uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PO-%s-%s", strings.ToUpper(requestID.String()[:8]), suffix)
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
