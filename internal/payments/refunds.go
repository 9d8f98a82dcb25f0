package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/internal/audit"
	"github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/gateway"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

// RequestRefund records a PENDING refund. The order row is locked while the
// remaining refundable amount is checked.
func (s *service) RequestRefund(ctx context.Context, input RequestRefundInput) (*models.Refund, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}

	var refund *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "lock order")
		}
		if !ownsOrder(input.Actor, order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
		}
		if !order.PaymentStatus.IsRefundable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders can be refunded")
		}

		committed, err := repo.SumRefunds(ctx, order.ID, enums.OpenRefundStatuses()...)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum refunds")
		}
		remaining := order.TotalCents - committed
		if input.AmountCents > remaining {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund exceeds refundable amount").
				WithDetails(map[string]any{"refundable_cents": remaining, "requested_cents": input.AmountCents})
		}

		payment, err := repo.FindSuccessfulPayment(ctx, order.ID)
		if err != nil {
			if isNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no settled payment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
		}

		refund = &models.Refund{
			OrderID:       order.ID,
			TransactionID: payment.ID,
			AmountCents:   input.AmountCents,
			Reason:        reason,
			Status:        enums.RefundStatusPending,
			RequestedBy:   input.Actor.UserID,
		}
		if err := repo.CreateRefund(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create refund")
		}

		amount := refund.AmountCents
		if _, err := s.audit.LogAction(ctx, tx, audit.Entry{
			Action:      enums.AuditActionRefundRequested,
			EntityType:  enums.AuditEntityRefund,
			EntityID:    refund.ID,
			PerformedBy: &refund.RequestedBy,
			ActorRole:   input.Actor.Role,
			Details: types.AuditDetails{
				AmountCents: &amount,
				OrderID:     order.ID.String(),
				Reason:      reason,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "audit refund request")
		}
		return s.emitRefund(ctx, tx, enums.EventRefundRequested, refund)
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// ProcessRefund applies an admin decision. Approval refunds through the
// gateway first and records the outcome afterwards.
func (s *service) ProcessRefund(ctx context.Context, input ProcessRefundInput) (*models.Refund, error) {
	if input.RefundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be APPROVE or REJECT")
	}
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may process refunds")
	}

	refund, err := s.repo.FindRefund(ctx, input.RefundID)
	if err != nil {
		return nil, notFoundOr(err, "refund not found", "load refund")
	}
	if refund.Status != enums.RefundStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund already processed")
	}

	now := s.now().UTC()
	resolved := map[string]any{
		"processed_by": input.Actor.UserID,
		"processed_at": now,
	}
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		resolved["admin_notes"] = notes
	}

	if input.Action == enums.ReviewActionReject {
		return s.resolveRefund(ctx, refund, enums.RefundStatusRejected, enums.AuditActionRefundRejected, input.Actor, resolved, input.Notes)
	}

	payment, err := s.repo.FindTransaction(ctx, refund.TransactionID)
	if err != nil {
		return nil, notFoundOr(err, "payment transaction not found", "load payment")
	}
	gatewayRef := ""
	if payment.GatewayReference != nil {
		gatewayRef = *payment.GatewayReference
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, refund.OrderID.String()), map[string]any{"refund_id": refund.ID.String()})
	started := s.now()
	result, err := s.gateway.Refund(ctx, gateway.RefundRequest{GatewayReference: gatewayRef, AmountCents: refund.AmountCents})
	s.metrics.ObserveGateway("refund", started)
	if err != nil || result.Status == gateway.StatusFailed {
		reason := "gateway refund failed"
		if err != nil {
			s.logg.Error(logCtx, "gateway refund failed", err)
			reason = err.Error()
		} else {
			reason = "gateway reported " + strings.ToLower(result.RawStatus)
		}
		resolved["failure_reason"] = reason
		return s.resolveRefund(logCtx, refund, enums.RefundStatusFailed, enums.AuditActionRefundRejected, input.Actor, resolved, reason)
	}

	if result.GatewayReference != "" {
		resolved["gateway_reference"] = result.GatewayReference
	}
	return s.resolveRefund(logCtx, refund, enums.RefundStatusProcessed, enums.AuditActionRefundProcessed, input.Actor, resolved, input.Notes)
}

func (s *service) resolveRefund(
	ctx context.Context,
	refund *models.Refund,
	to enums.RefundStatus,
	action enums.AuditAction,
	actor auth.Actor,
	updates map[string]any,
	note string,
) (*models.Refund, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.ResolveRefund(ctx, refund.ID, to, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve refund")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund already processed")
		}

		if to == enums.RefundStatusProcessed {
			order, err := repo.LockOrder(ctx, refund.OrderID)
			if err != nil {
				return notFoundOr(err, "order not found", "lock order")
			}
			processed, err := repo.SumRefunds(ctx, order.ID, enums.RefundStatusProcessed)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum processed refunds")
			}
			status := enums.PaymentStatusPartiallyRefunded
			if processed >= order.TotalCents {
				status = enums.PaymentStatusRefunded
			}
			if err := repo.SetOrderPaymentStatus(ctx, order.ID, status); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment status")
			}
		}

		amount := refund.AmountCents
		performedBy := actor.UserID
		if _, err := s.audit.LogAction(ctx, tx, audit.Entry{
			Action:      action,
			EntityType:  enums.AuditEntityRefund,
			EntityID:    refund.ID,
			PerformedBy: &performedBy,
			ActorRole:   actor.Role,
			Details: types.AuditDetails{
				ToStatus:    string(to),
				AmountCents: &amount,
				OrderID:     refund.OrderID.String(),
				Note:        strings.TrimSpace(note),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "audit refund")
		}

		if to != enums.RefundStatusProcessed {
			return nil
		}
		refund.Status = to
		return s.emitRefund(ctx, tx, enums.EventRefundProcessed, refund)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "refund_status", to), "refund resolved")
	updated, err := s.repo.FindRefund(ctx, refund.ID)
	if err != nil {
		return nil, notFoundOr(err, "refund not found", "reload refund")
	}
	return updated, nil
}

func (s *service) emitRefund(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, refund *models.Refund) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateRefund,
		AggregateID:   refund.ID,
		Data: payloads.RefundEvent{
			RefundID:    refund.ID,
			OrderID:     refund.OrderID,
			AmountCents: refund.AmountCents,
			Status:      refund.Status,
		},
	})
}
