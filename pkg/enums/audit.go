package enums

import "fmt"

// AuditAction names an append-only audit_logs entry.
type AuditAction string

const (
	AuditActionOrderStatusChanged   AuditAction = "ORDER_STATUS_CHANGED"
	AuditActionOrderCancelled       AuditAction = "ORDER_CANCELLED"
	AuditActionPaymentVerified      AuditAction = "PAYMENT_VERIFIED"
	AuditActionPaymentFailed        AuditAction = "PAYMENT_FAILED"
	AuditActionPaymentAfterCancel   AuditAction = "PAYMENT_RECEIVED_FOR_CANCELLED_ORDER"
	AuditActionRefundRequested      AuditAction = "REFUND_REQUESTED"
	AuditActionRefundProcessed      AuditAction = "REFUND_PROCESSED"
	AuditActionRefundRejected       AuditAction = "REFUND_REJECTED"
	AuditActionPayoutRequested      AuditAction = "PAYOUT_REQUESTED"
	AuditActionPayoutApproved       AuditAction = "PAYOUT_APPROVED"
	AuditActionPayoutProcessed      AuditAction = "PAYOUT_PROCESSED"
	AuditActionPayoutRejected       AuditAction = "PAYOUT_REJECTED"
	AuditActionDriverEarningCredit  AuditAction = "DRIVER_EARNING_CREDITED"
	AuditActionDeliverySyncMismatch AuditAction = "DELIVERY_SYNC_FAILED"
)

var validAuditActions = []AuditAction{
	AuditActionOrderStatusChanged,
	AuditActionOrderCancelled,
	AuditActionPaymentVerified,
	AuditActionPaymentFailed,
	AuditActionPaymentAfterCancel,
	AuditActionRefundRequested,
	AuditActionRefundProcessed,
	AuditActionRefundRejected,
	AuditActionPayoutRequested,
	AuditActionPayoutApproved,
	AuditActionPayoutProcessed,
	AuditActionPayoutRejected,
	AuditActionDriverEarningCredit,
	AuditActionDeliverySyncMismatch,
}

// IsValid reports whether the value is a known audit action.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}

// AuditEntityType is the kind of record an audit entry refers to.
type AuditEntityType string

const (
	AuditEntityOrder         AuditEntityType = "ORDER"
	AuditEntityTransaction   AuditEntityType = "TRANSACTION"
	AuditEntityRefund        AuditEntityType = "REFUND"
	AuditEntityPayoutRequest AuditEntityType = "PAYOUT_REQUEST"
	AuditEntityDelivery      AuditEntityType = "DELIVERY"
)

var validAuditEntityTypes = []AuditEntityType{
	AuditEntityOrder,
	AuditEntityTransaction,
	AuditEntityRefund,
	AuditEntityPayoutRequest,
	AuditEntityDelivery,
}

// IsValid reports whether the value is a known audit entity type.
func (a AuditEntityType) IsValid() bool {
	for _, candidate := range validAuditEntityTypes {
		if candidate == a {
			return true
		}
	}
	return false
}
