package enums

import "slices"

// OutboxAggregateType is the kind of row an outbox event describes.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateTransaction   OutboxAggregateType = "transaction"
	AggregateRefund        OutboxAggregateType = "refund"
	AggregatePayoutRequest OutboxAggregateType = "payout_request"
	AggregatePart          OutboxAggregateType = "part"
)

func (a OutboxAggregateType) IsValid() bool {
	switch a {
	case AggregateOrder, AggregateTransaction, AggregateRefund, AggregatePayoutRequest, AggregatePart:
		return true
	}
	return false
}

// OutboxEventType names a settlement fact published to consumers.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOrderCanceled      OutboxEventType = "order_canceled"
	EventOrderPaid          OutboxEventType = "order_paid"
	EventPaymentFailed      OutboxEventType = "payment_failed"
	EventRefundRequested    OutboxEventType = "refund_requested"
	EventRefundProcessed    OutboxEventType = "refund_processed"
	EventPayoutRequested    OutboxEventType = "payout_requested"
	EventPayoutProcessed    OutboxEventType = "payout_processed"
	EventPayoutRejected     OutboxEventType = "payout_rejected"
	EventLowStockDetected   OutboxEventType = "low_stock_detected"
)

// eventAggregates pins every event type to the one aggregate it may carry.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventOrderCreated:       AggregateOrder,
	EventOrderStatusChanged: AggregateOrder,
	EventOrderCanceled:      AggregateOrder,
	EventOrderPaid:          AggregateOrder,
	EventPaymentFailed:      AggregateTransaction,
	EventRefundRequested:    AggregateRefund,
	EventRefundProcessed:    AggregateRefund,
	EventPayoutRequested:    AggregatePayoutRequest,
	EventPayoutProcessed:    AggregatePayoutRequest,
	EventPayoutRejected:     AggregatePayoutRequest,
	EventLowStockDetected:   AggregatePart,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type e is emitted for, or "" when e is
// unknown.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	return eventAggregates[e]
}

// OutboxEventTypes lists every known event type in lexical order.
func OutboxEventTypes() []OutboxEventType {
	out := make([]OutboxEventType, 0, len(eventAggregates))
	for e := range eventAggregates {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}
