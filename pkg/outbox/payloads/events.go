package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

// OrderCreatedEvent announces a newly placed order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	OrderType   enums.OrderType `json:"order_type"`
	TotalCents  int64           `json:"total_cents"`
	Currency    enums.Currency  `json:"currency"`
	ItemCount   int             `json:"item_count"`
}

// OrderStatusChangedEvent is emitted for every forward transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	ChangedBy   uuid.UUID         `json:"changed_by"`
	ActorRole   enums.ActorRole   `json:"actor_role"`
}

// OrderCanceledEvent is emitted when an order is cancelled and its stock restored.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	Reason     string    `json:"reason,omitempty"`
	CanceledAt time.Time `json:"canceled_at"`
}

// OrderPaidEvent is emitted once a payment transaction is verified.
type OrderPaidEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	TransactionID  uuid.UUID `json:"transaction_id"`
	Reference      string    `json:"reference"`
	VendorID       uuid.UUID `json:"vendor_id"`
	AmountCents    int64     `json:"amount_cents"`
	VendorCredited bool      `json:"vendor_credited"`
	PaidAt         time.Time `json:"paid_at"`
}

// PaymentFailedEvent reports a charge the gateway declined.
type PaymentFailedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Reference     string    `json:"reference"`
	Reason        string    `json:"reason,omitempty"`
}

// RefundEvent covers refund_requested and refund_processed.
type RefundEvent struct {
	RefundID    uuid.UUID          `json:"refund_id"`
	OrderID     uuid.UUID          `json:"order_id"`
	AmountCents int64              `json:"amount_cents"`
	Status      enums.RefundStatus `json:"status"`
}

// PayoutEvent covers payout_requested, payout_processed and payout_rejected.
type PayoutEvent struct {
	PayoutRequestID uuid.UUID          `json:"payout_request_id"`
	PayeeID         uuid.UUID          `json:"payee_id"`
	PayeeType       enums.PayeeType    `json:"payee_type"`
	AmountCents     int64              `json:"amount_cents"`
	Status          enums.PayoutStatus `json:"status"`
	Reason          string             `json:"reason,omitempty"`
}

// LowStockDetectedEvent flags a part at or below its threshold.
type LowStockDetectedEvent struct {
	PartID        uuid.UUID `json:"part_id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	Name          string    `json:"name"`
	StockQuantity int       `json:"stock_quantity"`
	Threshold     int       `json:"threshold"`
}
