package enums

import "fmt"

// OrderStatus tracks an order through fulfilment.
type OrderStatus string

const (
	OrderStatusReceived       OrderStatus = "RECEIVED"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	OrderStatusInTransit      OrderStatus = "IN_TRANSIT"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCollected      OrderStatus = "COLLECTED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusReceived,
	OrderStatusProcessing,
	OrderStatusReadyForPickup,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusCollected,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// IsTerminal reports whether no further transitions are allowed.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusDelivered, OrderStatusCollected, OrderStatusCancelled:
		return true
	}
	return false
}

// IsCancelable reports whether the order can still be cancelled.
func (o OrderStatus) IsCancelable() bool {
	return o == OrderStatusReceived || o == OrderStatusProcessing
}
