package orders

import (
	"bytes"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

// ItemInput is one requested catalog line.
type ItemInput struct {
	PartID   uuid.UUID
	Quantity int
}

// CreateOrderInput captures a customer's order request.
type CreateOrderInput struct {
	CustomerID    uuid.UUID
	VendorID      uuid.UUID
	Items         []ItemInput
	AddressID     *uuid.UUID
	OrderType     enums.OrderType
	PaymentMethod enums.PaymentMethod
	PromoCode     *string
	Notes         *string
}

// UpdateStatusInput moves an order one step along its fulfilment path.
type UpdateStatusInput struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
	Actor   auth.Actor
	Note    string
}

// CancelOrderInput cancels an order and returns its stock.
type CancelOrderInput struct {
	OrderID uuid.UUID
	Actor   auth.Actor
	Reason  string
}

// mergeItems folds duplicate part lines into one and orders the result by
// part id. Stock rows are locked in that order, so two orders over the same
// parts cannot deadlock.
func mergeItems(items []ItemInput) []ItemInput {
	merged := make([]ItemInput, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if i, ok := index[item.PartID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.PartID] = len(merged)
		merged = append(merged, item)
	}
	slices.SortFunc(merged, func(a, b ItemInput) int {
		return bytes.Compare(a.PartID[:], b.PartID[:])
	})
	return merged
}
