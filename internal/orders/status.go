package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

var (
	deliveryPath = []enums.OrderStatus{
		enums.OrderStatusReceived,
		enums.OrderStatusProcessing,
		enums.OrderStatusReadyForPickup,
		enums.OrderStatusInTransit,
		enums.OrderStatusDelivered,
	}
	collectionPath = []enums.OrderStatus{
		enums.OrderStatusReceived,
		enums.OrderStatusProcessing,
		enums.OrderStatusReadyForPickup,
		enums.OrderStatusCollected,
	}
)

// CanTransition reports whether UpdateStatus may move an order of orderType
// from one status to the next. Only the immediate next step on the order's
// path is allowed; cancellation goes through CancelOrder.
func CanTransition(orderType enums.OrderType, from, to enums.OrderStatus) bool {
	path := deliveryPath
	if orderType == enums.OrderTypeCollection {
		path = collectionPath
	}
	for i, status := range path {
		if status == from {
			return i+1 < len(path) && path[i+1] == to
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from the current one, including
// CANCELLED where allowed.
func NextStatuses(orderType enums.OrderType, from enums.OrderStatus) []enums.OrderStatus {
	var next []enums.OrderStatus
	for _, candidate := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusReadyForPickup,
		enums.OrderStatusInTransit,
		enums.OrderStatusDelivered,
		enums.OrderStatusCollected,
	} {
		if CanTransition(orderType, from, candidate) {
			next = append(next, candidate)
		}
	}
	if from.IsCancelable() {
		next = append(next, enums.OrderStatusCancelled)
	}
	return next
}

// NoteLine renders one entry of the append-only notes log.
func NoteLine(at time.Time, from, to enums.OrderStatus, actor auth.Actor, note string) string {
	line := fmt.Sprintf("[%s] %s -> %s by %s", at.UTC().Format(time.RFC3339), from, to, strings.ToUpper(string(actor.Role)))
	if actor.UserID != uuid.Nil {
		line += " " + actor.UserID.String()
	}
	if note = strings.TrimSpace(note); note != "" {
		line += ": " + note
	}
	return line
}
