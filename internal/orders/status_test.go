package orders

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		orderType enums.OrderType
		from, to  enums.OrderStatus
		want      bool
	}{
		{enums.OrderTypeDelivery, enums.OrderStatusReceived, enums.OrderStatusProcessing, true},
		{enums.OrderTypeDelivery, enums.OrderStatusReadyForPickup, enums.OrderStatusInTransit, true},
		{enums.OrderTypeDelivery, enums.OrderStatusInTransit, enums.OrderStatusDelivered, true},
		{enums.OrderTypeDelivery, enums.OrderStatusReadyForPickup, enums.OrderStatusCollected, false},
		{enums.OrderTypeDelivery, enums.OrderStatusReceived, enums.OrderStatusReadyForPickup, false},
		{enums.OrderTypeDelivery, enums.OrderStatusProcessing, enums.OrderStatusReceived, false},
		{enums.OrderTypeDelivery, enums.OrderStatusDelivered, enums.OrderStatusInTransit, false},
		{enums.OrderTypeCollection, enums.OrderStatusReadyForPickup, enums.OrderStatusCollected, true},
		{enums.OrderTypeCollection, enums.OrderStatusReadyForPickup, enums.OrderStatusInTransit, false},
		{enums.OrderTypeCollection, enums.OrderStatusCollected, enums.OrderStatusCancelled, false},
		{enums.OrderTypeCollection, enums.OrderStatusReceived, enums.OrderStatusCancelled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.orderType, tc.from, tc.to), "%s %s -> %s", tc.orderType, tc.from, tc.to)
	}
}

func TestNextStatuses(t *testing.T) {
	assert.Equal(t,
		[]enums.OrderStatus{enums.OrderStatusProcessing, enums.OrderStatusCancelled},
		NextStatuses(enums.OrderTypeDelivery, enums.OrderStatusReceived))
	assert.Equal(t,
		[]enums.OrderStatus{enums.OrderStatusCollected},
		NextStatuses(enums.OrderTypeCollection, enums.OrderStatusReadyForPickup))
	assert.Empty(t, NextStatuses(enums.OrderTypeDelivery, enums.OrderStatusDelivered))
}

func TestNoteLine(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	id := uuid.MustParse("2f1d8c4e-5a6b-4c7d-8e9f-0a1b2c3d4e5f")

	line := NoteLine(at, enums.OrderStatusReceived, enums.OrderStatusProcessing, auth.Actor{UserID: id, Role: enums.ActorRoleVendor}, " packing now ")
	assert.Equal(t, "[2026-05-01T09:30:00Z] RECEIVED -> PROCESSING by VENDOR 2f1d8c4e-5a6b-4c7d-8e9f-0a1b2c3d4e5f: packing now", line)

	line = NoteLine(at, enums.OrderStatusReceived, enums.OrderStatusProcessing, auth.System(), "")
	assert.Equal(t, "[2026-05-01T09:30:00Z] RECEIVED -> PROCESSING by SYSTEM", line)
}
