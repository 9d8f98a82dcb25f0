package deliveries

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/db"
	"github.com/angelmondragon/haulmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

func loadDelivery(t *testing.T, client *db.Client, orderID uuid.UUID) *models.Delivery {
	t.Helper()
	var delivery models.Delivery
	require.NoError(t, client.DB().Where("order_id = ?", orderID).Take(&delivery).Error)
	return &delivery
}

func TestStatusFor(t *testing.T) {
	cases := map[enums.OrderStatus]enums.DeliveryStatus{
		enums.OrderStatusReadyForPickup: enums.DeliveryStatusPending,
		enums.OrderStatusInTransit:      enums.DeliveryStatusInTransit,
		enums.OrderStatusDelivered:      enums.DeliveryStatusDelivered,
		enums.OrderStatusCancelled:      enums.DeliveryStatusCancelled,
	}
	for orderStatus, want := range cases {
		got, ok := StatusFor(orderStatus)
		require.True(t, ok, orderStatus)
		assert.Equal(t, want, got)
	}

	_, ok := StatusFor(enums.OrderStatusProcessing)
	assert.False(t, ok)
	_, ok = StatusFor(enums.OrderStatusCollected)
	assert.False(t, ok)
}

func TestSyncStatusUpdatesRecord(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	orderID := uuid.New()
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := svc.Create(context.Background(), tx, orderID)
		return err
	}))

	require.NoError(t, svc.SyncStatus(context.Background(), orderID, enums.OrderStatusInTransit))
	delivery := loadDelivery(t, client, orderID)
	assert.Equal(t, enums.DeliveryStatusInTransit, delivery.Status)
	assert.NotNil(t, delivery.PickedUpAt)

	require.NoError(t, svc.SyncStatus(context.Background(), orderID, enums.OrderStatusDelivered))
	delivery = loadDelivery(t, client, orderID)
	assert.Equal(t, enums.DeliveryStatusDelivered, delivery.Status)
	assert.NotNil(t, delivery.DeliveredAt)
}

func TestSyncStatusWithoutDelivery(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	err = svc.SyncStatus(context.Background(), uuid.New(), enums.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrNoDelivery)

	assert.NoError(t, svc.SyncStatus(context.Background(), uuid.New(), enums.OrderStatusProcessing))

	var count int64
	require.NoError(t, client.DB().Model(&models.Delivery{}).Count(&count).Error)
	assert.Zero(t, count)
}
