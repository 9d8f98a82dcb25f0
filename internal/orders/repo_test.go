package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/haulmart-backend/pkg/db"
	"github.com/angelmondragon/haulmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

func seedOrder(t *testing.T, client *db.Client, number string) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:        number,
		CustomerID:         uuid.New(),
		VendorID:           uuid.New(),
		OrderType:          enums.OrderTypeCollection,
		SubtotalCents:      10000,
		TotalCents:         10000,
		CommissionPercent:  decimal.NewFromInt(10),
		CommissionCents:    1000,
		VendorEarningCents: 9000,
		Currency:           enums.CurrencyNGN,
		PaymentMethod:      enums.PaymentMethodCard,
		PaymentStatus:      enums.PaymentStatusPending,
		Status:             enums.OrderStatusReceived,
		Items: []models.OrderItem{
			{PartID: uuid.New(), Name: "Fan Belt", Quantity: 1, UnitPriceCents: 10000, SubtotalCents: 10000},
		},
	}
	require.NoError(t, NewRepository(client.DB()).CreateOrder(context.Background(), order))
	return order
}

func TestRepositoryCreateAndFindOrder(t *testing.T) {
	client := dbtest.Open(t)
	order := seedOrder(t, client, "ORD-260101-AAAAAA")
	repo := NewRepository(client.DB())

	found, err := repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-260101-AAAAAA", found.OrderNumber)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Fan Belt", found.Items[0].Name)
	assert.Nil(t, found.Delivery)
	assert.True(t, found.CommissionPercent.Equal(decimal.NewFromInt(10)))

	exists, err := repo.OrderNumberExists(context.Background(), "ORD-260101-AAAAAA")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.OrderNumberExists(context.Background(), "ORD-260101-BBBBBB")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepositoryTransitionStatusIsConditional(t *testing.T) {
	client := dbtest.Open(t)
	order := seedOrder(t, client, "ORD-260101-CCCCCC")
	repo := NewRepository(client.DB())
	ctx := context.Background()

	ok, err := repo.TransitionStatus(ctx, order.ID, enums.OrderStatusReceived, enums.OrderStatusProcessing, "first", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(ctx, order.ID, enums.OrderStatusReceived, enums.OrderStatusProcessing, "stale", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.TransitionStatus(ctx, order.ID, enums.OrderStatusProcessing, enums.OrderStatusReadyForPickup, "second", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReadyForPickup, found.Status)
	assert.Equal(t, "first\nsecond", found.Notes)
}
