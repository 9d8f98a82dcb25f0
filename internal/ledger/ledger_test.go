package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/db"
	"github.com/angelmondragon/haulmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

func seedPart(t *testing.T, client *db.Client, vendorID uuid.UUID, stock int, active bool) *models.Part {
	t.Helper()
	part := &models.Part{
		VendorID:      vendorID,
		Name:          "Brake Pad",
		PriceCents:    250000,
		StockQuantity: stock,
		IsActive:      active,
	}
	dbtest.Create(t, client, part)
	return part
}

func stockOf(t *testing.T, client *db.Client, partID uuid.UUID) int {
	t.Helper()
	var part models.Part
	require.NoError(t, client.DB().Where("id = ?", partID).Take(&part).Error)
	return part.StockQuantity
}

func decrement(client *db.Client, req StockRequest) (*StockSnapshot, error) {
	var snap *StockSnapshot
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		snap, err = NewInventory().Decrement(context.Background(), tx, req)
		return err
	})
	return snap, err
}

func TestInventory_DecrementReturnsSnapshot(t *testing.T) {
	client := dbtest.Open(t)
	vendorID := uuid.New()
	part := seedPart(t, client, vendorID, 5, true)

	snap, err := decrement(client, StockRequest{PartID: part.ID, VendorID: vendorID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Remaining)
	assert.Equal(t, "Brake Pad", snap.Name)
	assert.Equal(t, int64(250000), snap.PriceCents)
	assert.Equal(t, 3, stockOf(t, client, part.ID))
}

func TestInventory_DecrementInsufficientStock(t *testing.T) {
	client := dbtest.Open(t)
	vendorID := uuid.New()
	part := seedPart(t, client, vendorID, 2, true)

	_, err := decrement(client, StockRequest{PartID: part.ID, VendorID: vendorID, Quantity: 3})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	details, ok := typed.Details().(InsufficientStockDetails)
	require.True(t, ok)
	assert.Equal(t, 2, details.Available)
	assert.Equal(t, 3, details.Requested)
	assert.Equal(t, "Brake Pad", details.Name)
	assert.Equal(t, 2, stockOf(t, client, part.ID))
}

func TestInventory_DecrementClassifiesRejections(t *testing.T) {
	client := dbtest.Open(t)
	vendorID := uuid.New()
	inactive := seedPart(t, client, vendorID, 10, false)
	other := seedPart(t, client, uuid.New(), 10, true)

	_, err := decrement(client, StockRequest{PartID: inactive.ID, VendorID: vendorID, Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = decrement(client, StockRequest{PartID: other.ID, VendorID: vendorID, Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = decrement(client, StockRequest{PartID: uuid.New(), VendorID: vendorID, Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	assert.Equal(t, 10, stockOf(t, client, inactive.ID))
	assert.Equal(t, 10, stockOf(t, client, other.ID))
}

func TestInventory_ConcurrentDecrementsNeverOversell(t *testing.T) {
	client := dbtest.Open(t)
	vendorID := uuid.New()
	part := seedPart(t, client, vendorID, 5, true)

	const attempts = 4
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = decrement(client, StockRequest{PartID: part.ID, VendorID: vendorID, Quantity: 2})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientStock), "unexpected error %v", err)
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, stockOf(t, client, part.ID))
}

func TestInventory_IncrementRestoresStock(t *testing.T) {
	client := dbtest.Open(t)
	vendorID := uuid.New()
	part := seedPart(t, client, vendorID, 5, true)
	ctx := context.Background()

	_, err := decrement(client, StockRequest{PartID: part.ID, VendorID: vendorID, Quantity: 4})
	require.NoError(t, err)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return NewInventory().Increment(ctx, tx, part.ID, 4)
	}))
	assert.Equal(t, 5, stockOf(t, client, part.ID))

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return NewInventory().Increment(ctx, tx, uuid.New(), 1)
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestEarnings_CreditAndGuardedPayout(t *testing.T) {
	client := dbtest.Open(t)
	vendor := &models.Vendor{
		BusinessName: "Spares Hub",
		IsActive:     true,
		BankDetails:  &types.BankDetails{BankCode: "044", AccountNumber: "0690000031", AccountName: "Spares Hub"},
	}
	dbtest.Create(t, client, vendor)
	acct := VendorAccount(vendor.ID)
	ledger := NewEarnings()
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.Credit(ctx, tx, acct, 300000)
	}))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.RecordPayout(ctx, tx, acct, 300001)
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.RecordPayout(ctx, tx, acct, 200000)
	}))

	var bal *Balance
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		bal, err = ledger.Lock(ctx, tx, acct)
		return err
	}))
	assert.Equal(t, int64(300000), bal.TotalEarningsCents)
	assert.Equal(t, int64(200000), bal.TotalPaidOutCents)
	assert.Equal(t, int64(100000), bal.UnpaidCents())
	require.NotNil(t, bal.BankDetails)
	assert.True(t, bal.BankDetails.IsComplete())
}

func TestEarnings_UnknownAccount(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	ledger := NewEarnings()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.Credit(ctx, tx, DriverAccount(uuid.New()), 100)
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := ledger.Lock(ctx, tx, Account{Type: "ALIEN", ID: uuid.New()})
		return err
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
