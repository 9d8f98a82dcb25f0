package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

type fakeRepository struct {
	createFn func(ctx context.Context, entry *models.AuditLog) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) ListByEntity(ctx context.Context, entityType enums.AuditEntityType, entityID uuid.UUID) ([]models.AuditLog, error) {
	return nil, nil
}

func TestService_LogAction(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	var created *models.AuditLog
	repo.createFn = func(ctx context.Context, entry *models.AuditLog) error {
		created = entry
		return nil
	}

	admin := uuid.New()
	amount := int64(250000)
	entry := Entry{
		Action:      enums.AuditActionPayoutProcessed,
		EntityType:  enums.AuditEntityPayoutRequest,
		EntityID:    uuid.New(),
		PerformedBy: &admin,
		ActorRole:   enums.ActorRoleAdmin,
		Details:     types.AuditDetails{AmountCents: &amount, Reference: "PO-1"},
	}

	got, err := svc.LogAction(context.Background(), nil, entry)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Same(t, created, got)
	assert.Equal(t, entry.EntityID, created.EntityID)
	require.NotNil(t, created.ActorRole)
	assert.Equal(t, enums.ActorRoleAdmin, *created.ActorRole)
	assert.Equal(t, "PO-1", created.Details.Reference)
}

func TestService_LogActionValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	require.NoError(t, err)

	cases := map[string]Entry{
		"unknown action": {Action: "NOPE", EntityType: enums.AuditEntityOrder, EntityID: uuid.New()},
		"unknown entity": {Action: enums.AuditActionOrderCancelled, EntityType: "NOPE", EntityID: uuid.New()},
		"missing id":     {Action: enums.AuditActionOrderCancelled, EntityType: enums.AuditEntityOrder},
	}
	for name, entry := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.LogAction(context.Background(), nil, entry)
			assert.Error(t, err)
		})
	}
}

func TestService_LogActionPropagatesRepoError(t *testing.T) {
	repo := &fakeRepository{createFn: func(context.Context, *models.AuditLog) error {
		return errors.New("insert failed")
	}}
	svc, err := NewService(repo)
	require.NoError(t, err)

	_, err = svc.LogAction(context.Background(), nil, Entry{
		Action:     enums.AuditActionOrderCancelled,
		EntityType: enums.AuditEntityOrder,
		EntityID:   uuid.New(),
	})
	require.Error(t, err)
}

func TestRepository_RoundTripsStructuredDetails(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	orderID := uuid.New()
	ctx := context.Background()
	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := svc.LogAction(ctx, tx, Entry{
			Action:     enums.AuditActionOrderStatusChanged,
			EntityType: enums.AuditEntityOrder,
			EntityID:   orderID,
			Details:    types.AuditDetails{FromStatus: "RECEIVED", ToStatus: "PROCESSING"},
		})
		return err
	})
	require.NoError(t, err)

	history, err := svc.History(ctx, enums.AuditEntityOrder, orderID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "PROCESSING", history[0].Details.ToStatus)
	assert.Nil(t, history[0].PerformedBy)
}
