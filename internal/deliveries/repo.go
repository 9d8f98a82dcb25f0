package deliveries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

// Repository persists delivery records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, delivery *models.Delivery) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.DeliveryStatus, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a deliveries repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.DeliveryStatus, at time.Time) (int64, error) {
	updates := map[string]any{
		"status":     status,
		"updated_at": at,
	}
	switch status {
	case enums.DeliveryStatusInTransit:
		updates["picked_up_at"] = at
	case enums.DeliveryStatusDelivered:
		updates["delivered_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("order_id = ?", orderID).
		Updates(updates)
	return res.RowsAffected, res.Error
}
