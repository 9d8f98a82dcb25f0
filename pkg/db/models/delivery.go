package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

// Delivery is the courier record attached to DELIVERY orders.
type Delivery struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	DriverID    *uuid.UUID           `gorm:"column:driver_id;type:uuid;index"`
	Status      enums.DeliveryStatus `gorm:"column:status;not null;default:'PENDING'"`
	PickedUpAt  *time.Time           `gorm:"column:picked_up_at"`
	DeliveredAt *time.Time           `gorm:"column:delivered_at"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Delivery) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}
