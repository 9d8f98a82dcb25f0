package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

// Refund returns part or all of a paid order's total to the customer.
type Refund struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	TransactionID    uuid.UUID          `gorm:"column:transaction_id;type:uuid;not null"`
	AmountCents      int64              `gorm:"column:amount_cents;not null"`
	Reason           string             `gorm:"column:reason;not null"`
	Status           enums.RefundStatus `gorm:"column:status;not null;default:'PENDING'"`
	RequestedBy      uuid.UUID          `gorm:"column:requested_by;type:uuid;not null"`
	ProcessedBy      *uuid.UUID         `gorm:"column:processed_by;type:uuid"`
	ProcessedAt      *time.Time         `gorm:"column:processed_at"`
	GatewayReference *string            `gorm:"column:gateway_reference"`
	AdminNotes       *string            `gorm:"column:admin_notes"`
	FailureReason    *string            `gorm:"column:failure_reason"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Refund) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
