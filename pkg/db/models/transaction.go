package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

// Transaction is one payment or payout attempt. Reference is the idempotency
// key for reconciliation; rows are never deleted.
type Transaction struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference        string                    `gorm:"column:reference;not null;uniqueIndex"`
	Type             enums.TransactionType     `gorm:"column:type;not null"`
	AmountCents      int64                     `gorm:"column:amount_cents;not null"`
	FeeCents         int64                     `gorm:"column:fee_cents;not null;default:0"`
	Currency         enums.Currency            `gorm:"column:currency;not null;default:'NGN'"`
	Status           enums.TransactionStatus   `gorm:"column:status;not null;default:'PENDING'"`
	GatewayReference *string                   `gorm:"column:gateway_reference"`
	OrderID          *uuid.UUID                `gorm:"column:order_id;type:uuid;index"`
	CustomerID       *uuid.UUID                `gorm:"column:customer_id;type:uuid"`
	VendorID         *uuid.UUID                `gorm:"column:vendor_id;type:uuid"`
	DriverID         *uuid.UUID                `gorm:"column:driver_id;type:uuid"`
	PayoutRequestID  *uuid.UUID                `gorm:"column:payout_request_id;type:uuid"`
	Metadata         types.TransactionMetadata `gorm:"column:metadata;type:jsonb;serializer:json"`
	CompletedAt      *time.Time                `gorm:"column:completed_at"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}
