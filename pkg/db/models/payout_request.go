package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

// PayoutRequest is a vendor or driver withdrawal of credited earnings.
type PayoutRequest struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PayeeID           uuid.UUID              `gorm:"column:payee_id;type:uuid;not null;index"`
	PayeeType         enums.PayeeType        `gorm:"column:payee_type;not null"`
	AmountCents       int64                  `gorm:"column:amount_cents;not null"`
	Currency          enums.Currency         `gorm:"column:currency;not null;default:'NGN'"`
	Status            enums.PayoutStatus     `gorm:"column:status;not null;default:'PENDING'"`
	BankDetails       types.BankDetails      `gorm:"column:bank_details;type:jsonb;serializer:json;not null"`
	RequestedEarnings types.EarningsSnapshot `gorm:"column:requested_earnings;type:jsonb;serializer:json;not null"`
	TransactionID     *uuid.UUID             `gorm:"column:transaction_id;type:uuid"`
	ProcessedBy       *uuid.UUID             `gorm:"column:processed_by;type:uuid"`
	ProcessedAt       *time.Time             `gorm:"column:processed_at"`
	AdminNotes        *string                `gorm:"column:admin_notes"`
	RejectionReason   *string                `gorm:"column:rejection_reason"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PayoutRequest) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
