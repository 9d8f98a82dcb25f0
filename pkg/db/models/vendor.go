package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

// Vendor is a selling account. TotalEarningsCents is credited by payment
// verification and TotalPaidOutCents by processed payouts; both only move
// through conditional SQL increments.
type Vendor struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessName       string              `gorm:"column:business_name;not null"`
	IsActive           bool                `gorm:"column:is_active;not null"`
	CommissionPercent  decimal.NullDecimal `gorm:"column:commission_percent;type:numeric(5,2)"`
	Latitude           *float64            `gorm:"column:latitude"`
	Longitude          *float64            `gorm:"column:longitude"`
	TotalEarningsCents int64               `gorm:"column:total_earnings_cents;not null;default:0"`
	TotalPaidOutCents  int64               `gorm:"column:total_paid_out_cents;not null;default:0"`
	BankDetails        *types.BankDetails  `gorm:"column:bank_details;type:jsonb;serializer:json"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// HasCoordinates reports whether the vendor location is known.
func (v *Vendor) HasCoordinates() bool {
	return v != nil && v.Latitude != nil && v.Longitude != nil
}
