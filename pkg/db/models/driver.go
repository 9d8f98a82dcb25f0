package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

// Driver is a courier account credited with delivery fees on completion.
type Driver struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FullName           string             `gorm:"column:full_name;not null"`
	IsActive           bool               `gorm:"column:is_active;not null"`
	TotalEarningsCents int64              `gorm:"column:total_earnings_cents;not null;default:0"`
	TotalPaidOutCents  int64              `gorm:"column:total_paid_out_cents;not null;default:0"`
	BankDetails        *types.BankDetails `gorm:"column:bank_details;type:jsonb;serializer:json"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Driver) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}
