package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

// Promotion is a vendor discount code. A nil VendorID applies to every vendor.
type Promotion struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID          *uuid.UUID          `gorm:"column:vendor_id;type:uuid"`
	Code              string              `gorm:"column:code;not null"`
	Type              enums.PromotionType `gorm:"column:type;not null"`
	PercentOff        decimal.NullDecimal `gorm:"column:percent_off;type:numeric(5,2)"`
	AmountOffCents    *int64              `gorm:"column:amount_off_cents"`
	MaxDiscountCents  *int64              `gorm:"column:max_discount_cents"`
	MinimumOrderCents *int64              `gorm:"column:minimum_order_cents"`
	StartsAt          *time.Time          `gorm:"column:starts_at"`
	EndsAt            *time.Time          `gorm:"column:ends_at"`
	IsActive          bool                `gorm:"column:is_active;not null"`
	UsageLimit        *int                `gorm:"column:usage_limit"`
	UsageCount        int                 `gorm:"column:usage_count;not null;default:0"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Promotion) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
