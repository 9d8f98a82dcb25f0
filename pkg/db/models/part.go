package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Part is a catalog item sold by a vendor.
type Part struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID             uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name                 string    `gorm:"column:name;not null"`
	SKU                  *string   `gorm:"column:sku"`
	PriceCents           int64     `gorm:"column:price_cents;not null"`
	DiscountedPriceCents *int64    `gorm:"column:discounted_price_cents"`
	StockQuantity        int       `gorm:"column:stock_quantity;not null;default:0"`
	LowStockThreshold    *int      `gorm:"column:low_stock_threshold"`
	IsActive             bool      `gorm:"column:is_active;not null"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Part) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
