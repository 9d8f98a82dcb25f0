package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

// Order is a customer purchase from a single vendor. Monetary fields are fixed
// at creation; refunds move PaymentStatus and never TotalCents.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber        string              `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID         uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	VendorID           uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index"`
	AddressID          *uuid.UUID          `gorm:"column:address_id;type:uuid"`
	OrderType          enums.OrderType     `gorm:"column:order_type;not null"`
	SubtotalCents      int64               `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents   int64               `gorm:"column:delivery_fee_cents;not null;default:0"`
	TaxCents           int64               `gorm:"column:tax_cents;not null;default:0"`
	DiscountCents      int64               `gorm:"column:discount_cents;not null;default:0"`
	TotalCents         int64               `gorm:"column:total_cents;not null"`
	CommissionPercent  decimal.Decimal     `gorm:"column:commission_percent;type:numeric(5,2);not null"`
	CommissionCents    int64               `gorm:"column:commission_cents;not null"`
	VendorEarningCents int64               `gorm:"column:vendor_earning_cents;not null"`
	Currency           enums.Currency      `gorm:"column:currency;not null;default:'NGN'"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;not null"`
	PaymentStatus      enums.PaymentStatus `gorm:"column:payment_status;not null;default:'PENDING'"`
	Status             enums.OrderStatus   `gorm:"column:status;not null;default:'RECEIVED'"`
	IsCancelled        bool                `gorm:"column:is_cancelled;not null;default:false"`
	CancellationReason *string             `gorm:"column:cancellation_reason"`
	PromotionID        *uuid.UUID          `gorm:"column:promotion_id;type:uuid"`
	DistanceKm         *float64            `gorm:"column:distance_km"`
	Notes              string              `gorm:"column:notes;not null;default:''"`
	PaidAt             *time.Time          `gorm:"column:paid_at"`
	CancelledAt        *time.Time          `gorm:"column:cancelled_at"`
	CompletedAt        *time.Time          `gorm:"column:completed_at"`
	Items              []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Delivery           *Delivery           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}
