// Package pricing computes order money fields. Everything here is pure: the
// same inputs always produce the same Totals and nothing touches storage.
package pricing

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/haulmart-backend/pkg/config"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

// minorUnitsPerMajor converts between cents and whole currency units.
const minorUnitsPerMajor = 100

var (
	hundred = decimal.NewFromInt(100)

	// ErrPromotionInvalid is returned for inactive, expired, exhausted or
	// foreign-vendor promotion codes.
	ErrPromotionInvalid = errors.New("promotion code is not valid for this order")
)

// Calculator applies the configured fee schedule.
type Calculator struct {
	cfg config.PricingConfig
}

// NewCalculator builds a calculator from the pricing configuration.
func NewCalculator(cfg config.PricingConfig) Calculator {
	return Calculator{cfg: cfg}
}

// Line is one priced order line.
type Line struct {
	UnitPriceCents int64
	Quantity       int
}

// QuoteInput carries everything needed to price an order.
type QuoteInput struct {
	Lines            []Line
	OrderType        enums.OrderType
	DistanceKm       *float64
	Promotion        *models.Promotion
	VendorID         uuid.UUID
	VendorCommission decimal.NullDecimal
	Now              time.Time
}

// Totals are the money fields persisted on an order.
type Totals struct {
	SubtotalCents      int64
	DeliveryFeeCents   int64
	DiscountCents      int64
	TaxCents           int64
	TotalCents         int64
	CommissionPercent  decimal.Decimal
	CommissionCents    int64
	VendorEarningCents int64
	ItemCount          int
}

// UnitPrice prefers the discounted price whenever one is set.
func UnitPrice(priceCents int64, discountedCents *int64) int64 {
	if discountedCents != nil && *discountedCents > 0 {
		return *discountedCents
	}
	return priceCents
}

// Subtotal sums unit price times quantity over all lines.
func Subtotal(lines []Line) (subtotal int64, itemCount int) {
	for _, l := range lines {
		subtotal += l.UnitPriceCents * int64(l.Quantity)
		itemCount += l.Quantity
	}
	return subtotal, itemCount
}

// DeliveryFee is base + per started km beyond the free distance + per item
// beyond the free count, rounded up to a whole currency unit and floored at
// the minimum charge. A nil distance yields the default fee.
func (c Calculator) DeliveryFee(distanceKm *float64, itemCount int) int64 {
	if distanceKm == nil {
		return c.cfg.DefaultDeliveryCents
	}

	fee := c.cfg.BaseDeliveryFeeCents

	excessKm := decimal.NewFromFloat(*distanceKm).Sub(c.cfg.FreeDistanceKm)
	if excessKm.IsPositive() {
		fee += excessKm.Ceil().IntPart() * c.cfg.PerKmFeeCents
	}

	if extra := itemCount - c.cfg.FreeItemCount; extra > 0 {
		fee += int64(extra) * c.cfg.PerItemFeeCents
	}

	fee = roundUpToUnit(fee)
	if fee < c.cfg.MinimumDeliveryCents {
		fee = c.cfg.MinimumDeliveryCents
	}
	return fee
}

// PromotionDiscount returns the promotion discount for subtotal. It is zero below the
// promotion's minimum order value and never exceeds the subtotal.
func PromotionDiscount(promo *models.Promotion, vendorID uuid.UUID, subtotalCents int64, now time.Time) (int64, error) {
	if promo == nil {
		return 0, nil
	}
	if !promo.IsActive {
		return 0, ErrPromotionInvalid
	}
	if promo.StartsAt != nil && now.Before(*promo.StartsAt) {
		return 0, ErrPromotionInvalid
	}
	if promo.EndsAt != nil && now.After(*promo.EndsAt) {
		return 0, ErrPromotionInvalid
	}
	if promo.VendorID != nil && *promo.VendorID != vendorID {
		return 0, ErrPromotionInvalid
	}
	if promo.UsageLimit != nil && promo.UsageCount >= *promo.UsageLimit {
		return 0, ErrPromotionInvalid
	}
	if promo.MinimumOrderCents != nil && subtotalCents < *promo.MinimumOrderCents {
		return 0, nil
	}

	var discount int64
	switch promo.Type {
	case enums.PromotionTypePercentage:
		if !promo.PercentOff.Valid {
			return 0, ErrPromotionInvalid
		}
		discount = percentOf(subtotalCents, promo.PercentOff.Decimal)
	case enums.PromotionTypeFixedAmount:
		if promo.AmountOffCents == nil {
			return 0, ErrPromotionInvalid
		}
		discount = *promo.AmountOffCents
	default:
		return 0, ErrPromotionInvalid
	}

	if promo.MaxDiscountCents != nil && discount > *promo.MaxDiscountCents {
		discount = *promo.MaxDiscountCents
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}

// Tax applies the configured rate to the discounted subtotal.
func (c Calculator) Tax(subtotalCents, discountCents int64) int64 {
	taxable := subtotalCents - discountCents
	if taxable <= 0 {
		return 0
	}
	return percentOf(taxable, c.cfg.TaxPercent)
}

// Commission splits the subtotal between the platform and the vendor using
// the vendor's own percentage when set.
func (c Calculator) Commission(subtotalCents int64, vendorPercent decimal.NullDecimal) (percent decimal.Decimal, commission, vendorEarning int64) {
	percent = c.cfg.DefaultCommission
	if vendorPercent.Valid {
		percent = vendorPercent.Decimal
	}
	commission = percentOf(subtotalCents, percent)
	return percent, commission, subtotalCents - commission
}

// Quote prices a full order. COLLECTION orders carry no delivery fee.
func (c Calculator) Quote(in QuoteInput) (Totals, error) {
	subtotal, itemCount := Subtotal(in.Lines)

	discount, err := PromotionDiscount(in.Promotion, in.VendorID, subtotal, in.Now)
	if err != nil {
		return Totals{}, err
	}

	var deliveryFee int64
	if in.OrderType == enums.OrderTypeDelivery {
		deliveryFee = c.DeliveryFee(in.DistanceKm, itemCount)
	}

	tax := c.Tax(subtotal, discount)
	percent, commission, earning := c.Commission(subtotal, in.VendorCommission)

	return Totals{
		SubtotalCents:      subtotal,
		DeliveryFeeCents:   deliveryFee,
		DiscountCents:      discount,
		TaxCents:           tax,
		TotalCents:         subtotal + deliveryFee + tax - discount,
		CommissionPercent:  percent,
		CommissionCents:    commission,
		VendorEarningCents: earning,
		ItemCount:          itemCount,
	}, nil
}

func percentOf(amountCents int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(amountCents).Mul(percent).Div(hundred).Round(0).IntPart()
}

func roundUpToUnit(cents int64) int64 {
	if rem := cents % minorUnitsPerMajor; rem != 0 {
		return cents + minorUnitsPerMajor - rem
	}
	return cents
}
