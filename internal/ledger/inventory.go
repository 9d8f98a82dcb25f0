package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
)

// StockRequest asks for quantity units of a part sold by a vendor.
type StockRequest struct {
	PartID   uuid.UUID
	VendorID uuid.UUID
	Quantity int
}

// StockSnapshot is the part state read back after a successful decrement.
type StockSnapshot struct {
	PartID               uuid.UUID
	Name                 string
	PriceCents           int64
	DiscountedPriceCents *int64
	Remaining            int
	LowStockThreshold    *int
}

// InsufficientStockDetails is attached to INSUFFICIENT_STOCK errors.
type InsufficientStockDetails struct {
	PartID    uuid.UUID `json:"part_id"`
	Name      string    `json:"name"`
	Available int       `json:"available"`
	Requested int       `json:"requested"`
}

// Inventory mutates catalog stock counters. Both operations must run inside
// the caller's transaction.
type Inventory interface {
	Decrement(ctx context.Context, tx *gorm.DB, req StockRequest) (*StockSnapshot, error)
	Increment(ctx context.Context, tx *gorm.DB, partID uuid.UUID, qty int) error
}

type inventory struct{}

// NewInventory returns the SQL backed stock counter.
func NewInventory() Inventory {
	return inventory{}
}

// Decrement removes stock with a single conditional UPDATE so two concurrent
// orders can never both take the last units. A zero-row result is classified
// by re-reading the part inside the same transaction.
func (inventory) Decrement(ctx context.Context, tx *gorm.DB, req StockRequest) (*StockSnapshot, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock decrement")
	}
	if req.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE parts
		SET stock_quantity = stock_quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND vendor_id = ? AND is_active = ? AND stock_quantity >= ?
	`, req.Quantity, req.PartID, req.VendorID, true, req.Quantity)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrement stock")
	}

	var part models.Part
	if err := tx.WithContext(ctx).Where("id = ?", req.PartID).Take(&part).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("part %s not found", req.PartID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load part")
	}

	if res.RowsAffected == 0 {
		return nil, classifyRejectedDecrement(part, req)
	}

	return &StockSnapshot{
		PartID:               part.ID,
		Name:                 part.Name,
		PriceCents:           part.PriceCents,
		DiscountedPriceCents: part.DiscountedPriceCents,
		Remaining:            part.StockQuantity,
		LowStockThreshold:    part.LowStockThreshold,
	}, nil
}

func classifyRejectedDecrement(part models.Part, req StockRequest) error {
	switch {
	case part.VendorID != req.VendorID:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is not sold by this vendor", part.Name))
	case !part.IsActive:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is no longer available", part.Name))
	default:
		return pkgerrors.New(
			pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for %s: %d available, %d requested", part.Name, part.StockQuantity, req.Quantity),
		).WithDetails(InsufficientStockDetails{
			PartID:    part.ID,
			Name:      part.Name,
			Available: part.StockQuantity,
			Requested: req.Quantity,
		})
	}
}

// Increment returns stock to a part, used when an order is cancelled.
func (inventory) Increment(ctx context.Context, tx *gorm.DB, partID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock increment")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE parts
		SET stock_quantity = stock_quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, partID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "increment stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("part %s not found", partID))
	}
	return nil
}
