package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// LowStockChecker raises low_stock_detected events for parts whose stock
// fell to or below their threshold.
type LowStockChecker struct {
	repo             Repository
	tx               txRunner
	outbox           outboxPublisher
	logg             *logger.Logger
	defaultThreshold int
	enabled          bool
}

// LowStockParams wires a LowStockChecker.
type LowStockParams struct {
	Repository       Repository
	Tx               txRunner
	Outbox           outboxPublisher
	Logger           *logger.Logger
	DefaultThreshold int
	Enabled          bool
}

// NewLowStockChecker validates dependencies and builds a checker.
func NewLowStockChecker(params LowStockParams) (*LowStockChecker, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LowStockChecker{
		repo:             params.Repository,
		tx:               params.Tx,
		outbox:           params.Outbox,
		logg:             params.Logger,
		defaultThreshold: params.DefaultThreshold,
		enabled:          params.Enabled,
	}, nil
}

// Check inspects partIDs and returns how many were flagged.
func (c *LowStockChecker) Check(ctx context.Context, partIDs []uuid.UUID) (int, error) {
	if !c.enabled || len(partIDs) == 0 {
		return 0, nil
	}

	flagged := 0
	err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		parts, err := c.repo.WithTx(tx).FindParts(ctx, partIDs)
		if err != nil {
			return err
		}
		for _, part := range parts {
			threshold := c.defaultThreshold
			if part.LowStockThreshold != nil {
				threshold = *part.LowStockThreshold
			}
			if part.StockQuantity > threshold {
				continue
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventLowStockDetected,
				AggregateType: enums.AggregatePart,
				AggregateID:   part.ID,
				Data: payloads.LowStockDetectedEvent{
					PartID:        part.ID,
					VendorID:      part.VendorID,
					Name:          part.Name,
					StockQuantity: part.StockQuantity,
					Threshold:     threshold,
				},
			}
			if err := c.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
			flagged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return flagged, nil
}

// CheckAsync runs Check detached from the request lifetime. Failures are
// only logged; the order that triggered the check has already committed.
func (c *LowStockChecker) CheckAsync(ctx context.Context, partIDs []uuid.UUID) {
	if c == nil || !c.enabled || len(partIDs) == 0 {
		return
	}
	ids := append([]uuid.UUID(nil), partIDs...)
	detached := context.WithoutCancel(ctx)
	go func() {
		flagged, err := c.Check(detached, ids)
		if err != nil {
			c.logg.Error(detached, "low stock check failed", err)
			return
		}
		if flagged > 0 {
			c.logg.Info(c.logg.WithField(detached, "flagged_parts", flagged), "low stock detected")
		}
	}()
}
