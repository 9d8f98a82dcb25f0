// Package deliveries keeps the courier record of DELIVERY orders in step
// with the order status.
package deliveries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
)

// ErrNoDelivery is returned when an order has no delivery record.
var ErrNoDelivery = errors.New("order has no delivery record")

// Service is the delivery-record collaborator used by the order state machine.
type Service interface {
	Create(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Delivery, error)
	SyncStatus(ctx context.Context, orderID uuid.UUID, orderStatus enums.OrderStatus) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the delivery collaborator.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// StatusFor maps an order status to the delivery status it implies. The
// second result is false for order statuses that leave the delivery alone.
func StatusFor(status enums.OrderStatus) (enums.DeliveryStatus, bool) {
	switch status {
	case enums.OrderStatusReadyForPickup:
		return enums.DeliveryStatusPending, true
	case enums.OrderStatusInTransit:
		return enums.DeliveryStatusInTransit, true
	case enums.OrderStatusDelivered:
		return enums.DeliveryStatusDelivered, true
	case enums.OrderStatusCancelled:
		return enums.DeliveryStatusCancelled, true
	}
	return "", false
}

func (s *service) Create(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Delivery, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for delivery create")
	}
	delivery := &models.Delivery{OrderID: orderID, Status: enums.DeliveryStatusPending}
	if err := s.repo.WithTx(tx).Create(ctx, delivery); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create delivery")
	}
	return delivery, nil
}

// SyncStatus mirrors orderStatus onto the delivery record. It runs after the
// order transition has committed, so a failure here leaves the two apart.
func (s *service) SyncStatus(ctx context.Context, orderID uuid.UUID, orderStatus enums.OrderStatus) error {
	target, ok := StatusFor(orderStatus)
	if !ok {
		return nil
	}
	rows, err := s.repo.UpdateStatus(ctx, orderID, target, s.now().UTC())
	if err != nil {
		return fmt.Errorf("sync delivery for order %s: %w", orderID, err)
	}
	if rows == 0 {
		return ErrNoDelivery
	}
	return nil
}
