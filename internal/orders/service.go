package orders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/internal/audit"
	"github.com/angelmondragon/haulmart-backend/internal/catalog"
	"github.com/angelmondragon/haulmart-backend/internal/deliveries"
	"github.com/angelmondragon/haulmart-backend/internal/ledger"
	"github.com/angelmondragon/haulmart-backend/internal/pricing"
	"github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/geo"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
	"github.com/angelmondragon/haulmart-backend/pkg/metrics"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

const orderNumberAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type lowStockChecker interface {
	CheckAsync(ctx context.Context, partIDs []uuid.UUID)
}

// Service creates orders and drives them through the status machine.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	CancelOrder(ctx context.Context, input CancelOrderInput) (*models.Order, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Inventory  ledger.Inventory
	Earnings   ledger.Earnings
	Catalog    catalog.Repository
	Deliveries deliveries.Service
	Audit      audit.Service
	Outbox     outboxPublisher
	LowStock   lowStockChecker
	Pricing    pricing.Calculator
	Currency   enums.Currency
	Logger     *logger.Logger
	Metrics    *metrics.SettlementMetrics
	Clock      func() time.Time
}

type service struct {
	repo       Repository
	tx         txRunner
	inventory  ledger.Inventory
	earnings   ledger.Earnings
	catalog    catalog.Repository
	deliveries deliveries.Service
	audit      audit.Service
	outbox     outboxPublisher
	lowStock   lowStockChecker
	pricing    pricing.Calculator
	currency   enums.Currency
	logg       *logger.Logger
	metrics    *metrics.SettlementMetrics
	now        func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Earnings == nil {
		return nil, fmt.Errorf("earnings ledger required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Deliveries == nil {
		return nil, fmt.Errorf("deliveries service required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	currency := params.Currency
	if currency == "" {
		currency = enums.CurrencyNGN
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:       params.Repository,
		tx:         params.Tx,
		inventory:  params.Inventory,
		earnings:   params.Earnings,
		catalog:    params.Catalog,
		deliveries: params.Deliveries,
		audit:      params.Audit,
		outbox:     params.Outbox,
		lowStock:   params.LowStock,
		pricing:    params.Pricing,
		currency:   currency,
		logg:       params.Logger,
		metrics:    params.Metrics,
		now:        clock,
	}, nil
}

func validateCreateInput(input CreateOrderInput) ([]ItemInput, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for _, item := range input.Items {
		if item.PartID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	if !input.OrderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order type %q", input.OrderType))
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.OrderType == enums.OrderTypeDelivery && (input.AddressID == nil || *input.AddressID == uuid.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery orders require an address")
	}
	return mergeItems(input.Items), nil
}

// CreateOrder reserves stock, prices and persists the order in one unit. Any
// failure rolls every decrement back.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	items, err := validateCreateInput(input)
	if err != nil {
		return nil, err
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindCustomer(ctx, input.CustomerID); err != nil {
			return notFoundOr(err, "customer not found", "load customer")
		}
		vendor, err := repo.FindVendor(ctx, input.VendorID)
		if err != nil {
			return notFoundOr(err, "vendor not found", "load vendor")
		}
		if !vendor.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "vendor is not accepting orders")
		}

		var address *models.Address
		if input.OrderType == enums.OrderTypeDelivery {
			address, err = repo.FindAddress(ctx, *input.AddressID)
			if err != nil {
				return notFoundOr(err, "address not found", "load address")
			}
			if address.CustomerID != input.CustomerID {
				return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
		}

		lines := make([]pricing.Line, 0, len(items))
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			snap, err := s.inventory.Decrement(ctx, tx, ledger.StockRequest{
				PartID:   item.PartID,
				VendorID: vendor.ID,
				Quantity: item.Quantity,
			})
			if err != nil {
				return err
			}
			unit := pricing.UnitPrice(snap.PriceCents, snap.DiscountedPriceCents)
			lines = append(lines, pricing.Line{UnitPriceCents: unit, Quantity: item.Quantity})
			orderItems = append(orderItems, models.OrderItem{
				PartID:         snap.PartID,
				Name:           snap.Name,
				Quantity:       item.Quantity,
				UnitPriceCents: unit,
				SubtotalCents:  unit * int64(item.Quantity),
			})
		}

		var distance *float64
		if address != nil && vendor.HasCoordinates() && address.HasCoordinates() {
			distance = geo.Between(vendor.Latitude, vendor.Longitude, address.Latitude, address.Longitude)
		}

		promo, err := s.resolvePromotion(ctx, tx, vendor.ID, input.PromoCode)
		if err != nil {
			return err
		}

		totals, err := s.pricing.Quote(pricing.QuoteInput{
			Lines:            lines,
			OrderType:        input.OrderType,
			DistanceKm:       distance,
			Promotion:        promo,
			VendorID:         vendor.ID,
			VendorCommission: vendor.CommissionPercent,
			Now:              s.now(),
		})
		if err != nil {
			if errors.Is(err, pricing.ErrPromotionInvalid) {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "promotion code is not valid for this order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price order")
		}

		var promotionID *uuid.UUID
		if promo != nil && totals.DiscountCents > 0 {
			ok, err := s.catalog.WithTx(tx).IncrementPromotionUsage(ctx, promo.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume promotion")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "promotion usage limit reached")
			}
			promotionID = &promo.ID
		}

		number, err := s.nextOrderNumber(ctx, repo)
		if err != nil {
			return err
		}

		order := &models.Order{
			OrderNumber:        number,
			CustomerID:         input.CustomerID,
			VendorID:           vendor.ID,
			OrderType:          input.OrderType,
			SubtotalCents:      totals.SubtotalCents,
			DeliveryFeeCents:   totals.DeliveryFeeCents,
			TaxCents:           totals.TaxCents,
			DiscountCents:      totals.DiscountCents,
			TotalCents:         totals.TotalCents,
			CommissionPercent:  totals.CommissionPercent,
			CommissionCents:    totals.CommissionCents,
			VendorEarningCents: totals.VendorEarningCents,
			Currency:           s.currency,
			PaymentMethod:      input.PaymentMethod,
			PaymentStatus:      enums.PaymentStatusPending,
			Status:             enums.OrderStatusReceived,
			PromotionID:        promotionID,
			DistanceKm:         distance,
			Items:              orderItems,
		}
		if address != nil {
			order.AddressID = &address.ID
		}
		if input.Notes != nil {
			order.Notes = strings.TrimSpace(*input.Notes)
		}

		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		if order.OrderType == enums.OrderTypeDelivery {
			delivery, err := s.deliveries.Create(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			order.Delivery = delivery
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.NewActorRef(input.CustomerID, enums.ActorRoleCustomer),
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				VendorID:    order.VendorID,
				OrderType:   order.OrderType,
				TotalCents:  order.TotalCents,
				Currency:    order.Currency,
				ItemCount:   totals.ItemCount,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created")
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderCreated(string(created.OrderType))
	logCtx := s.logg.WithOrderID(ctx, created.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "order_number", created.OrderNumber), "order created")

	if s.lowStock != nil {
		partIDs := make([]uuid.UUID, 0, len(created.Items))
		for _, item := range created.Items {
			partIDs = append(partIDs, item.PartID)
		}
		s.lowStock.CheckAsync(logCtx, partIDs)
	}
	return created, nil
}

func (s *service) resolvePromotion(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, code *string) (*models.Promotion, error) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return nil, nil
	}
	promo, err := s.catalog.WithTx(tx).FindPromotionByCode(ctx, vendorID, *code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion code is not valid for this order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load promotion")
	}
	return promo, nil
}

func (s *service) nextOrderNumber(ctx context.Context, repo Repository) (string, error) {
	for i := 0; i < orderNumberAttempts; i++ {
		candidate := newOrderNumber(s.now())
		exists, err := repo.OrderNumberExists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check order number")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not allocate order number")
}

// newOrderNumber formats ORD-YYMMDD-XXXXXX with six random hex characters.
func newOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("060102"), suffix)
}

func (s *service) GetOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	if !canView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
	}
	return order, nil
}

// UpdateStatus advances an order one step. A request for the current status
// is a no-op.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Status))
	}
	if input.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the cancel operation to cancel an order")
	}

	var (
		from    enums.OrderStatus
		current *models.Order
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}
		if !canUpdateStatus(input.Actor, order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "actor may not update this order")
		}
		current = order
		from = order.Status
		if order.Status == input.Status {
			return nil
		}
		if !CanTransition(order.OrderType, order.Status, input.Status) {
			return transitionConflict(order, input.Status)
		}

		now := s.now().UTC()
		updates := map[string]any{}
		if input.Status == enums.OrderStatusDelivered || input.Status == enums.OrderStatusCollected {
			updates["completed_at"] = now
		}
		line := NoteLine(now, order.Status, input.Status, input.Actor, input.Note)
		ok, err := repo.TransitionStatus(ctx, order.ID, order.Status, input.Status, line, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		if input.Status == enums.OrderStatusDelivered {
			if err := s.creditDriver(ctx, tx, order, input.Actor); err != nil {
				return err
			}
		}

		if err := s.recordTransition(ctx, tx, order, input.Status, input.Actor, input.Note); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return current, nil
	}

	s.afterTransition(ctx, current, from, input.Status)
	return s.reload(ctx, current.ID)
}

// CancelOrder flips the order to CANCELLED and restores every line's stock
// in the same unit.
func (s *service) CancelOrder(ctx context.Context, input CancelOrderInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var (
		from    enums.OrderStatus
		current *models.Order
	)
	reason := strings.TrimSpace(input.Reason)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}
		if !canCancel(input.Actor, order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "actor may not cancel this order")
		}
		if !order.Status.IsCancelable() {
			return transitionConflict(order, enums.OrderStatusCancelled)
		}
		current = order
		from = order.Status

		now := s.now().UTC()
		updates := map[string]any{
			"is_cancelled": true,
			"cancelled_at": now,
		}
		if reason != "" {
			updates["cancellation_reason"] = reason
		}
		line := NoteLine(now, order.Status, enums.OrderStatusCancelled, input.Actor, reason)
		ok, err := repo.TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusCancelled, line, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		restock := slices.Clone(order.Items)
		slices.SortFunc(restock, func(a, b models.OrderItem) int {
			return bytes.Compare(a.PartID[:], b.PartID[:])
		})
		for _, item := range restock {
			if err := s.inventory.Increment(ctx, tx, item.PartID, item.Quantity); err != nil {
				return err
			}
		}

		if _, err := s.audit.LogAction(ctx, tx, audit.Entry{
			Action:      enums.AuditActionOrderCancelled,
			EntityType:  enums.AuditEntityOrder,
			EntityID:    order.ID,
			PerformedBy: actorID(input.Actor),
			ActorRole:   input.Actor.Role,
			Details: types.AuditDetails{
				FromStatus: string(order.Status),
				ToStatus:   string(enums.OrderStatusCancelled),
				Reason:     reason,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "audit cancel")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderCanceledEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				VendorID:   order.VendorID,
				Reason:     reason,
				CanceledAt: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order canceled")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, current, from, enums.OrderStatusCancelled)
	return s.reload(ctx, current.ID)
}

// creditDriver pays the delivery fee to the assigned driver. DELIVERED is
// terminal, so this runs at most once per order.
func (s *service) creditDriver(ctx context.Context, tx *gorm.DB, order *models.Order, actor auth.Actor) error {
	if order.Delivery == nil || order.Delivery.DriverID == nil || order.DeliveryFeeCents <= 0 {
		return nil
	}
	driverID := *order.Delivery.DriverID
	if err := s.earnings.Credit(ctx, tx, ledger.DriverAccount(driverID), order.DeliveryFeeCents); err != nil {
		return err
	}
	amount := order.DeliveryFeeCents
	_, err := s.audit.LogAction(ctx, tx, audit.Entry{
		Action:      enums.AuditActionDriverEarningCredit,
		EntityType:  enums.AuditEntityDelivery,
		EntityID:    order.Delivery.ID,
		PerformedBy: actorID(actor),
		ActorRole:   actor.Role,
		Details: types.AuditDetails{
			AmountCents: &amount,
			OrderID:     order.ID.String(),
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "audit driver credit")
	}
	return nil
}

func (s *service) recordTransition(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, actor auth.Actor, note string) error {
	if _, err := s.audit.LogAction(ctx, tx, audit.Entry{
		Action:      enums.AuditActionOrderStatusChanged,
		EntityType:  enums.AuditEntityOrder,
		EntityID:    order.ID,
		PerformedBy: actorID(actor),
		ActorRole:   actor.Role,
		Details: types.AuditDetails{
			FromStatus: string(order.Status),
			ToStatus:   string(to),
			Note:       strings.TrimSpace(note),
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "audit status change")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			FromStatus:  order.Status,
			ToStatus:    to,
			ChangedBy:   actor.UserID,
			ActorRole:   actor.Role,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit status change")
	}
	return nil
}

// afterTransition syncs the delivery record once the order change has
// committed. A failed sync is reported, never rolled back.
func (s *service) afterTransition(ctx context.Context, order *models.Order, from, to enums.OrderStatus) {
	s.metrics.IncTransition(string(from), string(to))
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"from_status": from,
		"to_status":   to,
	})
	s.logg.Info(logCtx, "order status changed")

	if order.OrderType != enums.OrderTypeDelivery {
		return
	}
	if _, ok := deliveries.StatusFor(to); !ok {
		return
	}
	if err := s.deliveries.SyncStatus(ctx, order.ID, to); err != nil {
		s.metrics.IncDeliverySyncFailure(string(to))
		s.logg.Error(logCtx, "delivery status out of sync with order", err)
	}
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "reload order")
	}
	return order, nil
}

func transitionConflict(order *models.Order, to enums.OrderStatus) error {
	return pkgerrors.New(
		pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot move order from %s to %s", order.Status, to),
	).WithDetails(map[string]any{
		"from":    order.Status,
		"to":      to,
		"allowed": NextStatuses(order.OrderType, order.Status),
	})
}

func canView(actor auth.Actor, order *models.Order) bool {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return true
	case enums.ActorRoleCustomer:
		return actor.UserID == order.CustomerID
	case enums.ActorRoleVendor:
		return actor.UserID == order.VendorID
	case enums.ActorRoleDriver:
		return isAssignedDriver(actor, order)
	}
	return false
}

func canUpdateStatus(actor auth.Actor, order *models.Order) bool {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return true
	case enums.ActorRoleVendor:
		return actor.UserID == order.VendorID
	case enums.ActorRoleDriver:
		return isAssignedDriver(actor, order)
	}
	return false
}

func canCancel(actor auth.Actor, order *models.Order) bool {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return true
	case enums.ActorRoleCustomer:
		return actor.UserID == order.CustomerID
	case enums.ActorRoleVendor:
		return actor.UserID == order.VendorID
	}
	return false
}

func isAssignedDriver(actor auth.Actor, order *models.Order) bool {
	return order.Delivery != nil && order.Delivery.DriverID != nil && *order.Delivery.DriverID == actor.UserID
}

func actorID(actor auth.Actor) *uuid.UUID {
	if actor.UserID == uuid.Nil {
		return nil
	}
	id := actor.UserID
	return &id
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	return outbox.NewActorRef(actor.UserID, actor.Role)
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
