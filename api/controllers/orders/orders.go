package orders

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/haulmart-backend/api/middleware"
	"github.com/angelmondragon/haulmart-backend/api/responses"
	"github.com/angelmondragon/haulmart-backend/api/validators"
	internalorders "github.com/angelmondragon/haulmart-backend/internal/orders"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
)

const maxNoteLength = 500

type createOrderItem struct {
	PartID   uuid.UUID `json:"part_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"gt=0"`
}

type createOrderRequest struct {
	VendorID      uuid.UUID         `json:"vendor_id" validate:"required"`
	Items         []createOrderItem `json:"items" validate:"required,min=1,dive"`
	AddressID     *uuid.UUID        `json:"address_id,omitempty"`
	OrderType     string            `json:"order_type" validate:"required,oneof=DELIVERY COLLECTION"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=CARD BANK_TRANSFER USSD CASH_ON_DELIVERY"`
	PromoCode     *string           `json:"promo_code,omitempty"`
	Notes         *string           `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note,omitempty"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// Create places an order for the authenticated customer.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]internalorders.ItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, internalorders.ItemInput{PartID: item.PartID, Quantity: item.Quantity})
		}

		order, err := svc.CreateOrder(r.Context(), internalorders.CreateOrderInput{
			CustomerID:    actor.UserID,
			VendorID:      payload.VendorID,
			Items:         items,
			AddressID:     payload.AddressID,
			OrderType:     enums.OrderType(payload.OrderType),
			PaymentMethod: enums.PaymentMethod(payload.PaymentMethod),
			PromoCode:     payload.PromoCode,
			Notes:         payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, NewOrderResponse(order))
	}
}

// Detail returns an order to any party of it.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewOrderResponse(order))
	}
}

// UpdateStatus advances an order one step on its fulfilment path.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateStatus(r.Context(), internalorders.UpdateStatusInput{
			OrderID: orderID,
			Status:  enums.OrderStatus(payload.Status),
			Actor:   actor,
			Note:    validators.SanitizeString(payload.Note, maxNoteLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewOrderResponse(order))
	}
}

// Cancel cancels an order and releases its reserved stock.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelOrderRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelOrder(r.Context(), internalorders.CancelOrderInput{
			OrderID: orderID,
			Actor:   actor,
			Reason:  validators.SanitizeString(payload.Reason, maxNoteLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewOrderResponse(order))
	}
}

type orderItemResponse struct {
	PartID         uuid.UUID `json:"part_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	SubtotalCents  int64     `json:"subtotal_cents"`
}

type deliveryResponse struct {
	Status      enums.DeliveryStatus `json:"status"`
	DriverID    *uuid.UUID           `json:"driver_id,omitempty"`
	PickedUpAt  *time.Time           `json:"picked_up_at,omitempty"`
	DeliveredAt *time.Time           `json:"delivered_at,omitempty"`
}

// OrderResponse is the wire form of an order.
type OrderResponse struct {
	ID                 uuid.UUID           `json:"id"`
	OrderNumber        string              `json:"order_number"`
	CustomerID         uuid.UUID           `json:"customer_id"`
	VendorID           uuid.UUID           `json:"vendor_id"`
	OrderType          enums.OrderType     `json:"order_type"`
	Status             enums.OrderStatus   `json:"status"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	Currency           enums.Currency      `json:"currency"`
	SubtotalCents      int64               `json:"subtotal_cents"`
	DeliveryFeeCents   int64               `json:"delivery_fee_cents"`
	TaxCents           int64               `json:"tax_cents"`
	DiscountCents      int64               `json:"discount_cents"`
	TotalCents         int64               `json:"total_cents"`
	CommissionPercent  string              `json:"commission_percent"`
	CommissionCents    int64               `json:"commission_cents"`
	VendorEarningCents int64               `json:"vendor_earning_cents"`
	IsCancelled        bool                `json:"is_cancelled"`
	CancellationReason *string             `json:"cancellation_reason,omitempty"`
	DistanceKm         *float64            `json:"distance_km,omitempty"`
	Notes              string              `json:"notes,omitempty"`
	Items              []orderItemResponse `json:"items"`
	Delivery           *deliveryResponse   `json:"delivery,omitempty"`
	PaidAt             *time.Time          `json:"paid_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func NewOrderResponse(order *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:                 order.ID,
		OrderNumber:        order.OrderNumber,
		CustomerID:         order.CustomerID,
		VendorID:           order.VendorID,
		OrderType:          order.OrderType,
		Status:             order.Status,
		PaymentStatus:      order.PaymentStatus,
		PaymentMethod:      order.PaymentMethod,
		Currency:           order.Currency,
		SubtotalCents:      order.SubtotalCents,
		DeliveryFeeCents:   order.DeliveryFeeCents,
		TaxCents:           order.TaxCents,
		DiscountCents:      order.DiscountCents,
		TotalCents:         order.TotalCents,
		CommissionPercent:  order.CommissionPercent.StringFixed(2),
		CommissionCents:    order.CommissionCents,
		VendorEarningCents: order.VendorEarningCents,
		IsCancelled:        order.IsCancelled,
		CancellationReason: order.CancellationReason,
		DistanceKm:         order.DistanceKm,
		Notes:              order.Notes,
		Items:              make([]orderItemResponse, 0, len(order.Items)),
		PaidAt:             order.PaidAt,
		CancelledAt:        order.CancelledAt,
		CompletedAt:        order.CompletedAt,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			PartID:         item.PartID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			SubtotalCents:  item.SubtotalCents,
		})
	}
	if order.Delivery != nil {
		resp.Delivery = &deliveryResponse{
			Status:      order.Delivery.Status,
			DriverID:    order.Delivery.DriverID,
			PickedUpAt:  order.Delivery.PickedUpAt,
			DeliveredAt: order.Delivery.DeliveredAt,
		}
	}
	return resp
}
