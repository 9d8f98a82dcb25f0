package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/haulmart-backend/api/middleware"
	internalorders "github.com/angelmondragon/haulmart-backend/internal/orders"
	"github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
)

type stubOrdersService struct {
	create func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
	get    func(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	update func(ctx context.Context, input internalorders.UpdateStatusInput) (*models.Order, error)
	cancel func(ctx context.Context, input internalorders.CancelOrderInput) (*models.Order, error)
}

func (s *stubOrdersService) CreateOrder(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	return s.create(ctx, input)
}

func (s *stubOrdersService) GetOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	return s.get(ctx, actor, orderID)
}

func (s *stubOrdersService) UpdateStatus(ctx context.Context, input internalorders.UpdateStatusInput) (*models.Order, error) {
	return s.update(ctx, input)
}

func (s *stubOrdersService) CancelOrder(ctx context.Context, input internalorders.CancelOrderInput) (*models.Order, error) {
	return s.cancel(ctx, input)
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:                 uuid.New(),
		OrderNumber:        "ORD-261017-Q7K2ZP",
		CustomerID:         uuid.New(),
		VendorID:           uuid.New(),
		OrderType:          enums.OrderTypeCollection,
		Status:             enums.OrderStatusReceived,
		PaymentStatus:      enums.PaymentStatusPending,
		PaymentMethod:      enums.PaymentMethodCard,
		Currency:           enums.CurrencyNGN,
		SubtotalCents:      500000,
		TaxCents:           37500,
		TotalCents:         537500,
		CommissionPercent:  decimal.NewFromInt(10),
		CommissionCents:    50000,
		VendorEarningCents: 450000,
		Items: []models.OrderItem{
			{PartID: uuid.New(), Name: "Brake pad set", Quantity: 2, UnitPriceCents: 250000, SubtotalCents: 500000},
		},
	}
}

func withActor(req *http.Request, actor auth.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func decodeData(t *testing.T, body []byte) OrderResponse {
	t.Helper()
	var envelope struct {
		Data OrderResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Data
}

func decodeErrorCode(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Error.Code
}

func TestCreateUsesActorAsCustomer(t *testing.T) {
	customer := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	vendorID := uuid.New()
	partID := uuid.New()
	var captured internalorders.CreateOrderInput
	svc := &stubOrdersService{
		create: func(_ context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
			captured = input
			order := sampleOrder()
			order.CustomerID = input.CustomerID
			return order, nil
		},
	}

	body := `{"vendor_id":"` + vendorID.String() + `","items":[{"part_id":"` + partID.String() + `","quantity":2}],"order_type":"COLLECTION","payment_method":"CARD"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), customer)
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, customer.UserID, captured.CustomerID)
	assert.Equal(t, vendorID, captured.VendorID)
	assert.Equal(t, enums.OrderTypeCollection, captured.OrderType)
	require.Len(t, captured.Items, 1)
	assert.Equal(t, partID, captured.Items[0].PartID)

	resp := decodeData(t, rec.Body.Bytes())
	assert.Equal(t, "ORD-261017-Q7K2ZP", resp.OrderNumber)
	assert.Equal(t, int64(537500), resp.TotalCents)
	assert.Equal(t, "10.00", resp.CommissionPercent)
	assert.Len(t, resp.Items, 1)
}

func TestCreateRejectsInvalidBody(t *testing.T) {
	svc := &stubOrdersService{
		create: func(context.Context, internalorders.CreateOrderInput) (*models.Order, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	customer := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}

	body := `{"vendor_id":"` + uuid.NewString() + `","items":[],"order_type":"SHIPPING","payment_method":"CARD"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), customer)
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decodeErrorCode(t, rec.Body.Bytes()))
}

func TestCreateRequiresActor(t *testing.T) {
	rec := httptest.NewRecorder()
	Create(&stubOrdersService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDetailMapsServiceErrors(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		get: func(_ context.Context, _ auth.Actor, id uuid.UUID) (*models.Order, error) {
			assert.Equal(t, orderID, id)
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor may not view this order")
		},
	}
	actor := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleDriver}
	req := withParam(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil), "orderId", orderID.String())
	req = withActor(req, actor)
	rec := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDetailRejectsMalformedID(t *testing.T) {
	actor := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	req := withParam(httptest.NewRequest(http.MethodGet, "/api/v1/orders/abc", nil), "orderId", "abc")
	req = withActor(req, actor)
	rec := httptest.NewRecorder()
	Detail(&stubOrdersService{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusPassesStatusAndNote(t *testing.T) {
	vendor := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleVendor}
	orderID := uuid.New()
	var captured internalorders.UpdateStatusInput
	svc := &stubOrdersService{
		update: func(_ context.Context, input internalorders.UpdateStatusInput) (*models.Order, error) {
			captured = input
			order := sampleOrder()
			order.Status = input.Status
			return order, nil
		},
	}

	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"READY_FOR_PICKUP","note":"  packed  "}`)), "orderId", orderID.String())
	req = withActor(req, vendor)
	rec := httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, orderID, captured.OrderID)
	assert.Equal(t, enums.OrderStatusReadyForPickup, captured.Status)
	assert.Equal(t, "packed", captured.Note)
	assert.Equal(t, vendor, captured.Actor)
	assert.Equal(t, enums.OrderStatusReadyForPickup, decodeData(t, rec.Body.Bytes()).Status)
}

func TestUpdateStatusConflictIs409(t *testing.T) {
	svc := &stubOrdersService{
		update: func(context.Context, internalorders.UpdateStatusInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from RECEIVED to DELIVERED")
		},
	}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"DELIVERED"}`)), "orderId", uuid.NewString())
	req = withActor(req, auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin})
	rec := httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeStateConflict), decodeErrorCode(t, rec.Body.Bytes()))
}

func TestCancelAcceptsEmptyReason(t *testing.T) {
	customer := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	var captured internalorders.CancelOrderInput
	svc := &stubOrdersService{
		cancel: func(_ context.Context, input internalorders.CancelOrderInput) (*models.Order, error) {
			captured = input
			order := sampleOrder()
			order.Status = enums.OrderStatusCancelled
			order.IsCancelled = true
			return order, nil
		},
	}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), "orderId", uuid.NewString())
	req = withActor(req, customer)
	rec := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, captured.Reason)
	assert.True(t, decodeData(t, rec.Body.Bytes()).IsCancelled)
}
