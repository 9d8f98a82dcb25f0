package payments

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/internal/audit"
	"github.com/angelmondragon/haulmart-backend/internal/ledger"
	"github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/db"
	"github.com/angelmondragon/haulmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/gateway"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox"
)

type fakeGateway struct {
	mu           sync.Mutex
	verification gateway.Verification
	verifyErr    error
	refund       gateway.RefundResult
	refundErr    error
	verifyCalls  int
	refundCalls  int
	checkouts    []gateway.CheckoutRequest
}

func (g *fakeGateway) InitializeCheckout(_ context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkouts = append(g.checkouts, req)
	return &gateway.CheckoutSession{Reference: req.Reference, CheckoutURL: "https://checkout.test/" + req.Reference}, nil
}

func (g *fakeGateway) VerifyByReference(_ context.Context, reference string) (*gateway.Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	v := g.verification
	v.Reference = reference
	return &v, nil
}

func (g *fakeGateway) Refund(_ context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	r := g.refund
	return &r, nil
}

type fixture struct {
	client   *db.Client
	gw       *fakeGateway
	svc      Service
	customer *models.Customer
	vendor   *models.Vendor
	order    *models.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)

	customer := &models.Customer{FullName: "Ada Obi", Email: "ada@example.com"}
	vendor := &models.Vendor{BusinessName: "Ikeja Auto Parts", IsActive: true}
	dbtest.Create(t, client, customer, vendor)

	order := &models.Order{
		OrderNumber:        "ORD-260501-ABC123",
		CustomerID:         customer.ID,
		VendorID:           vendor.ID,
		OrderType:          enums.OrderTypeCollection,
		SubtotalCents:      500000,
		TaxCents:           37500,
		TotalCents:         537500,
		CommissionPercent:  decimal.NewFromInt(10),
		CommissionCents:    50000,
		VendorEarningCents: 450000,
		Currency:           enums.CurrencyNGN,
		PaymentMethod:      enums.PaymentMethodCard,
		PaymentStatus:      enums.PaymentStatusPending,
		Status:             enums.OrderStatusReceived,
	}
	dbtest.Create(t, client, order)

	gw := &fakeGateway{verification: gateway.Verification{
		GatewayReference: "GW-1",
		Status:           gateway.StatusSuccessful,
		RawStatus:        "successful",
		AmountCents:      order.TotalCents,
		Currency:         "NGN",
	}, refund: gateway.RefundResult{GatewayReference: "RF-1", Status: gateway.StatusSuccessful, RawStatus: "completed"}}

	f := &fixture{client: client, gw: gw, customer: customer, vendor: vendor, order: order}
	f.svc = f.newService(t, NewRepository(client.DB()))
	return f
}

func (f *fixture) newService(t *testing.T, repo Repository) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	auditSvc, err := audit.NewService(audit.NewRepository(f.client.DB()))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repository:  repo,
		Tx:          f.client,
		Gateway:     f.gw,
		Earnings:    ledger.NewEarnings(),
		Audit:       auditSvc,
		Outbox:      outbox.NewService(outbox.NewRepository(f.client.DB()), logg),
		Logger:      logg,
		RedirectURL: "https://haulmart.test/payments/return",
	})
	require.NoError(t, err)
	return svc
}

// staleOrderRepo serves order reads from a snapshot taken before a
// concurrent cancel committed.
type staleOrderRepo struct {
	Repository
	snapshot models.Order
}

func (r *staleOrderRepo) WithTx(tx *gorm.DB) Repository {
	return &staleOrderRepo{Repository: r.Repository.WithTx(tx), snapshot: r.snapshot}
}

func (r *staleOrderRepo) FindOrder(context.Context, uuid.UUID) (*models.Order, error) {
	order := r.snapshot
	return &order, nil
}

func (f *fixture) customerActor() auth.Actor {
	return auth.Actor{UserID: f.customer.ID, Role: enums.ActorRoleCustomer}
}

func (f *fixture) admin() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
}

func (f *fixture) reloadOrder(t *testing.T) *models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, f.client.DB().Where("id = ?", f.order.ID).Take(&order).Error)
	return &order
}

func (f *fixture) vendorEarnings(t *testing.T) int64 {
	t.Helper()
	var vendor models.Vendor
	require.NoError(t, f.client.DB().Where("id = ?", f.vendor.ID).Take(&vendor).Error)
	return vendor.TotalEarningsCents
}

func (f *fixture) countRows(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.client.DB().Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func (f *fixture) pay(t *testing.T, reference string) *models.Transaction {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Reference: reference, Actor: f.customerActor()})
	require.NoError(t, err)
	txn, err := f.svc.VerifyPayment(ctx, VerifyPaymentInput{Reference: reference, Actor: auth.System()})
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusSuccessful, txn.Status)
	return txn
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestInitializePaymentCreatesPendingTransaction(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.InitializePayment(context.Background(), InitializePaymentInput{OrderID: f.order.ID, Actor: f.customerActor()})
	require.NoError(t, err)

	txn := res.Transaction
	assert.True(t, strings.HasPrefix(txn.Reference, "PAY-ORD-260501-ABC123-"))
	assert.Equal(t, enums.TransactionStatusPending, txn.Status)
	assert.Equal(t, f.order.TotalCents, txn.AmountCents)
	assert.Equal(t, "https://checkout.test/"+txn.Reference, res.CheckoutURL)
	assert.False(t, res.Reused)

	require.Len(t, f.gw.checkouts, 1)
	assert.Equal(t, "ada@example.com", f.gw.checkouts[0].CustomerEmail)
	assert.Equal(t, "https://haulmart.test/payments/return", f.gw.checkouts[0].RedirectURL)

	var stored models.Transaction
	require.NoError(t, f.client.DB().Where("id = ?", txn.ID).Take(&stored).Error)
	assert.Equal(t, res.CheckoutURL, stored.Metadata.CheckoutURL)
}

func TestInitializePaymentReusesPendingReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := InitializePaymentInput{OrderID: f.order.ID, Reference: "PAY-123", Actor: f.customerActor()}

	first, err := f.svc.InitializePayment(ctx, input)
	require.NoError(t, err)
	second, err := f.svc.InitializePayment(ctx, input)
	require.NoError(t, err)

	assert.True(t, second.Reused)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
	assert.Equal(t, first.CheckoutURL, second.CheckoutURL)
	assert.Len(t, f.gw.checkouts, 1)
	assert.Equal(t, int64(1), f.countRows(t, &models.Transaction{}, "reference = ?", "PAY-123"))
}

func TestInitializePaymentRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, AmountCents: 100, Actor: f.customerActor()})
	requireCode(t, err, pkgerrors.CodeValidation)

	stranger := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	_, err = f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Actor: stranger})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: uuid.New(), Actor: f.customerActor()})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Method: enums.PaymentMethodCashOnDelivery, Actor: f.customerActor()})
	requireCode(t, err, pkgerrors.CodeValidation)

	f.pay(t, "PAY-123")
	_, err = f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Actor: f.customerActor()})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestVerifyPaymentCreditsVendorOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Reference: "PAY-123", Actor: f.customerActor()})
	require.NoError(t, err)

	first, err := f.svc.VerifyPayment(ctx, VerifyPaymentInput{Reference: "PAY-123", Actor: auth.System()})
	require.NoError(t, err)
	second, err := f.svc.VerifyPayment(ctx, VerifyPaymentInput{Reference: "PAY-123", Actor: auth.System()})
	require.NoError(t, err)

	assert.Equal(t, enums.TransactionStatusSuccessful, first.Status)
	assert.Equal(t, enums.TransactionStatusSuccessful, second.Status)
	require.NotNil(t, first.GatewayReference)
	assert.Equal(t, "GW-1", *first.GatewayReference)
	assert.Equal(t, 1, f.gw.verifyCalls)

	assert.Equal(t, int64(450000), f.vendorEarnings(t))
	order := f.reloadOrder(t)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusProcessing, order.Status)
	assert.NotNil(t, order.PaidAt)
	assert.Contains(t, order.Notes, "RECEIVED -> PROCESSING by SYSTEM: payment confirmed")

	assert.Equal(t, int64(1), f.countRows(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderPaid))
	assert.Equal(t, int64(1), f.countRows(t, &models.AuditLog{}, "action = ?", enums.AuditActionPaymentVerified))
}

func TestVerifyPaymentConcurrentDeliveriesCreditOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Reference: "PAY-123", Actor: f.customerActor()})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.VerifyPayment(ctx, VerifyPaymentInput{Reference: "PAY-123", Actor: auth.System()})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(450000), f.vendorEarnings(t))
	assert.Equal(t, int64(1), f.countRows(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderPaid))
}

func TestVerifyPaymentFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Reference: "PAY-123", Actor: f.customerActor()})
	require.NoError(t, err)

	f.gw.verification.Status = gateway.StatusFailed
	f.gw.verification.RawStatus = "DECLINED"

	txn, err := f.svc.VerifyPayment(ctx, VerifyPaymentInput{Reference: "PAY-123", Actor: auth.System()})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusFailed, txn.Status)
	assert.Equal(t, "gateway reported declined", txn.Metadata.FailureReason)

	assert.Zero(t, f.vendorEarnings(t))
	assert.Equal(t, enums.PaymentStatusPending, f.reloadOrder(t).PaymentStatus)
	assert.Equal(t, int64(1), f.countRows(t, &models.OutboxEvent{}, "event_type = ?", enums.EventPaymentFailed))

	// FAILED is final: a later delivery neither asks the gateway again nor
	// credits the vendor.
	f.gw.verification.Status = gateway.StatusSuccessful
	f.gw.verification.RawStatus = "successful"
	txn, err = f.svc.VerifyPayment(ctx, VerifyPaymentInput{TransactionID: txn.ID, Actor: auth.System()})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusFailed, txn.Status)
	assert.Equal(t, 1, f.gw.verifyCalls)
	assert.Zero(t, f.vendorEarnings(t))
	assert.Equal(t, enums.PaymentStatusPending, f.reloadOrder(t).PaymentStatus)
	assert.Zero(t, f.countRows(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderPaid))

	// The customer can still pay with a fresh attempt.
	retry, err := f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Actor: f.customerActor()})
	require.NoError(t, err)
	assert.NotEqual(t, txn.ID, retry.Transaction.ID)
	assert.Equal(t, enums.TransactionStatusPending, retry.Transaction.Status)
}

func TestVerifyPaymentPendingLeavesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Reference: "PAY-123", Actor: f.customerActor()})
	require.NoError(t, err)
	f.gw.verification.Status = gateway.StatusPending

	txn, err := f.svc.VerifyPayment(ctx, VerifyPaymentInput{Reference: "PAY-123", Actor: f.customerActor()})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusPending, txn.Status)
	assert.Equal(t, enums.PaymentStatusPending, f.reloadOrder(t).PaymentStatus)
}

func TestVerifyPaymentGatewayErrorIsUpstream(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Reference: "PAY-123", Actor: f.customerActor()})
	require.NoError(t, err)
	f.gw.verifyErr = errors.New("connection reset")

	_, err = f.svc.VerifyPayment(ctx, VerifyPaymentInput{Reference: "PAY-123", Actor: auth.System()})
	requireCode(t, err, pkgerrors.CodeUpstream)
}

func TestVerifyPaymentAfterCancelDoesNotCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Reference: "PAY-123", Actor: f.customerActor()})
	require.NoError(t, err)
	require.NoError(t, f.client.DB().Model(&models.Order{}).Where("id = ?", f.order.ID).
		Updates(map[string]any{"status": enums.OrderStatusCancelled, "is_cancelled": true}).Error)

	_, err = f.svc.VerifyPayment(ctx, VerifyPaymentInput{Reference: "PAY-123", Actor: auth.System()})
	require.NoError(t, err)

	assert.Zero(t, f.vendorEarnings(t))
	assert.Equal(t, enums.PaymentStatusPaid, f.reloadOrder(t).PaymentStatus)
	assert.Equal(t, int64(1), f.countRows(t, &models.AuditLog{}, "action = ?", enums.AuditActionPaymentAfterCancel))
}

func TestVerifyPaymentDecidesOnLockedOrderRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Reference: "PAY-123", Actor: f.customerActor()})
	require.NoError(t, err)

	svc := f.newService(t, &staleOrderRepo{Repository: NewRepository(f.client.DB()), snapshot: *f.reloadOrder(t)})
	require.NoError(t, f.client.DB().Model(&models.Order{}).Where("id = ?", f.order.ID).
		Updates(map[string]any{"status": enums.OrderStatusCancelled, "is_cancelled": true}).Error)

	txn, err := svc.VerifyPayment(ctx, VerifyPaymentInput{Reference: "PAY-123", Actor: auth.System()})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusSuccessful, txn.Status)

	order := f.reloadOrder(t)
	assert.Zero(t, f.vendorEarnings(t))
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, int64(1), f.countRows(t, &models.AuditLog{}, "action = ?", enums.AuditActionPaymentAfterCancel))
	assert.Zero(t, f.countRows(t, &models.AuditLog{}, "action = ?", enums.AuditActionPaymentVerified))
}

func TestVerifyPaymentAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.InitializePayment(ctx, InitializePaymentInput{OrderID: f.order.ID, Reference: "PAY-123", Actor: f.customerActor()})
	require.NoError(t, err)

	stranger := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	_, err = f.svc.VerifyPayment(ctx, VerifyPaymentInput{Reference: "PAY-123", Actor: stranger})
	requireCode(t, err, pkgerrors.CodeForbidden)

	vendor := auth.Actor{UserID: f.vendor.ID, Role: enums.ActorRoleVendor}
	_, err = f.svc.VerifyPayment(ctx, VerifyPaymentInput{Reference: "PAY-123", Actor: vendor})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.VerifyPayment(ctx, VerifyPaymentInput{Reference: "PAY-missing", Actor: auth.System()})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestRefundPartialThenFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pay(t, "PAY-123")

	refund, err := f.svc.RequestRefund(ctx, RequestRefundInput{OrderID: f.order.ID, AmountCents: 137500, Reason: "one pad cracked", Actor: f.customerActor()})
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusPending, refund.Status)

	processed, err := f.svc.ProcessRefund(ctx, ProcessRefundInput{RefundID: refund.ID, Action: enums.ReviewActionApprove, Actor: f.admin()})
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusProcessed, processed.Status)
	require.NotNil(t, processed.GatewayReference)
	assert.Equal(t, "RF-1", *processed.GatewayReference)
	assert.Equal(t, enums.PaymentStatusPartiallyRefunded, f.reloadOrder(t).PaymentStatus)

	rest, err := f.svc.RequestRefund(ctx, RequestRefundInput{OrderID: f.order.ID, AmountCents: 400000, Reason: "returned", Actor: f.customerActor()})
	require.NoError(t, err)
	_, err = f.svc.ProcessRefund(ctx, ProcessRefundInput{RefundID: rest.ID, Action: enums.ReviewActionApprove, Actor: f.admin()})
	require.NoError(t, err)

	order := f.reloadOrder(t)
	assert.Equal(t, enums.PaymentStatusRefunded, order.PaymentStatus)
	assert.Equal(t, int64(537500), order.TotalCents)
	assert.Equal(t, int64(2), f.countRows(t, &models.OutboxEvent{}, "event_type = ?", enums.EventRefundProcessed))
}

func TestRequestRefundLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestRefund(ctx, RequestRefundInput{OrderID: f.order.ID, AmountCents: 1000, Reason: "early", Actor: f.customerActor()})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	f.pay(t, "PAY-123")

	_, err = f.svc.RequestRefund(ctx, RequestRefundInput{OrderID: f.order.ID, AmountCents: 537501, Reason: "too much", Actor: f.customerActor()})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.RequestRefund(ctx, RequestRefundInput{OrderID: f.order.ID, AmountCents: 1000, Reason: " ", Actor: f.customerActor()})
	requireCode(t, err, pkgerrors.CodeValidation)

	stranger := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	_, err = f.svc.RequestRefund(ctx, RequestRefundInput{OrderID: f.order.ID, AmountCents: 1000, Reason: "not mine", Actor: stranger})
	requireCode(t, err, pkgerrors.CodeForbidden)

	// Pending refunds count against the ceiling.
	_, err = f.svc.RequestRefund(ctx, RequestRefundInput{OrderID: f.order.ID, AmountCents: 500000, Reason: "returned", Actor: f.customerActor()})
	require.NoError(t, err)
	_, err = f.svc.RequestRefund(ctx, RequestRefundInput{OrderID: f.order.ID, AmountCents: 40000, Reason: "again", Actor: f.customerActor()})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestProcessRefundRejectAndRepeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pay(t, "PAY-123")

	refund, err := f.svc.RequestRefund(ctx, RequestRefundInput{OrderID: f.order.ID, AmountCents: 1000, Reason: "changed mind", Actor: f.customerActor()})
	require.NoError(t, err)

	_, err = f.svc.ProcessRefund(ctx, ProcessRefundInput{RefundID: refund.ID, Action: enums.ReviewActionReject, Actor: f.customerActor()})
	requireCode(t, err, pkgerrors.CodeForbidden)

	rejected, err := f.svc.ProcessRefund(ctx, ProcessRefundInput{RefundID: refund.ID, Action: enums.ReviewActionReject, Actor: f.admin(), Notes: "outside policy"})
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusRejected, rejected.Status)
	require.NotNil(t, rejected.AdminNotes)
	assert.Equal(t, "outside policy", *rejected.AdminNotes)
	assert.Zero(t, f.gw.refundCalls)
	assert.Equal(t, enums.PaymentStatusPaid, f.reloadOrder(t).PaymentStatus)

	_, err = f.svc.ProcessRefund(ctx, ProcessRefundInput{RefundID: refund.ID, Action: enums.ReviewActionApprove, Actor: f.admin()})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestProcessRefundGatewayFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pay(t, "PAY-123")
	f.gw.refundErr = errors.New("insufficient merchant balance")

	refund, err := f.svc.RequestRefund(ctx, RequestRefundInput{OrderID: f.order.ID, AmountCents: 1000, Reason: "damaged", Actor: f.customerActor()})
	require.NoError(t, err)

	failed, err := f.svc.ProcessRefund(ctx, ProcessRefundInput{RefundID: refund.ID, Action: enums.ReviewActionApprove, Actor: f.admin()})
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusFailed, failed.Status)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, "insufficient merchant balance", *failed.FailureReason)
	assert.Equal(t, enums.PaymentStatusPaid, f.reloadOrder(t).PaymentStatus)

	// A failed refund frees its amount.
	_, err = f.svc.RequestRefund(ctx, RequestRefundInput{OrderID: f.order.ID, AmountCents: 537500, Reason: "full return", Actor: f.customerActor()})
	require.NoError(t, err)
}

func TestRepositoryListStalePayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewRepository(f.client.DB())
	now := time.Now().UTC()

	seed := func(reference string, typ enums.TransactionType, status enums.TransactionStatus, age time.Duration) {
		txn := &models.Transaction{Reference: reference, Type: typ, Status: status, AmountCents: 1000, Currency: enums.CurrencyNGN, OrderID: &f.order.ID}
		require.NoError(t, repo.CreateTransaction(ctx, txn))
		require.NoError(t, f.client.DB().Model(&models.Transaction{}).Where("id = ?", txn.ID).UpdateColumn("created_at", now.Add(-age)).Error)
	}
	seed("PAY-STALE-1", enums.TransactionTypePayment, enums.TransactionStatusPending, 2*time.Hour)
	seed("PAY-STALE-2", enums.TransactionTypePayment, enums.TransactionStatusPending, time.Hour)
	seed("PAY-FRESH", enums.TransactionTypePayment, enums.TransactionStatusPending, time.Minute)
	seed("PAY-ANCIENT", enums.TransactionTypePayment, enums.TransactionStatusPending, 10*24*time.Hour)
	seed("PAY-DONE", enums.TransactionTypePayment, enums.TransactionStatusSuccessful, 2*time.Hour)
	seed("PO-PENDING", enums.TransactionTypePayout, enums.TransactionStatusPending, 2*time.Hour)

	txns, err := repo.ListStalePayments(ctx, now.Add(-72*time.Hour), now.Add(-15*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "PAY-STALE-1", txns[0].Reference)
	assert.Equal(t, "PAY-STALE-2", txns[1].Reference)

	txns, err = repo.ListStalePayments(ctx, now.Add(-72*time.Hour), now.Add(-15*time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, txns, 1)
}
