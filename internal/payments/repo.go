package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/db"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

// Repository persists payment transactions, refunds and the order payment
// fields they drive.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	MarkOrderPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error)
	AdvanceOrder(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, noteLine string) (bool, error)
	SetOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error

	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	FindTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)
	FindSuccessfulPayment(ctx context.Context, orderID uuid.UUID) (*models.Transaction, error)
	ListStalePayments(ctx context.Context, createdAfter, createdBefore time.Time, limit int) ([]models.Transaction, error)
	UpdateTransactionMetadata(ctx context.Context, id uuid.UUID, metadata types.TransactionMetadata) error
	CompleteTransaction(ctx context.Context, id uuid.UUID, from []enums.TransactionStatus, to enums.TransactionStatus, updates map[string]any) (bool, error)

	CreateRefund(ctx context.Context, refund *models.Refund) error
	FindRefund(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	SumRefunds(ctx context.Context, orderID uuid.UUID, statuses ...enums.RefundStatus) (int64, error)
	ResolveRefund(ctx context.Context, id uuid.UUID, to enums.RefundStatus, updates map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the payments repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// LockOrder touches the order row so concurrent refund checks serialize,
// then reads it back.
func (r *repository) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	res := r.db.WithContext(ctx).Exec("UPDATE orders SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindOrder(ctx, id)
}

func (r *repository) FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// MarkOrderPaid flips payment_status to PAID once. It reports false when the
// order was already paid.
func (r *repository) MarkOrderPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"paid_at":        paidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AdvanceOrder(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, noteLine string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]any{
			"status": to,
			"notes":  gorm.Expr("CASE WHEN notes = '' THEN ? ELSE notes || ? END", noteLine, "\n"+noteLine),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", status).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).Take(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindSuccessfulPayment(ctx context.Context, orderID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND type = ? AND status = ?", orderID, enums.TransactionTypePayment, enums.TransactionStatusSuccessful).
		Order("completed_at DESC").
		Take(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListStalePayments returns PENDING payment transactions created inside the
// window, oldest first.
func (r *repository) ListStalePayments(ctx context.Context, createdAfter, createdBefore time.Time, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Where("type = ? AND status = ?", enums.TransactionTypePayment, enums.TransactionStatusPending).
		Where("created_at > ? AND created_at <= ?", createdAfter, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

func (r *repository) UpdateTransactionMetadata(ctx context.Context, id uuid.UUID, metadata types.TransactionMetadata) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{ID: id}).
		Select("metadata").
		Updates(&models.Transaction{Metadata: metadata}).Error
}

// CompleteTransaction moves a transaction to a final status while it is still
// in one of the from statuses. False means another delivery got there first.
func (r *repository) CompleteTransaction(ctx context.Context, id uuid.UUID, from []enums.TransactionStatus, to enums.TransactionStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateRefund(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) FindRefund(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) SumRefunds(ctx context.Context, orderID uuid.UUID, statuses ...enums.RefundStatus) (int64, error) {
	var total struct{ Sum int64 }
	err := r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Select("COALESCE(SUM(amount_cents), 0) AS sum").
		Where("order_id = ? AND status IN ?", orderID, statuses).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total.Sum, nil
}

// ResolveRefund finalizes a PENDING refund. False means it was already
// resolved.
func (r *repository) ResolveRefund(ctx context.Context, id uuid.UUID, to enums.RefundStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("id = ? AND status = ?", id, enums.RefundStatusPending).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func isNotFound(err error) bool {
	return db.IsNotFound(err)
}
