package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

// Repository persists payout requests and their PAYOUT transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateRequest(ctx context.Context, req *models.PayoutRequest) error
	FindRequest(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	HasPendingRequest(ctx context.Context, payeeID uuid.UUID, payeeType enums.PayeeType) (bool, error)
	TransitionRequest(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, to enums.PayoutStatus, updates map[string]any) (bool, error)
	LinkTransaction(ctx context.Context, requestID, transactionID uuid.UUID) error

	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	FindTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)
	SettleTransaction(ctx context.Context, id uuid.UUID, to enums.TransactionStatus, updates map[string]any) (bool, error)
	UpdateTransactionMetadata(ctx context.Context, id uuid.UUID, metadata types.TransactionMetadata) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the payouts repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRequest(ctx context.Context, req *models.PayoutRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) FindRequest(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var req models.PayoutRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) HasPendingRequest(ctx context.Context, payeeID uuid.UUID, payeeType enums.PayeeType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("payee_id = ? AND payee_type = ? AND status = ?", payeeID, payeeType, enums.PayoutStatusPending).
		Count(&count).Error
	return count > 0, err
}

// TransitionRequest moves a request only while it is still in from.
func (r *repository) TransitionRequest(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, to enums.PayoutStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) LinkTransaction(ctx context.Context, requestID, transactionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("id = ?", requestID).
		Update("transaction_id", transactionID).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("reference = ? AND type = ?", reference, enums.TransactionTypePayout).
		Take(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// SettleTransaction finalizes a PENDING payout transaction. False means a
// concurrent settlement already did.
func (r *repository) SettleTransaction(ctx context.Context, id uuid.UUID, to enums.TransactionStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, enums.TransactionStatusPending).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdateTransactionMetadata(ctx context.Context, id uuid.UUID, metadata types.TransactionMetadata) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{ID: id}).
		Select("metadata").
		Updates(&models.Transaction{Metadata: metadata}).Error
}
