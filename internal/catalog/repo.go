package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
)

// Repository reads catalog rows and moves promotion usage counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPart(ctx context.Context, id uuid.UUID) (*models.Part, error)
	FindParts(ctx context.Context, ids []uuid.UUID) ([]models.Part, error)
	FindPromotionByCode(ctx context.Context, vendorID uuid.UUID, code string) (*models.Promotion, error)
	IncrementPromotionUsage(ctx context.Context, promotionID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a catalog repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPart(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&part).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) FindParts(ctx context.Context, ids []uuid.UUID) ([]models.Part, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var parts []models.Part
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

// FindPromotionByCode prefers a vendor-specific code over a marketplace-wide
// one with the same name. Codes compare case-insensitively.
func (r *repository) FindPromotionByCode(ctx context.Context, vendorID uuid.UUID, code string) (*models.Promotion, error) {
	var promo models.Promotion
	err := r.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		Where("vendor_id = ? OR vendor_id IS NULL", vendorID).
		Order("vendor_id IS NULL ASC").
		Take(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// IncrementPromotionUsage consumes one use of a promotion. It reports false
// when the usage limit has already been reached.
func (r *repository) IncrementPromotionUsage(ctx context.Context, promotionID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE promotions
		SET usage_count = usage_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)
	`, promotionID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
