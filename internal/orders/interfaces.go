package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

// Repository defines persistence operations for orders and the accounts
// they reference.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	FindVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindAddress(ctx context.Context, id uuid.UUID) (*models.Address, error)
	OrderNumberExists(ctx context.Context, number string) (bool, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, noteLine string, updates map[string]any) (bool, error)
}
