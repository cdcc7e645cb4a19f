package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/mercaline/tienda-backend/pkg/db/models"
)

// Repository defines persistence operations for orders and line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	FindByDocumentID(ctx context.Context, documentID string) (*models.Order, error)
	FindByDropiOrderID(ctx context.Context, dropiOrderID string) (*models.Order, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Order, error)
	List(ctx context.Context, filters ListFilters) ([]models.Order, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
}
