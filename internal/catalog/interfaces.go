package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/mercaline/tienda-backend/pkg/db/models"
)

// Repository defines persistence operations for products and their images.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	FindByDocumentID(ctx context.Context, documentID string) (*models.Product, error)
	ListActive(ctx context.Context, limit, offset int) ([]models.Product, error)
	ListSyncEligible(ctx context.Context) ([]models.Product, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	ListImages(ctx context.Context, productID int64) ([]models.ProductImage, error)
	DeleteImages(ctx context.Context, productID int64) error
	CreateImage(ctx context.Context, image *models.ProductImage) error
}
