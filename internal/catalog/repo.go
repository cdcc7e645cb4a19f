package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/mercaline/tienda-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Images").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByDocumentID(ctx context.Context, documentID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Images").
		Where("document_id = ?", documentID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListActive(ctx context.Context, limit, offset int) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Preload("Images").
		Where("is_active = ?", true).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ListSyncEligible(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Images").
		Where("dropi_id IS NOT NULL AND dropi_id <> ''").
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListImages(ctx context.Context, productID int64) ([]models.ProductImage, error) {
	var images []models.ProductImage
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Find(&images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (r *repository) DeleteImages(ctx context.Context, productID int64) error {
	return r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&models.ProductImage{}).Error
}

func (r *repository) CreateImage(ctx context.Context, image *models.ProductImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}
