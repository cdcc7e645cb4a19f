package orders

import (
	"context"

	"gorm.io/gorm"

	pkgdb "github.com/mercaline/tienda-backend/pkg/db"
	"github.com/mercaline/tienda-backend/pkg/db/models"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if pkgdb.IsUniqueViolation(err, "orders_document_id_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order document id already exists")
		}
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByDocumentID(ctx context.Context, documentID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("document_id = ?", documentID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByDropiOrderID(ctx context.Context, dropiOrderID string) (*models.Order, error) {
	var order models.Order
	// dropi_order_id stores a comma-joined list when the order split into
	// several shipments; match the ref against any element.
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("(',' || dropi_order_id || ',') LIKE ('%,' || ? || ',%')", dropiOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("transaction_id = ?", transactionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC")

	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}
