// Package reservation implements the stock reservation step of order
// creation. It must run inside the caller's transaction: every decrement
// either commits with the order or rolls back with it.
package reservation

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mercaline/tienda-backend/pkg/db/models"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
)

// StockRequest asks for qty units of one catalog product.
type StockRequest struct {
	ProductID int64
	Ref       string
	Qty       int
}

// ReserveStock validates and decrements stock for every request, locking
// each product row so two concurrent orders cannot both pass the check.
// Any missing product or shortfall fails the whole call; the caller's
// transaction rollback undoes prior decrements.
func ReserveStock(ctx context.Context, tx *gorm.DB, requests []StockRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}

	for _, req := range requests {
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("quantity must be positive for product %s", refLabel(req)))
		}

		var product models.Product
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, "id = ?", req.ProductID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("product %s not found", refLabel(req)))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product for reservation")
		}

		if product.Stock < req.Qty {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("insufficient stock for %s", product.Name)).
				WithDetails(map[string]any{
					"product":   refLabel(req),
					"available": product.Stock,
					"requested": req.Qty,
				})
		}

		result := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", product.ID).
			UpdateColumn("stock", gorm.Expr("stock - ?", req.Qty))
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "decrement stock")
		}
		if result.RowsAffected != 1 {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("stock update affected %d rows", result.RowsAffected))
		}
	}

	return nil
}

func refLabel(req StockRequest) string {
	if req.Ref != "" {
		return req.Ref
	}
	return fmt.Sprintf("#%d", req.ProductID)
}
