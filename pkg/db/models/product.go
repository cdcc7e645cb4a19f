package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the local catalog entry. Stock is only mutated inside the
// order reservation transaction; price/cost fields are derived by the
// catalog sync engine and are not independently settable there.
type Product struct {
	ID                 int64           `gorm:"column:id;primaryKey;autoIncrement"`
	DocumentID         string          `gorm:"column:document_id;uniqueIndex;not null"`
	Name               string          `gorm:"column:name;not null"`
	Slug               string          `gorm:"column:slug;uniqueIndex;not null"`
	Description        *string         `gorm:"column:description"`
	Price              decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	OriginalPrice      decimal.Decimal `gorm:"column:original_price;type:numeric(14,2);not null;default:0"`
	CostPrice          decimal.Decimal `gorm:"column:cost_price;type:numeric(14,2);not null;default:0"`
	DiscountPercentage int             `gorm:"column:discount_percentage;not null;default:0"`
	Stock              int             `gorm:"column:stock;not null;default:0"`
	IsActive           bool            `gorm:"column:is_active;not null;default:true"`
	// DropiID is the external supplier catalog reference; presence is the
	// sync-eligibility predicate.
	DropiID      *string        `gorm:"column:dropi_id;index"`
	MastershopID *string        `gorm:"column:mastershop_id;index"`
	SupplierID   *string        `gorm:"column:supplier_id;index"`
	SupplierSKU  *string        `gorm:"column:supplier_sku"`
	Images       []ProductImage `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
