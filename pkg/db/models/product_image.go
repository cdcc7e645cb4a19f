package models

import "time"

// ProductImage is media owned exclusively by one product. Catalog sync
// replaces the full set rather than appending, to avoid duplicate
// accumulation across runs.
type ProductImage struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID  int64     `gorm:"column:product_id;not null;index"`
	ObjectName string    `gorm:"column:object_name;not null"`
	URL        string    `gorm:"column:url;not null"`
	SourceURL  *string   `gorm:"column:source_url"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
