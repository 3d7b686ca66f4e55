package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry. For products sold with variants,
// StockQty is an aggregate over the variants' available quantities and
// is recomputed whenever a variant quantity changes. For products sold
// without variants, StockQty and PriceCents are authoritative.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID      uuid.UUID        `gorm:"column:shop_id;type:uuid;not null;index"`
	Title       string           `gorm:"column:title;type:text;not null"`
	Description *string          `gorm:"column:description;type:text"`
	Category    string           `gorm:"column:category;type:text;not null"`
	ImageURL    *string          `gorm:"column:image_url;type:text"`
	PriceCents  int64            `gorm:"column:price_cents;not null;default:0"`
	TaxRateBps  int64            `gorm:"column:tax_rate_bps;not null;default:0"`
	StockQty    int              `gorm:"column:stock_qty;not null;default:0"`
	Active      bool             `gorm:"column:active;not null;default:true"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
