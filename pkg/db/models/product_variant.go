package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant carries the sellable unit. Available and reserved
// quantities are adjusted together under row locks during placement.
type ProductVariant struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Name         string    `gorm:"column:name;type:text;not null"`
	SKU          string    `gorm:"column:sku;type:text;not null;uniqueIndex"`
	PriceCents   int64     `gorm:"column:price_cents;not null"`
	AvailableQty int       `gorm:"column:available_qty;not null;default:0"`
	ReservedQty  int       `gorm:"column:reserved_qty;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
