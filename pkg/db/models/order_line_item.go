package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/pkg/types"
)

// OrderLineItem records what was sold, frozen at placement time.
// VariantID is nil for products sold without variants.
type OrderLineItem struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID            `gorm:"column:variant_id;type:uuid"`
	Snapshot       types.ProductSnapshot `gorm:"column:snapshot;type:jsonb;serializer:json"`
	Qty            int                   `gorm:"column:qty;not null"`
	UnitPriceCents int64                 `gorm:"column:unit_price_cents;not null"`
	DiscountCents  int64                 `gorm:"column:discount_cents;not null;default:0"`
	TaxCents       int64                 `gorm:"column:tax_cents;not null;default:0"`
	TotalCents     int64                 `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
