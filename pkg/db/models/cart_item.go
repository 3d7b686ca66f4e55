package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product line in a customer's cart. VariantID is nil
// when the product is sold without variants.
type CartItem struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;index;uniqueIndex:idx_cart_customer_line"`
	ProductID  uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_customer_line"`
	VariantID  *uuid.UUID `gorm:"column:variant_id;type:uuid;uniqueIndex:idx_cart_customer_line"`
	Qty        int        `gorm:"column:qty;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
