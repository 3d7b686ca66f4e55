package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/pkg/enums"
	"github.com/storelinehq/storeline-backend/pkg/types"
)

// Order is the per-shop order aggregate. The courier fields are
// filled in once a shipment is booked and as courier webhooks arrive.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number            string              `gorm:"column:number;type:text;not null;uniqueIndex"`
	ShopID            uuid.UUID           `gorm:"column:shop_id;type:uuid;not null;index"`
	CustomerID        uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	Status            enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Currency          string              `gorm:"column:currency;type:text;not null"`
	SubtotalCents     int64               `gorm:"column:subtotal_cents;not null"`
	DiscountCents     int64               `gorm:"column:discount_cents;not null;default:0"`
	TaxCents          int64               `gorm:"column:tax_cents;not null;default:0"`
	DeliveryFeeCents  int64               `gorm:"column:delivery_fee_cents;not null;default:0"`
	TotalCents        int64               `gorm:"column:total_cents;not null"`
	CouponCode        *string             `gorm:"column:coupon_code;type:text"`
	ShippingAddress   types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	StatusHistory     types.StatusHistory `gorm:"column:status_history;type:jsonb;serializer:json"`
	Notes             *string             `gorm:"column:notes;type:text"`
	InvoiceURL        *string             `gorm:"column:invoice_url;type:text"`
	CourierOrderRef   *string             `gorm:"column:courier_order_ref;type:text"`
	CourierRiderName  *string             `gorm:"column:courier_rider_name;type:text"`
	CourierRiderPhone *string             `gorm:"column:courier_rider_phone;type:text"`
	PlacedAt          *time.Time          `gorm:"column:placed_at"`
	DeliveredAt       *time.Time          `gorm:"column:delivered_at"`
	CancelledAt       *time.Time          `gorm:"column:cancelled_at"`
	Items             []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
