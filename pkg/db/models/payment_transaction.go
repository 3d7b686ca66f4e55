package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/pkg/enums"
)

// PaymentTransaction mirrors one gateway order for an order. Exactly
// one transaction may reach paid per order.
type PaymentTransaction struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	GatewayOrderID   string                  `gorm:"column:gateway_order_id;type:text;not null;uniqueIndex"`
	GatewayPaymentID *string                 `gorm:"column:gateway_payment_id;type:text"`
	Status           enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'created'"`
	AmountCents      int64                   `gorm:"column:amount_cents;not null"`
	Currency         string                  `gorm:"column:currency;type:text;not null"`
	FailureReason    *string                 `gorm:"column:failure_reason;type:text"`
	VerifiedAt       *time.Time              `gorm:"column:verified_at"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
