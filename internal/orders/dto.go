package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	"github.com/storelinehq/storeline-backend/pkg/types"
)

// LineItemInput is one requested order line. VariantID is nil for
// products sold without variants.
type LineItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int
}

// PlaceOrderInput carries everything placement needs.
type PlaceOrderInput struct {
	CustomerID      uuid.UUID
	ShopID          uuid.UUID
	Items           []LineItemInput
	PaymentMethod   enums.PaymentMethod
	ShippingAddress types.Address
	CouponCode      *string
	Notes           *string
	ActorUserID     uuid.UUID
}

// PlacedOrder is the placement result. Warnings carry post-commit
// side effect failures that did not roll back the order.
type PlacedOrder struct {
	Order    *models.Order
	Warnings []string
}

// UpdateStatusInput is a vendor- or system-driven lifecycle change.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	ShopID      uuid.UUID
	NextStatus  enums.OrderStatus
	Note        *string
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// CancelInput cancels an order on behalf of the customer.
type CancelInput struct {
	OrderID     uuid.UUID
	CustomerID  uuid.UUID
	Reason      *string
	ActorUserID uuid.UUID
}

// ListFilters restrict order listings. Status values outside the
// known lifecycle are rejected before reaching SQL.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// Summary is the compact row returned by list endpoints.
type Summary struct {
	ID            uuid.UUID           `json:"id"`
	Number        string              `json:"number"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TotalCents    int64               `json:"total_cents"`
	TotalItems    int                 `json:"total_items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// List wraps a page of summaries plus the next page cursor.
type List struct {
	Orders     []Summary `json:"orders"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// PlacedEvent is the payload of the order.placed outbox event.
type PlacedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	Number        string              `json:"number"`
	ShopID        uuid.UUID           `json:"shop_id"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	TotalCents    int64               `json:"total_cents"`
	Currency      string              `json:"currency"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	ItemCount     int                 `json:"item_count"`
}

// StatusChangedEvent is the payload of order.status_changed events.
type StatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	Number     string            `json:"number"`
	ShopID     uuid.UUID         `json:"shop_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
}
