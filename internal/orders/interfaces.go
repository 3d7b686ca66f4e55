package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	"github.com/storelinehq/storeline-backend/pkg/pagination"
)

// Repository defines persistence operations for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByIDForShop(ctx context.Context, orderID, shopID uuid.UUID) (*models.Order, error)
	FindByIDForCustomer(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
	LineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error)
	ListForShop(ctx context.Context, shopID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	MarkPaidIfUnpaid(ctx context.Context, orderID uuid.UUID) (bool, error)
}
