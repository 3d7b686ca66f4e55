package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/pkg/db/models"
)

// Repository defines persistence for payment transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.PaymentTransaction, error)
	FindOpenForOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentTransaction, error)
	MarkPaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}
