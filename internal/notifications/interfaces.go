package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	"github.com/storelinehq/storeline-backend/pkg/pagination"
)

// Repository defines notification persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, n *models.Notification) error
	ListForRecipient(ctx context.Context, kind enums.RecipientKind, recipientID uuid.UUID, params pagination.Params) (*List, error)
	MarkRead(ctx context.Context, id uuid.UUID, kind enums.RecipientKind, recipientID uuid.UUID) (bool, error)
	UnreadCount(ctx context.Context, kind enums.RecipientKind, recipientID uuid.UUID) (int64, error)
}
