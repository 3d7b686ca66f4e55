package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/pagination"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

// Service defines in-app notification operations.
type Service interface {
	Enqueue(ctx context.Context, tx *gorm.DB, n models.Notification) error
	List(ctx context.Context, t *tenant.Tenant, kind enums.RecipientKind, recipientID uuid.UUID, params pagination.Params) (*List, error)
	MarkRead(ctx context.Context, t *tenant.Tenant, id uuid.UUID, kind enums.RecipientKind, recipientID uuid.UUID) error
	UnreadCount(ctx context.Context, t *tenant.Tenant, kind enums.RecipientKind, recipientID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
}

// NewService builds the notifications service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &service{repo: repo}, nil
}

// Enqueue writes a notification inside the caller's transaction so it
// commits with the state change it announces.
func (s *service) Enqueue(ctx context.Context, tx *gorm.DB, n models.Notification) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if n.RecipientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification recipient required")
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return s.repo.WithTx(tx).Create(ctx, &n)
}

func (s *service) List(ctx context.Context, t *tenant.Tenant, kind enums.RecipientKind, recipientID uuid.UUID, params pagination.Params) (*List, error) {
	return s.repo.WithTx(t.DB.Gorm()).ListForRecipient(ctx, kind, recipientID, params)
}

func (s *service) MarkRead(ctx context.Context, t *tenant.Tenant, id uuid.UUID, kind enums.RecipientKind, recipientID uuid.UUID) error {
	ok, err := s.repo.WithTx(t.DB.Gorm()).MarkRead(ctx, id, kind, recipientID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) UnreadCount(ctx context.Context, t *tenant.Tenant, kind enums.RecipientKind, recipientID uuid.UUID) (int64, error) {
	return s.repo.WithTx(t.DB.Gorm()).UnreadCount(ctx, kind, recipientID)
}
