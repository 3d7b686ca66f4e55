package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/internal/inventory"
	"github.com/storelinehq/storeline-backend/pkg/db/models"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

// PutItemInput sets one cart line to an absolute quantity.
type PutItemInput struct {
	CustomerID uuid.UUID
	ProductID  uuid.UUID
	VariantID  *uuid.UUID
	Qty        int
}

// Service defines the customer cart operations.
type Service interface {
	List(ctx context.Context, t *tenant.Tenant, customerID uuid.UUID) ([]models.CartItem, error)
	Put(ctx context.Context, t *tenant.Tenant, input PutItemInput) (*models.CartItem, error)
	Remove(ctx context.Context, t *tenant.Tenant, customerID, productID uuid.UUID, variantID *uuid.UUID) error
}

type service struct {
	repo      Repository
	inventory inventory.Repository
}

// NewService builds the cart service. The repositories are bound to
// each tenant's database per call.
func NewService(repo Repository, invRepo inventory.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if invRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, inventory: invRepo}, nil
}

func (s *service) List(ctx context.Context, t *tenant.Tenant, customerID uuid.UUID) ([]models.CartItem, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	return s.repo.WithTx(t.DB.Gorm()).ListForCustomer(ctx, customerID)
}

func (s *service) Put(ctx context.Context, t *tenant.Tenant, input PutItemInput) (*models.CartItem, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}

	var item *models.CartItem
	err := t.DB.WithTx(ctx, func(tx *gorm.DB) error {
		invRepo := s.inventory.WithTx(tx)
		products, err := invRepo.FindProducts(ctx, []uuid.UUID{input.ProductID})
		if err != nil {
			return err
		}
		if len(products) == 0 || !products[0].Active {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if input.VariantID != nil {
			variants, err := invRepo.FindVariants(ctx, []uuid.UUID{*input.VariantID})
			if err != nil {
				return err
			}
			if len(variants) == 0 || variants[0].ProductID != input.ProductID {
				return pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
			}
		}

		item = &models.CartItem{
			ID:         uuid.New(),
			CustomerID: input.CustomerID,
			ProductID:  input.ProductID,
			VariantID:  input.VariantID,
			Qty:        input.Qty,
		}
		return s.repo.WithTx(tx).Upsert(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) Remove(ctx context.Context, t *tenant.Tenant, customerID, productID uuid.UUID, variantID *uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	return s.repo.WithTx(t.DB.Gorm()).Delete(ctx, customerID, productID, variantID)
}
