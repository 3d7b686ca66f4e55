package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/pkg/db/models"
)

// Repository defines cart persistence. A cart line is unique per
// (customer, product, variant); the variant is nil for products sold
// without variants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error)
	Upsert(ctx context.Context, item *models.CartItem) error
	Delete(ctx context.Context, customerID, productID uuid.UUID, variantID *uuid.UUID) error
	DeleteForCustomerProducts(ctx context.Context, customerID uuid.UUID, productIDs []uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func lineScope(q *gorm.DB, customerID, productID uuid.UUID, variantID *uuid.UUID) *gorm.DB {
	q = q.Where("customer_id = ? AND product_id = ?", customerID, productID)
	if variantID == nil {
		return q.Where("variant_id IS NULL")
	}
	return q.Where("variant_id = ?", *variantID)
}

func (r *repository) Upsert(ctx context.Context, item *models.CartItem) error {
	existing := &models.CartItem{}
	err := lineScope(r.db.WithContext(ctx), item.CustomerID, item.ProductID, item.VariantID).
		First(existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(item).Error
	}
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(existing).
		Update("qty", item.Qty).Error; err != nil {
		return err
	}
	existing.Qty = item.Qty
	*item = *existing
	return nil
}

func (r *repository) Delete(ctx context.Context, customerID, productID uuid.UUID, variantID *uuid.UUID) error {
	return lineScope(r.db.WithContext(ctx), customerID, productID, variantID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) DeleteForCustomerProducts(ctx context.Context, customerID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("customer_id = ? AND product_id IN ?", customerID, productIDs).
		Delete(&models.CartItem{}).Error
}
