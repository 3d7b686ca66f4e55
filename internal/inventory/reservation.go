package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/pkg/db/models"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
)

// ReservationRequest asks for qty units of one line. When VariantID is
// set the reservation runs against the variant's available quantity;
// without a variant it runs against the product's aggregate stock.
type ReservationRequest struct {
	LineRef   uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int
}

// ReservationResult reports the outcome per request. Reason is set
// only when Reserved is false.
type ReservationResult struct {
	LineRef   uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int
	Reserved  bool
	Reason    string
}

// lockKey gives each request a stable ordering key so concurrent
// placements touching the same rows cannot deadlock.
func (r ReservationRequest) lockKey() string {
	if r.VariantID != nil {
		return "v:" + r.VariantID.String()
	}
	return "p:" + r.ProductID.String()
}

// Reserve moves stock from available to reserved for each request.
// Requests are applied in ascending lock key order. The updates are
// conditional on sufficient availability, which keeps quantities from
// going negative under concurrency.
func Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) ([]ReservationResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	for _, req := range requests {
		if req.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if req.VariantID != nil && *req.VariantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id cannot be empty")
		}
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation qty must be positive")
		}
	}

	order := make([]int, len(requests))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ka, kb := requests[order[a]].lockKey(), requests[order[b]].lockKey()
		if ka == kb {
			return order[a] < order[b]
		}
		return ka < kb
	})

	results := make([]ReservationResult, len(requests))
	for _, idx := range order {
		req := requests[idx]
		res := ReservationResult{
			LineRef:   req.LineRef,
			ProductID: req.ProductID,
			VariantID: req.VariantID,
			Qty:       req.Qty,
		}

		var update *gorm.DB
		if req.VariantID != nil {
			update = tx.WithContext(ctx).Model(&models.ProductVariant{}).
				Where("id = ? AND available_qty >= ?", *req.VariantID, req.Qty).
				Updates(map[string]any{
					"available_qty": gorm.Expr("available_qty - ?", req.Qty),
					"reserved_qty":  gorm.Expr("reserved_qty + ?", req.Qty),
				})
		} else {
			update = tx.WithContext(ctx).Model(&models.Product{}).
				Where("id = ? AND stock_qty >= ?", req.ProductID, req.Qty).
				Update("stock_qty", gorm.Expr("stock_qty - ?", req.Qty))
		}
		if update.Error != nil {
			return nil, fmt.Errorf("reserve %s: %w", req.lockKey(), update.Error)
		}
		if update.RowsAffected == 0 {
			res.Reason = "insufficient stock"
		} else {
			res.Reserved = true
		}
		results[idx] = res
	}
	return results, nil
}

// Release returns reserved units to available stock. Used when an
// order is cancelled before shipping. Variant-less lines give the
// units back to the product aggregate.
func Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release qty must be positive")
	}

	if variantID == nil {
		return tx.WithContext(ctx).Model(&models.Product{}).
			Where("id = ?", productID).
			Update("stock_qty", gorm.Expr("stock_qty + ?", qty)).Error
	}

	update := tx.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("id = ? AND reserved_qty >= ?", *variantID, qty).
		Updates(map[string]any{
			"available_qty": gorm.Expr("available_qty + ?", qty),
			"reserved_qty":  gorm.Expr("reserved_qty - ?", qty),
		})
	if update.Error != nil {
		return fmt.Errorf("release variant %s: %w", variantID, update.Error)
	}
	if update.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeIntegrity, "reserved quantity below release amount")
	}
	return nil
}

// Consume burns reserved units once the goods have left the shop.
// Unlike Release it does not restore availability. Variant-less lines
// already left the product aggregate at reservation time, so there is
// nothing to burn.
func Consume(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "consume qty must be positive")
	}
	if variantID == nil {
		return nil
	}

	update := tx.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("id = ? AND reserved_qty >= ?", *variantID, qty).
		Updates(map[string]any{
			"reserved_qty": gorm.Expr("reserved_qty - ?", qty),
		})
	if update.Error != nil {
		return fmt.Errorf("consume variant %s: %w", variantID, update.Error)
	}
	if update.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeIntegrity, "reserved quantity below consume amount")
	}
	return nil
}

// RecomputeProductStock refreshes the product-level aggregate from
// its variants' available quantities. Only meaningful for products
// sold through variants; callers skip it for variant-less lines,
// whose stock_qty is maintained directly by Reserve and Release.
func RecomputeProductStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	return tx.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_qty", gorm.Expr(
			"(SELECT COALESCE(SUM(available_qty), 0) FROM product_variants WHERE product_id = ?)",
			productID,
		)).Error
}
