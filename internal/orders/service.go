package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/internal/cart"
	"github.com/storelinehq/storeline-backend/internal/inventory"
	"github.com/storelinehq/storeline-backend/internal/pricing"
	dbpkg "github.com/storelinehq/storeline-backend/pkg/db"
	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/metrics"
	"github.com/storelinehq/storeline-backend/pkg/outbox"
	"github.com/storelinehq/storeline-backend/pkg/pagination"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
	"github.com/storelinehq/storeline-backend/pkg/types"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notifier queues an in-app notification inside the caller's
// transaction.
type Notifier interface {
	Enqueue(ctx context.Context, tx *gorm.DB, n models.Notification) error
}

// CouponResolver turns a coupon code into a concrete discount.
type CouponResolver interface {
	Resolve(ctx context.Context, t *tenant.Tenant, code string) (*pricing.Coupon, error)
}

// ShipmentBooker registers a shipped order with the courier partner.
type ShipmentBooker interface {
	Book(ctx context.Context, t *tenant.Tenant, order *models.Order) (string, error)
}

// InvoiceGenerator renders and stores the order invoice, returning
// its URL.
type InvoiceGenerator interface {
	Generate(ctx context.Context, t *tenant.Tenant, order *models.Order) (string, error)
}

// Actor identifies who drives a lifecycle change.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// Service defines the order placement and lifecycle operations.
type Service interface {
	PlaceOrder(ctx context.Context, t *tenant.Tenant, input PlaceOrderInput) (*PlacedOrder, error)
	GetForCustomer(ctx context.Context, t *tenant.Tenant, orderID, customerID uuid.UUID) (*models.Order, error)
	GetForShop(ctx context.Context, t *tenant.Tenant, orderID, shopID uuid.UUID) (*models.Order, error)
	ListForCustomer(ctx context.Context, t *tenant.Tenant, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error)
	ListForShop(ctx context.Context, t *tenant.Tenant, shopID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error)
	UpdateStatus(ctx context.Context, t *tenant.Tenant, input UpdateStatusInput) (*models.Order, []string, error)
	Cancel(ctx context.Context, t *tenant.Tenant, input CancelInput) (*models.Order, error)
	Transition(ctx context.Context, t *tenant.Tenant, orderID uuid.UUID, next enums.OrderStatus, actor Actor, note *string) (*models.Order, error)
	TransitionInTx(ctx context.Context, tx *gorm.DB, t *tenant.Tenant, orderID uuid.UUID, next enums.OrderStatus, actor Actor, note *string) (*models.Order, error)
}

type service struct {
	repo      Repository
	cart      cart.Repository
	inventory inventory.Repository
	outbox    outboxPublisher
	notifier  Notifier
	coupons   CouponResolver
	shipments ShipmentBooker
	invoices  InvoiceGenerator
	metrics   *metrics.OrderMetrics
}

// Options carries the optional service collaborators.
type Options struct {
	Notifier  Notifier
	Coupons   CouponResolver
	Shipments ShipmentBooker
	Invoices  InvoiceGenerator
	Metrics   *metrics.OrderMetrics
}

// NewService builds the orders service. The repositories are bound to
// each tenant's database per call.
func NewService(repo Repository, cartRepo cart.Repository, invRepo inventory.Repository, outboxSvc outboxPublisher, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if invRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		cart:      cartRepo,
		inventory: invRepo,
		outbox:    outboxSvc,
		notifier:  opts.Notifier,
		coupons:   opts.Coupons,
		shipments: opts.Shipments,
		invoices:  opts.Invoices,
		metrics:   opts.Metrics,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, t *tenant.Tenant, input PlaceOrderInput) (*PlacedOrder, error) {
	start := time.Now()
	order, productIDs, err := s.placeOrderTx(ctx, t, input)
	if err != nil {
		reason := "internal"
		if typed := pkgerrors.As(err); typed != nil {
			reason = string(typed.Code())
		}
		s.metrics.IncPlaceFailed(t.ID, reason)
		return nil, err
	}

	placed := &PlacedOrder{Order: order}

	// The order is committed. Side effects from here must not undo it;
	// failures surface as warnings instead.
	if err := s.cart.WithTx(t.DB.Gorm()).DeleteForCustomerProducts(ctx, input.CustomerID, productIDs); err != nil {
		placed.Warnings = append(placed.Warnings, "cart could not be cleared")
	}
	if s.invoices != nil {
		url, err := s.invoices.Generate(ctx, t, order)
		if err != nil {
			placed.Warnings = append(placed.Warnings, "invoice generation failed")
		} else if url != "" {
			if err := s.repo.WithTx(t.DB.Gorm()).UpdateOrder(ctx, order.ID, map[string]any{"invoice_url": url}); err != nil {
				placed.Warnings = append(placed.Warnings, "invoice url could not be saved")
			} else {
				order.InvoiceURL = &url
			}
		}
	}

	s.metrics.IncPlaced(t.ID)
	s.metrics.ObservePlaceDuration(t.ID, time.Since(start))
	return placed, nil
}

func (s *service) placeOrderTx(ctx context.Context, t *tenant.Tenant, input PlaceOrderInput) (*models.Order, []uuid.UUID, error) {
	if input.CustomerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if input.ShopID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	if len(input.Items) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if item.VariantID != nil && *item.VariantID == uuid.Nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "item variant id cannot be empty")
		}
		if item.Qty <= 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "item qty must be positive").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
	}
	if !input.PaymentMethod.Valid() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if input.ShippingAddress.Empty() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}

	var coupon *pricing.Coupon
	if input.CouponCode != nil && *input.CouponCode != "" {
		if s.coupons == nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "coupons are not enabled")
		}
		resolved, err := s.coupons.Resolve(ctx, t, *input.CouponCode)
		if err != nil {
			return nil, nil, err
		}
		coupon = resolved
	}

	var order *models.Order
	var orderedProductIDs []uuid.UUID

	err := t.DB.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invRepo := s.inventory.WithTx(tx)

		shop, err := repo.FindShop(ctx, input.ShopID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
			}
			return err
		}
		if !shop.Active {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shop is not accepting orders")
		}

		productIDs := make([]uuid.UUID, 0, len(input.Items))
		variantIDs := make([]uuid.UUID, 0, len(input.Items))
		for _, item := range input.Items {
			productIDs = append(productIDs, item.ProductID)
			if item.VariantID != nil {
				variantIDs = append(variantIDs, *item.VariantID)
			}
		}
		products, err := invRepo.FindProducts(ctx, productIDs)
		if err != nil {
			return err
		}
		productsByID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			productsByID[p.ID] = p
		}
		variantsByID := make(map[uuid.UUID]models.ProductVariant, len(variantIDs))
		if len(variantIDs) > 0 {
			variants, err := invRepo.FindVariants(ctx, variantIDs)
			if err != nil {
				return err
			}
			for _, v := range variants {
				variantsByID[v.ID] = v
			}
		}

		type pendingLine struct {
			item    LineItemInput
			product models.Product
			variant *models.ProductVariant
		}
		pending := make([]pendingLine, 0, len(input.Items))
		for _, item := range input.Items {
			product, ok := productsByID[item.ProductID]
			if !ok || !product.Active {
				return pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
					WithDetails(map[string]any{"product_id": item.ProductID})
			}
			if product.ShopID != input.ShopID {
				return pkgerrors.New(pkgerrors.CodeValidation, "product is sold by a different shop").
					WithDetails(map[string]any{"product_id": item.ProductID})
			}
			line := pendingLine{item: item, product: product}
			if item.VariantID != nil {
				variant, ok := variantsByID[*item.VariantID]
				if !ok || variant.ProductID != product.ID {
					return pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product").
						WithDetails(map[string]any{"product_id": item.ProductID, "variant_id": *item.VariantID})
				}
				v := variant
				line.variant = &v
			}
			pending = append(pending, line)
		}

		// Line IDs are minted up front so reservation failures can be
		// traced back to the requested line.
		lineIDs := make([]uuid.UUID, len(pending))
		requests := make([]inventory.ReservationRequest, 0, len(pending))
		for i, line := range pending {
			lineIDs[i] = uuid.New()
			requests = append(requests, inventory.ReservationRequest{
				LineRef:   lineIDs[i],
				ProductID: line.product.ID,
				VariantID: line.item.VariantID,
				Qty:       line.item.Qty,
			})
		}
		results, err := inventory.Reserve(ctx, tx, requests)
		if err != nil {
			return err
		}
		var failures []map[string]any
		for _, res := range results {
			if !res.Reserved {
				failures = append(failures, map[string]any{
					"product_id": res.ProductID,
					"variant_id": res.VariantID,
					"qty":        res.Qty,
					"reason":     res.Reason,
				})
			}
		}
		if len(failures) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]any{"items": failures})
		}

		priceLines := make([]pricing.LineInput, 0, len(pending))
		for _, line := range pending {
			unitPrice := line.product.PriceCents
			variantID := uuid.Nil
			if line.variant != nil {
				unitPrice = line.variant.PriceCents
				variantID = line.variant.ID
			}
			priceLines = append(priceLines, pricing.LineInput{
				VariantID:      variantID,
				Qty:            line.item.Qty,
				UnitPriceCents: unitPrice,
				TaxRateBps:     line.product.TaxRateBps,
			})
		}
		quote, err := pricing.Compute(priceLines, coupon, 0)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		history := types.StatusHistory{}.Append(types.StatusChange{
			To:        enums.OrderPending,
			ActorRole: enums.RoleCustomer,
			ActorID:   input.ActorUserID.String(),
			At:        now,
		})
		order = &models.Order{
			ID:               uuid.New(),
			Number:           NewOrderNumber(now),
			ShopID:           input.ShopID,
			CustomerID:       input.CustomerID,
			Status:           enums.OrderPending,
			PaymentStatus:    enums.PaymentUnpaid,
			PaymentMethod:    input.PaymentMethod,
			Currency:         t.Currency,
			SubtotalCents:    quote.SubtotalCents,
			DiscountCents:    quote.DiscountCents,
			TaxCents:         quote.TaxCents,
			DeliveryFeeCents: quote.DeliveryFeeCents,
			TotalCents:       quote.TotalCents,
			CouponCode:       input.CouponCode,
			ShippingAddress:  input.ShippingAddress,
			StatusHistory:    history,
			Notes:            input.Notes,
			PlacedAt:         &now,
		}
		// Order numbers are random; a collision gets one retry. The
		// failed insert aborts the transaction on PostgreSQL, so the
		// retry has to roll back to a savepoint first.
		if err := tx.SavePoint("order_insert").Error; err != nil {
			return err
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			if !dbpkg.IsUniqueViolation(err) {
				return err
			}
			if err := tx.RollbackTo("order_insert").Error; err != nil {
				return err
			}
			order.Number = NewOrderNumber(time.Now().UTC())
			if _, retryErr := repo.CreateOrder(ctx, order); retryErr != nil {
				return retryErr
			}
		}

		items := make([]models.OrderLineItem, 0, len(pending))
		for i, line := range pending {
			lq := quote.Lines[i]
			snapshot := types.ProductSnapshot{
				ProductID:  line.product.ID.String(),
				Title:      line.product.Title,
				UnitPrice:  lq.UnitPriceCents,
				TaxRateBps: line.product.TaxRateBps,
			}
			if line.variant != nil {
				snapshot.VariantID = line.variant.ID.String()
				snapshot.VariantName = line.variant.Name
				snapshot.SKU = line.variant.SKU
			}
			items = append(items, models.OrderLineItem{
				ID:             lineIDs[i],
				OrderID:        order.ID,
				ProductID:      line.product.ID,
				VariantID:      line.item.VariantID,
				Snapshot:       snapshot,
				Qty:            line.item.Qty,
				UnitPriceCents: lq.UnitPriceCents,
				DiscountCents:  lq.DiscountCents,
				TaxCents:       lq.TaxCents,
				TotalCents:     lq.TotalCents,
			})
			orderedProductIDs = append(orderedProductIDs, line.product.ID)
		}
		if err := repo.CreateLineItems(ctx, items); err != nil {
			return err
		}
		order.Items = items

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			TenantID:      t.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: enums.RoleCustomer},
			Version:       1,
			Data: PlacedEvent{
				OrderID:       order.ID,
				Number:        order.Number,
				ShopID:        order.ShopID,
				CustomerID:    order.CustomerID,
				TotalCents:    order.TotalCents,
				Currency:      order.Currency,
				PaymentMethod: order.PaymentMethod,
				ItemCount:     len(items),
			},
		}); err != nil {
			return err
		}

		if s.notifier != nil {
			if err := s.notifier.Enqueue(ctx, tx, models.Notification{
				RecipientKind: enums.RecipientShop,
				RecipientID:   shop.ID,
				Kind:          enums.NotificationOrderPlaced,
				Title:         "New order " + order.Number,
				Body:          fmt.Sprintf("Order %s was placed for %d items.", order.Number, len(items)),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, orderedProductIDs, nil
}

func (s *service) GetForCustomer(ctx context.Context, t *tenant.Tenant, orderID, customerID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.WithTx(t.DB.Gorm()).FindByIDForCustomer(ctx, orderID, customerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) GetForShop(ctx context.Context, t *tenant.Tenant, orderID, shopID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.WithTx(t.DB.Gorm()).FindByIDForShop(ctx, orderID, shopID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) ListForCustomer(ctx context.Context, t *tenant.Tenant, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	return s.repo.WithTx(t.DB.Gorm()).ListForCustomer(ctx, customerID, params, filters)
}

func (s *service) ListForShop(ctx context.Context, t *tenant.Tenant, shopID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	return s.repo.WithTx(t.DB.Gorm()).ListForShop(ctx, shopID, params, filters)
}

func validateFilters(filters ListFilters) error {
	if filters.Status != nil && !filters.Status.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter")
	}
	if filters.PaymentStatus != nil && !filters.PaymentStatus.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status filter")
	}
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, t *tenant.Tenant, input UpdateStatusInput) (*models.Order, []string, error) {
	if input.ShopID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}

	var order *models.Order
	err := t.DB.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByIDForShop(ctx, input.OrderID, input.ShopID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				// Foreign-shop orders are indistinguishable from
				// missing ones.
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		updated, err := s.transitionTx(ctx, tx, t, existing, input.NextStatus, Actor{
			UserID: input.ActorUserID,
			Role:   input.ActorRole,
		}, input.Note)
		if err != nil {
			return err
		}
		order = updated
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	if input.NextStatus == enums.OrderShipped && s.shipments != nil {
		trackingID, err := s.shipments.Book(ctx, t, order)
		switch {
		case err != nil:
			warnings = append(warnings, "courier booking failed")
		case trackingID != "":
			if err := s.repo.WithTx(t.DB.Gorm()).UpdateOrder(ctx, order.ID, map[string]any{"courier_order_ref": trackingID}); err != nil {
				warnings = append(warnings, "courier reference could not be saved")
			} else {
				order.CourierOrderRef = &trackingID
			}
		}
	}
	s.metrics.IncTransition(t.ID, string(input.NextStatus))
	return order, warnings, nil
}

func (s *service) Cancel(ctx context.Context, t *tenant.Tenant, input CancelInput) (*models.Order, error) {
	var order *models.Order
	err := t.DB.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByIDForCustomer(ctx, input.OrderID, input.CustomerID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		updated, err := s.transitionTx(ctx, tx, t, existing, enums.OrderCancelled, Actor{
			UserID: input.ActorUserID,
			Role:   enums.RoleCustomer,
		}, input.Reason)
		if err != nil {
			return err
		}
		order = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(t.ID, string(enums.OrderCancelled))
	return order, nil
}

// Transition drives a lifecycle change without shop or customer
// scoping. Used by the delivery and webhook paths.
func (s *service) Transition(ctx context.Context, t *tenant.Tenant, orderID uuid.UUID, next enums.OrderStatus, actor Actor, note *string) (*models.Order, error) {
	var order *models.Order
	err := t.DB.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.TransitionInTx(ctx, tx, t, orderID, next, actor, note)
		if err != nil {
			return err
		}
		order = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// TransitionInTx is the same lifecycle change joined to a transaction
// the caller already holds.
func (s *service) TransitionInTx(ctx context.Context, tx *gorm.DB, t *tenant.Tenant, orderID uuid.UUID, next enums.OrderStatus, actor Actor, note *string) (*models.Order, error) {
	existing, err := s.repo.WithTx(tx).FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	order, err := s.transitionTx(ctx, tx, t, existing, next, actor, note)
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(t.ID, string(next))
	return order, nil
}

func (s *service) transitionTx(ctx context.Context, tx *gorm.DB, t *tenant.Tenant, order *models.Order, next enums.OrderStatus, actor Actor, note *string) (*models.Order, error) {
	if !next.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown status")
	}
	if !order.Status.CanTransition(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition disallowed").
			WithDetails(map[string]any{"from": order.Status, "to": next})
	}

	repo := s.repo.WithTx(tx)
	now := time.Now().UTC()
	change := types.StatusChange{
		From:      order.Status,
		To:        next,
		ActorRole: actor.Role,
		ActorID:   actor.UserID.String(),
		At:        now,
	}
	if note != nil {
		change.Note = *note
	}
	updates := map[string]any{
		"status":         next,
		"status_history": order.StatusHistory.Append(change),
	}

	switch next {
	case enums.OrderShipped:
		assignment := models.DeliveryAssignment{
			ID:      uuid.New(),
			OrderID: order.ID,
		}
		if err := tx.WithContext(ctx).Create(&assignment).Error; err != nil {
			if !dbpkg.IsUniqueViolation(err) {
				return nil, err
			}
		}
	case enums.OrderDelivered:
		updates["delivered_at"] = now
		// Cash on delivery settles when the goods change hands.
		if order.PaymentMethod == enums.PaymentMethodCOD && order.PaymentStatus != enums.PaymentPaid {
			updates["payment_status"] = enums.PaymentPaid
		}
		for _, item := range order.Items {
			if err := inventory.Consume(ctx, tx, item.ProductID, item.VariantID, item.Qty); err != nil {
				return nil, err
			}
			if item.VariantID != nil {
				if err := inventory.RecomputeProductStock(ctx, tx, item.ProductID); err != nil {
					return nil, err
				}
			}
		}
	case enums.OrderCancelled:
		updates["cancelled_at"] = now
		for _, item := range order.Items {
			if err := inventory.Release(ctx, tx, item.ProductID, item.VariantID, item.Qty); err != nil {
				return nil, err
			}
			if item.VariantID != nil {
				if err := inventory.RecomputeProductStock(ctx, tx, item.ProductID); err != nil {
					return nil, err
				}
			}
		}
	}

	ok, err := repo.TransitionStatus(ctx, order.ID, order.Status, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
	}

	eventType := enums.EventOrderStatus
	if next == enums.OrderCancelled {
		eventType = enums.EventOrderCancelled
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		TenantID:      t.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Version:       1,
		Data: StatusChangedEvent{
			OrderID:    order.ID,
			Number:     order.Number,
			ShopID:     order.ShopID,
			CustomerID: order.CustomerID,
			From:       order.Status,
			To:         next,
		},
	}); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.Enqueue(ctx, tx, models.Notification{
			RecipientKind: enums.RecipientCustomer,
			RecipientID:   order.CustomerID,
			Kind:          enums.NotificationOrderStatus,
			Title:         "Order " + order.Number + " " + string(next),
			Body:          fmt.Sprintf("Your order %s is now %s.", order.Number, next),
		}); err != nil {
			return nil, err
		}
	}

	updated := *order
	updated.Status = next
	updated.StatusHistory = order.StatusHistory.Append(change)
	switch next {
	case enums.OrderDelivered:
		updated.DeliveredAt = &now
		if order.PaymentMethod == enums.PaymentMethodCOD {
			updated.PaymentStatus = enums.PaymentPaid
		}
	case enums.OrderCancelled:
		updated.CancelledAt = &now
	}
	return &updated, nil
}
