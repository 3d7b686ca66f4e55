package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/api/middleware"
	"github.com/storelinehq/storeline-backend/api/responses"
	"github.com/storelinehq/storeline-backend/api/validators"
	"github.com/storelinehq/storeline-backend/internal/orders"
	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/logger"
	"github.com/storelinehq/storeline-backend/pkg/pagination"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
	"github.com/storelinehq/storeline-backend/pkg/types"
)

type placeOrderItem struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	VariantID *string `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Qty       int     `json:"qty" validate:"required,gt=0"`
}

type placeOrderRequest struct {
	ShopID          string           `json:"shop_id" validate:"required,uuid"`
	Items           []placeOrderItem `json:"items" validate:"required,min=1,dive"`
	PaymentMethod   string           `json:"payment_method" validate:"required,oneof=cod gateway"`
	ShippingAddress types.Address    `json:"shipping_address" validate:"required"`
	CouponCode      *string          `json:"coupon_code,omitempty"`
	Notes           *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type orderLineResponse struct {
	ID             uuid.UUID             `json:"id"`
	ProductID      uuid.UUID             `json:"product_id"`
	VariantID      *uuid.UUID            `json:"variant_id,omitempty"`
	Snapshot       types.ProductSnapshot `json:"snapshot"`
	Qty            int                   `json:"qty"`
	UnitPriceCents int64                 `json:"unit_price_cents"`
	DiscountCents  int64                 `json:"discount_cents"`
	TaxCents       int64                 `json:"tax_cents"`
	TotalCents     int64                 `json:"total_cents"`
}

type orderResponse struct {
	ID                uuid.UUID           `json:"id"`
	Number            string              `json:"number"`
	ShopID            uuid.UUID           `json:"shop_id"`
	Status            enums.OrderStatus   `json:"status"`
	PaymentStatus     enums.PaymentStatus `json:"payment_status"`
	PaymentMethod     enums.PaymentMethod `json:"payment_method"`
	Currency          string              `json:"currency"`
	SubtotalCents     int64               `json:"subtotal_cents"`
	DiscountCents     int64               `json:"discount_cents"`
	TaxCents          int64               `json:"tax_cents"`
	DeliveryFeeCents  int64               `json:"delivery_fee_cents"`
	TotalCents        int64               `json:"total_cents"`
	CouponCode        *string             `json:"coupon_code,omitempty"`
	ShippingAddress   types.Address       `json:"shipping_address"`
	StatusHistory     types.StatusHistory `json:"status_history"`
	Notes             *string             `json:"notes,omitempty"`
	InvoiceURL        *string             `json:"invoice_url,omitempty"`
	CourierOrderRef   *string             `json:"courier_order_ref,omitempty"`
	CourierRiderName  *string             `json:"courier_rider_name,omitempty"`
	CourierRiderPhone *string             `json:"courier_rider_phone,omitempty"`
	PlacedAt          *time.Time          `json:"placed_at,omitempty"`
	DeliveredAt       *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time          `json:"cancelled_at,omitempty"`
	Items             []orderLineResponse `json:"items"`
	Warnings          []string            `json:"warnings,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

func toOrderResponse(order *models.Order, warnings []string) orderResponse {
	items := make([]orderLineResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderLineResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Snapshot:       item.Snapshot,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			DiscountCents:  item.DiscountCents,
			TaxCents:       item.TaxCents,
			TotalCents:     item.TotalCents,
		})
	}
	return orderResponse{
		ID:                order.ID,
		Number:            order.Number,
		ShopID:            order.ShopID,
		Status:            order.Status,
		PaymentStatus:     order.PaymentStatus,
		PaymentMethod:     order.PaymentMethod,
		Currency:          order.Currency,
		SubtotalCents:     order.SubtotalCents,
		DiscountCents:     order.DiscountCents,
		TaxCents:          order.TaxCents,
		DeliveryFeeCents:  order.DeliveryFeeCents,
		TotalCents:        order.TotalCents,
		CouponCode:        order.CouponCode,
		ShippingAddress:   order.ShippingAddress,
		StatusHistory:     order.StatusHistory,
		Notes:             order.Notes,
		InvoiceURL:        order.InvoiceURL,
		CourierOrderRef:   order.CourierOrderRef,
		CourierRiderName:  order.CourierRiderName,
		CourierRiderPhone: order.CourierRiderPhone,
		PlacedAt:          order.PlacedAt,
		DeliveredAt:       order.DeliveredAt,
		CancelledAt:       order.CancelledAt,
		Items:             items,
		Warnings:          warnings,
		CreatedAt:         order.CreatedAt,
	}
}

func activeTenant(r *http.Request, logg *logger.Logger, w http.ResponseWriter) (*tenant.Tenant, bool) {
	t, err := tenant.FromContext(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return t, true
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	return validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
}

func buildOrderFilters(r *http.Request) (orders.ListFilters, error) {
	var filters orders.ListFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.OrderStatus(raw)
		if !status.Valid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
				WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status := enums.PaymentStatus(raw)
		if !status.Valid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status").
				WithDetails(map[string]any{"field": "payment_status"})
		}
		filters.PaymentStatus = &status
	}

	from, err := validators.ParseQueryTime(r, "date_from")
	if err != nil {
		return filters, err
	}
	filters.DateFrom = from

	to, err := validators.ParseQueryTime(r, "date_to")
	if err != nil {
		return filters, err
	}
	filters.DateTo = to

	return filters, nil
}

func listParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

// PlaceOrder places an order for the requested items at one shop.
func PlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}

		var req placeOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shopID, err := uuid.Parse(req.ShopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shop id"))
			return
		}
		items := make([]orders.LineItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			line := orders.LineItemInput{ProductID: productID, Qty: item.Qty}
			if item.VariantID != nil {
				variantID, err := uuid.Parse(*item.VariantID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id"))
					return
				}
				line.VariantID = &variantID
			}
			items = append(items, line)
		}

		customerID := middleware.UserIDFromContext(r.Context())
		placed, err := svc.PlaceOrder(r.Context(), t, orders.PlaceOrderInput{
			CustomerID:      customerID,
			ShopID:          shopID,
			Items:           items,
			PaymentMethod:   enums.PaymentMethod(req.PaymentMethod),
			ShippingAddress: req.ShippingAddress,
			CouponCode:      req.CouponCode,
			Notes:           req.Notes,
			ActorUserID:     customerID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(placed.Order, placed.Warnings))
	}
}

// GetOrder returns one of the customer's own orders.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetForCustomer(r.Context(), t, orderID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order, nil))
	}
}

// ListOrders pages through the customer's order history.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}

		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := buildOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForCustomer(r.Context(), t, middleware.UserIDFromContext(r.Context()), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type cancelOrderRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// CancelOrder cancels a not-yet-shipped order on the customer's behalf.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		customerID := middleware.UserIDFromContext(r.Context())
		order, err := svc.Cancel(r.Context(), t, orders.CancelInput{
			OrderID:     orderID,
			CustomerID:  customerID,
			Reason:      req.Reason,
			ActorUserID: customerID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order, nil))
	}
}
