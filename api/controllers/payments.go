package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/api/middleware"
	"github.com/storelinehq/storeline-backend/api/responses"
	"github.com/storelinehq/storeline-backend/api/validators"
	"github.com/storelinehq/storeline-backend/internal/payments"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/logger"
)

type createIntentRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
}

type verifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

type transactionResponse struct {
	ID               uuid.UUID               `json:"id"`
	OrderID          uuid.UUID               `json:"order_id"`
	GatewayOrderID   string                  `json:"gateway_order_id"`
	GatewayPaymentID *string                 `json:"gateway_payment_id,omitempty"`
	Status           enums.TransactionStatus `json:"status"`
	AmountCents      int64                   `json:"amount_cents"`
	Currency         string                  `json:"currency"`
	VerifiedAt       *time.Time              `json:"verified_at,omitempty"`
}

// CreatePaymentIntent opens a gateway order for an unpaid order.
func CreatePaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}

		var req createIntentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		intent, err := svc.CreateIntent(r.Context(), t, payments.CreateIntentInput{
			OrderID:    orderID,
			CustomerID: middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}

// VerifyPayment reconciles the gateway callback and captures payment.
func VerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}

		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.VerifyAndCapture(r.Context(), t, payments.VerifyInput{
			GatewayOrderID:   req.GatewayOrderID,
			GatewayPaymentID: req.GatewayPaymentID,
			Signature:        req.Signature,
			ActorUserID:      middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transactionResponse{
			ID:               txn.ID,
			OrderID:          txn.OrderID,
			GatewayOrderID:   txn.GatewayOrderID,
			GatewayPaymentID: txn.GatewayPaymentID,
			Status:           txn.Status,
			AmountCents:      txn.AmountCents,
			Currency:         txn.Currency,
			VerifiedAt:       txn.VerifiedAt,
		})
	}
}
