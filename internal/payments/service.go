package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/internal/orders"
	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/gateway"
	"github.com/storelinehq/storeline-backend/pkg/metrics"
	"github.com/storelinehq/storeline-backend/pkg/outbox"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

type gatewayClient interface {
	CreateOrder(ctx context.Context, creds gateway.Credentials, req gateway.CreateOrderRequest) (*gateway.GatewayOrder, error)
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	Enqueue(ctx context.Context, tx *gorm.DB, n models.Notification) error
}

// CreateIntentInput opens a gateway payment for the customer's order.
type CreateIntentInput struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
}

// Intent is what the client needs to drive the gateway checkout.
type Intent struct {
	TransactionID  uuid.UUID `json:"transaction_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	KeyID          string    `json:"key_id"`
}

// VerifyInput carries the gateway callback to reconcile.
type VerifyInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	ActorUserID      uuid.UUID
}

// PaidEvent is the payload of order.paid outbox events.
type PaidEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	Number           string    `json:"number"`
	TransactionID    uuid.UUID `json:"transaction_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	AmountCents      int64     `json:"amount_cents"`
	Currency         string    `json:"currency"`
}

// Service defines gateway payment reconciliation.
type Service interface {
	CreateIntent(ctx context.Context, t *tenant.Tenant, input CreateIntentInput) (*Intent, error)
	VerifyAndCapture(ctx context.Context, t *tenant.Tenant, input VerifyInput) (*models.PaymentTransaction, error)
}

type service struct {
	repo      Repository
	orderRepo orders.Repository
	gateway   gatewayClient
	outbox    outboxPublisher
	notifier  notifier
	metrics   *metrics.OrderMetrics
}

// NewService builds the payments service.
func NewService(repo Repository, orderRepo orders.Repository, gw gatewayClient, outboxSvc outboxPublisher, notif notifier, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		orderRepo: orderRepo,
		gateway:   gw,
		outbox:    outboxSvc,
		notifier:  notif,
		metrics:   m,
	}, nil
}

func (s *service) CreateIntent(ctx context.Context, t *tenant.Tenant, input CreateIntentInput) (*Intent, error) {
	repo := s.repo.WithTx(t.DB.Gorm())
	orderRepo := s.orderRepo.WithTx(t.DB.Gorm())

	order, err := orderRepo.FindByIDForCustomer(ctx, input.OrderID, input.CustomerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodGateway {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not payable through the gateway")
	}
	if order.PaymentStatus != enums.PaymentUnpaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status == enums.OrderCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}

	// An open transaction is reused so repeated intent calls do not
	// fan out gateway orders.
	if existing, err := repo.FindOpenForOrder(ctx, order.ID); err == nil {
		return &Intent{
			TransactionID:  existing.ID,
			GatewayOrderID: existing.GatewayOrderID,
			AmountCents:    existing.AmountCents,
			Currency:       existing.Currency,
			KeyID:          t.PaymentKeyID,
		}, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, gateway.Credentials{
		KeyID:     t.PaymentKeyID,
		KeySecret: t.PaymentKeySecret,
	}, gateway.CreateOrderRequest{
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		Receipt:     order.Number,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway order creation failed")
	}

	txn := &models.PaymentTransaction{
		ID:             uuid.New(),
		OrderID:        order.ID,
		GatewayOrderID: gwOrder.ID,
		Status:         enums.TransactionCreated,
		AmountCents:    order.TotalCents,
		Currency:       order.Currency,
	}
	if err := repo.Create(ctx, txn); err != nil {
		return nil, err
	}

	return &Intent{
		TransactionID:  txn.ID,
		GatewayOrderID: txn.GatewayOrderID,
		AmountCents:    txn.AmountCents,
		Currency:       txn.Currency,
		KeyID:          t.PaymentKeyID,
	}, nil
}

func (s *service) VerifyAndCapture(ctx context.Context, t *tenant.Tenant, input VerifyInput) (*models.PaymentTransaction, error) {
	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order and payment ids required")
	}
	if !gateway.VerifyPaymentSignature(t.PaymentKeySecret, input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		s.metrics.IncPaymentEvent(t.ID, "signature_invalid")
		if txn, err := s.repo.WithTx(t.DB.Gorm()).FindByGatewayOrderID(ctx, input.GatewayOrderID); err == nil {
			_ = s.repo.WithTx(t.DB.Gorm()).MarkFailed(ctx, txn.ID, "signature verification failed")
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "payment signature verification failed")
	}

	var captured *models.PaymentTransaction
	err := t.DB.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		txn, err := repo.FindByGatewayOrderID(ctx, input.GatewayOrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "unknown gateway order")
			}
			return err
		}
		if txn.Status == enums.TransactionPaid {
			// Replayed callback for a settled payment.
			captured = txn
			return nil
		}
		if txn.Status == enums.TransactionFailed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction already failed")
		}

		order, err := orderRepo.FindByID(ctx, txn.OrderID)
		if err != nil {
			return err
		}
		if txn.AmountCents != order.TotalCents {
			return pkgerrors.New(pkgerrors.CodeIntegrity, "captured amount does not match order total").
				WithDetails(map[string]any{
					"transaction_cents": txn.AmountCents,
					"order_cents":       order.TotalCents,
				})
		}

		ok, err := repo.MarkPaid(ctx, txn.ID, input.GatewayPaymentID)
		if err != nil {
			return err
		}
		if !ok {
			current, err := repo.FindByGatewayOrderID(ctx, input.GatewayOrderID)
			if err != nil {
				return err
			}
			if current.Status == enums.TransactionPaid {
				captured = current
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction changed concurrently")
		}

		if _, err := orderRepo.MarkPaidIfUnpaid(ctx, order.ID); err != nil {
			return err
		}

		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			TenantID:      t.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: enums.RoleCustomer},
			Version:       1,
			DedupKey:      "order.paid:" + order.ID.String(),
			Data: PaidEvent{
				OrderID:          order.ID,
				Number:           order.Number,
				TransactionID:    txn.ID,
				GatewayPaymentID: input.GatewayPaymentID,
				AmountCents:      txn.AmountCents,
				Currency:         txn.Currency,
			},
		}); err != nil {
			return err
		}

		if s.notifier != nil {
			if err := s.notifier.Enqueue(ctx, tx, models.Notification{
				RecipientKind: enums.RecipientShop,
				RecipientID:   order.ShopID,
				Kind:          enums.NotificationOrderPaid,
				Title:         "Payment received for " + order.Number,
				Body:          fmt.Sprintf("Order %s was paid in full.", order.Number),
			}); err != nil {
				return err
			}
		}

		paymentID := input.GatewayPaymentID
		txn.Status = enums.TransactionPaid
		txn.GatewayPaymentID = &paymentID
		captured = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPaymentEvent(t.ID, "captured")
	return captured, nil
}
