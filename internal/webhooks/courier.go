package webhooks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/internal/orders"
	"github.com/storelinehq/storeline-backend/pkg/courier"
	dbpkg "github.com/storelinehq/storeline-backend/pkg/db"
	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/metrics"
	"github.com/storelinehq/storeline-backend/pkg/redis"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

const dedupTTL = 24 * time.Hour

type orderTransitioner interface {
	TransitionInTx(ctx context.Context, tx *gorm.DB, t *tenant.Tenant, orderID uuid.UUID, next enums.OrderStatus, actor orders.Actor, note *string) (*models.Order, error)
}

// Outcome reports what ingestion did with a courier event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDropped   Outcome = "dropped"
)

// CourierService ingests courier status webhooks. Duplicate
// deliveries are absorbed twice over: a redis guard short-circuits
// hot replays and the (order, event) unique index is the authority.
type CourierService struct {
	orderRepo orders.Repository
	orderSvc  orderTransitioner
	dedup     redis.IdempotencyStore
	metrics   *metrics.OrderMetrics
}

// NewCourierService builds the courier webhook ingester. The dedup
// store is optional.
func NewCourierService(orderRepo orders.Repository, orderSvc orderTransitioner, dedup redis.IdempotencyStore, m *metrics.OrderMetrics) (*CourierService, error) {
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	return &CourierService{orderRepo: orderRepo, orderSvc: orderSvc, dedup: dedup, metrics: m}, nil
}

// Handle parses and applies one webhook delivery. A duplicate event
// reports success so the courier stops retrying.
func (s *CourierService) Handle(ctx context.Context, t *tenant.Tenant, body []byte) (Outcome, error) {
	event, err := courier.ParseWebhook(body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed courier webhook")
	}

	var guardKey string
	if s.dedup != nil {
		guardKey = s.dedup.WebhookKey("courier", t.ID+":"+event.EventID)
		fresh, err := s.dedup.SetNX(ctx, guardKey, 1, dedupTTL)
		if err == nil && !fresh {
			s.metrics.IncCourierEvent(t.ID, string(OutcomeDuplicate))
			return OutcomeDuplicate, nil
		}
		// A redis failure falls through to the database check.
	}

	outcome, err := s.apply(ctx, t, event)
	if err != nil {
		// Release the guard so the courier's retry is not swallowed.
		if s.dedup != nil && guardKey != "" {
			_ = s.dedup.Del(ctx, guardKey)
		}
		return "", err
	}
	s.metrics.IncCourierEvent(t.ID, string(outcome))
	return outcome, nil
}

func (s *CourierService) apply(ctx context.Context, t *tenant.Tenant, event *courier.WebhookEvent) (Outcome, error) {
	var outcome Outcome
	err := t.DB.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.FindByNumber(ctx, event.OrderNumber)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				// An event for an order this system never issued cannot
				// be applied by any retry. Acknowledge it so the courier
				// stops resending; the guard key stays set.
				outcome = OutcomeDropped
				return nil
			}
			return err
		}

		if event.RiderName != "" || event.RiderPhone != "" {
			riderUpdates := map[string]any{}
			if event.RiderName != "" {
				riderUpdates["courier_rider_name"] = event.RiderName
			}
			if event.RiderPhone != "" {
				riderUpdates["courier_rider_phone"] = event.RiderPhone
			}
			if err := orderRepo.UpdateOrder(ctx, order.ID, riderUpdates); err != nil {
				return err
			}
		}

		row := models.CourierEvent{
			ID:             uuid.New(),
			OrderID:        order.ID,
			CourierEventID: event.EventID,
			Status:         event.Status,
			Payload:        event.Raw,
			OccurredAt:     event.OccurredAt,
		}
		if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
			if dbpkg.IsUniqueViolation(err) {
				outcome = OutcomeDuplicate
				return nil
			}
			return err
		}

		target, known := courier.MapStatus(event.Status)
		if !known {
			outcome = OutcomeIgnored
			return nil
		}
		if !order.Status.CanTransition(target) {
			// Stale or out-of-order event. The row is kept for audit
			// but the order does not move.
			outcome = OutcomeIgnored
			return nil
		}

		note := "courier: " + event.Status
		if _, err := s.orderSvc.TransitionInTx(ctx, tx, t, order.ID, target, orders.Actor{Role: enums.RoleAgent}, &note); err != nil {
			return err
		}
		outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}
