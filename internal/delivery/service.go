package delivery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/internal/orders"
	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/outbox"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

type orderTransitioner interface {
	TransitionInTx(ctx context.Context, tx *gorm.DB, t *tenant.Tenant, orderID uuid.UUID, next enums.OrderStatus, actor orders.Actor, note *string) (*models.Order, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ClaimedEvent is the payload of delivery.claimed outbox events.
type ClaimedEvent struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	OrderID      uuid.UUID `json:"order_id"`
	AgentID      uuid.UUID `json:"agent_id"`
}

// CompletedEvent is the payload of delivery.completed outbox events.
type CompletedEvent struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	OrderID      uuid.UUID `json:"order_id"`
	AgentID      uuid.UUID `json:"agent_id"`
}

// Service defines the agent-facing delivery operations.
type Service interface {
	ListOpenOffers(ctx context.Context, t *tenant.Tenant, limit int) ([]Offer, error)
	ListMine(ctx context.Context, t *tenant.Tenant, agentUserID uuid.UUID, limit int) ([]models.DeliveryAssignment, error)
	Accept(ctx context.Context, t *tenant.Tenant, input AcceptInput) (*models.DeliveryAssignment, error)
	Complete(ctx context.Context, t *tenant.Tenant, input CompleteInput) (*models.Order, error)
}

type service struct {
	repo      Repository
	orderRepo orders.Repository
	orderSvc  orderTransitioner
	outbox    outboxPublisher
}

// NewService builds the delivery service.
func NewService(repo Repository, orderRepo orders.Repository, orderSvc orderTransitioner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, orderRepo: orderRepo, orderSvc: orderSvc, outbox: outboxSvc}, nil
}

const defaultOfferLimit = 50

func (s *service) ListOpenOffers(ctx context.Context, t *tenant.Tenant, limit int) ([]Offer, error) {
	if limit <= 0 || limit > defaultOfferLimit {
		limit = defaultOfferLimit
	}
	repo := s.repo.WithTx(t.DB.Gorm())
	assignments, err := repo.ListOpenAssignments(ctx, limit)
	if err != nil {
		return nil, err
	}
	orderRepo := s.orderRepo.WithTx(t.DB.Gorm())
	offers := make([]Offer, 0, len(assignments))
	for _, a := range assignments {
		order, err := orderRepo.FindByID(ctx, a.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, err
		}
		offers = append(offers, Offer{
			AssignmentID: a.ID,
			OrderID:      a.OrderID,
			OrderNumber:  order.Number,
			DropAddress:  order.ShippingAddress,
			OfferedAt:    a.OfferedAt,
		})
	}
	return offers, nil
}

func (s *service) ListMine(ctx context.Context, t *tenant.Tenant, agentUserID uuid.UUID, limit int) ([]models.DeliveryAssignment, error) {
	if limit <= 0 || limit > defaultOfferLimit {
		limit = defaultOfferLimit
	}
	repo := s.repo.WithTx(t.DB.Gorm())
	agent, err := repo.FindAgentByUserID(ctx, agentUserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a delivery agent")
		}
		return nil, err
	}
	return repo.ListForAgent(ctx, agent.ID, limit)
}

func (s *service) Accept(ctx context.Context, t *tenant.Tenant, input AcceptInput) (*models.DeliveryAssignment, error) {
	var claimed *models.DeliveryAssignment
	err := t.DB.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		agent, err := repo.FindAgentByUserID(ctx, input.AgentUserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeForbidden, "not a delivery agent")
			}
			return err
		}
		assignment, err := repo.FindAssignmentByOrderID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no delivery offer for order")
			}
			return err
		}
		if assignment.CompletedAt != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery already completed")
		}
		if assignment.AgentID != nil {
			if *assignment.AgentID == agent.ID {
				// Replayed accept from the winner is a no-op.
				claimed = assignment
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "delivery already claimed")
		}

		ok, err := repo.Claim(ctx, input.OrderID, agent.ID)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "delivery already claimed")
		}
		if err := repo.SetAgentStatus(ctx, agent.ID, enums.AgentBusy); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryClaimed,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   assignment.ID,
			TenantID:      t.ID,
			Actor:         &outbox.ActorRef{UserID: input.AgentUserID, Role: enums.RoleAgent},
			Version:       1,
			Data: ClaimedEvent{
				AssignmentID: assignment.ID,
				OrderID:      input.OrderID,
				AgentID:      agent.ID,
			},
		}); err != nil {
			return err
		}
		claimed, err = repo.FindAssignmentByOrderID(ctx, input.OrderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *service) Complete(ctx context.Context, t *tenant.Tenant, input CompleteInput) (*models.Order, error) {
	var order *models.Order
	err := t.DB.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		agent, err := repo.FindAgentByUserID(ctx, input.AgentUserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeForbidden, "not a delivery agent")
			}
			return err
		}
		assignment, err := repo.FindAssignmentByOrderID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no delivery offer for order")
			}
			return err
		}
		if assignment.AgentID == nil || *assignment.AgentID != agent.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery belongs to another agent")
		}

		ok, err := repo.Complete(ctx, input.OrderID, agent.ID)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery already completed")
		}

		order, err = s.orderSvc.TransitionInTx(ctx, tx, t, input.OrderID, enums.OrderDelivered, orders.Actor{
			UserID: input.AgentUserID,
			Role:   enums.RoleAgent,
		}, nil)
		if err != nil {
			return err
		}

		active, err := repo.CountActiveForAgent(ctx, agent.ID)
		if err != nil {
			return err
		}
		if active == 0 {
			if err := repo.SetAgentStatus(ctx, agent.ID, enums.AgentAvailable); err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryDone,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   assignment.ID,
			TenantID:      t.ID,
			Actor:         &outbox.ActorRef{UserID: input.AgentUserID, Role: enums.RoleAgent},
			Version:       1,
			Data: CompletedEvent{
				AssignmentID: assignment.ID,
				OrderID:      input.OrderID,
				AgentID:      agent.ID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
