package delivery

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
)

// Repository defines persistence for delivery agents and assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAssignmentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.DeliveryAssignment, error)
	ListOpenAssignments(ctx context.Context, limit int) ([]models.DeliveryAssignment, error)
	ListForAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.DeliveryAssignment, error)
	Claim(ctx context.Context, orderID, agentID uuid.UUID) (bool, error)
	Complete(ctx context.Context, orderID, agentID uuid.UUID) (bool, error)
	FindAgentByUserID(ctx context.Context, userID uuid.UUID) (*models.DeliveryAgent, error)
	SetAgentStatus(ctx context.Context, agentID uuid.UUID, status enums.AgentStatus) error
	CountActiveForAgent(ctx context.Context, agentID uuid.UUID) (int64, error)
}
