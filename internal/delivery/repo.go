package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a delivery repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAssignmentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.DeliveryAssignment, error) {
	var assignment models.DeliveryAssignment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) ListOpenAssignments(ctx context.Context, limit int) ([]models.DeliveryAssignment, error) {
	var rows []models.DeliveryAssignment
	err := r.db.WithContext(ctx).
		Where("agent_id IS NULL AND completed_at IS NULL").
		Order("offered_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListForAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.DeliveryAssignment, error) {
	var rows []models.DeliveryAssignment
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("accepted_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Claim takes the assignment only while no agent holds it. The
// conditional update makes the first writer the only winner.
func (r *repository) Claim(ctx context.Context, orderID, agentID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.DeliveryAssignment{}).
		Where("order_id = ? AND agent_id IS NULL", orderID).
		Updates(map[string]any{
			"agent_id":    agentID,
			"accepted_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Complete closes the assignment only for the agent that claimed it
// and only once.
func (r *repository) Complete(ctx context.Context, orderID, agentID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.DeliveryAssignment{}).
		Where("order_id = ? AND agent_id = ? AND completed_at IS NULL", orderID, agentID).
		Update("completed_at", time.Now().UTC())
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindAgentByUserID(ctx context.Context, userID uuid.UUID) (*models.DeliveryAgent, error) {
	var agent models.DeliveryAgent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&agent).Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) SetAgentStatus(ctx context.Context, agentID uuid.UUID, status enums.AgentStatus) error {
	return r.db.WithContext(ctx).Model(&models.DeliveryAgent{}).
		Where("id = ?", agentID).
		Update("status", status).Error
}

func (r *repository) CountActiveForAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DeliveryAssignment{}).
		Where("agent_id = ? AND completed_at IS NULL", agentID).
		Count(&count).Error
	return count, err
}
