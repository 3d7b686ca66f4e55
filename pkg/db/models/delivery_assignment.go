package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryAssignment is the claimable slot for a shipped order.
// AgentID stays NULL until exactly one agent wins the claim.
type DeliveryAssignment struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	AgentID     *uuid.UUID `gorm:"column:agent_id;type:uuid;index"`
	OfferedAt   time.Time  `gorm:"column:offered_at;autoCreateTime"`
	AcceptedAt  *time.Time `gorm:"column:accepted_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
