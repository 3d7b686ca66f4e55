package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/pkg/enums"
)

// DeliveryAgent is a courier able to claim shipped orders.
type DeliveryAgent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Name      string            `gorm:"column:name;type:text;not null"`
	Phone     string            `gorm:"column:phone;type:text;not null"`
	Status    enums.AgentStatus `gorm:"column:status;type:text;not null;default:'offline'"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
