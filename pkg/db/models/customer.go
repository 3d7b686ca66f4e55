package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/pkg/types"
)

// Customer is a buyer account within a tenant.
type Customer struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string         `gorm:"column:name;type:text;not null"`
	Email          string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	Phone          *string        `gorm:"column:phone;type:text"`
	DefaultAddress *types.Address `gorm:"column:default_address;type:jsonb;serializer:json"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
