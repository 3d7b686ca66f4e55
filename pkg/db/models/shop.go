package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/pkg/types"
)

// Shop is a vendor storefront within a tenant.
type Shop struct {
	ID          uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string        `gorm:"column:name;type:text;not null"`
	OwnerUserID uuid.UUID     `gorm:"column:owner_user_id;type:uuid;not null"`
	Address     types.Address `gorm:"column:address;type:jsonb;serializer:json"`
	Active      bool          `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
