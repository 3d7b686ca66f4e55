package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/pkg/enums"
)

// Notification stores in-app notification payloads per recipient.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientKind enums.RecipientKind    `gorm:"column:recipient_kind;type:text;not null;index:idx_notif_recipient"`
	RecipientID   uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index:idx_notif_recipient"`
	Kind          enums.NotificationKind `gorm:"column:kind;type:text;not null"`
	Title         string                 `gorm:"column:title;type:text;not null"`
	Body          string                 `gorm:"column:body;type:text;not null"`
	Link          *string                `gorm:"column:link;type:text"`
	ReadAt        *time.Time             `gorm:"column:read_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}
