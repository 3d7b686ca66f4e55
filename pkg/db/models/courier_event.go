package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CourierEvent is one webhook delivery from the courier partner. The
// unique index on (order_id, courier_event_id) makes ingestion
// idempotent under retries.
type CourierEvent struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_courier_order_event"`
	CourierEventID string          `gorm:"column:courier_event_id;type:text;not null;uniqueIndex:idx_courier_order_event"`
	Status         string          `gorm:"column:status;type:text;not null"`
	Payload        json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	OccurredAt     time.Time       `gorm:"column:occurred_at;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
