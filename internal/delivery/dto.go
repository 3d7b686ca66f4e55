package delivery

import (
	"time"

	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/pkg/types"
)

// AcceptInput claims an open assignment for the calling agent.
type AcceptInput struct {
	OrderID     uuid.UUID
	AgentUserID uuid.UUID
}

// CompleteInput closes out a claimed assignment.
type CompleteInput struct {
	OrderID     uuid.UUID
	AgentUserID uuid.UUID
}

// Offer is an open assignment enriched with the order details an
// agent needs to decide.
type Offer struct {
	AssignmentID uuid.UUID     `json:"assignment_id"`
	OrderID      uuid.UUID     `json:"order_id"`
	OrderNumber  string        `json:"order_number"`
	DropAddress  types.Address `json:"drop_address"`
	OfferedAt    time.Time     `json:"offered_at"`
}
