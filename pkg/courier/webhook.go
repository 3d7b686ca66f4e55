package courier

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/storelinehq/storeline-backend/pkg/enums"
)

// WebhookEvent is one status update pushed by the courier. EventID is
// unique per (order, event) on the courier side and drives dedup.
type WebhookEvent struct {
	EventID     string          `json:"event_id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	RiderName   string          `json:"rider_name"`
	RiderPhone  string          `json:"rider_phone"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Raw         json.RawMessage `json:"-"`
}

// ParseWebhook decodes and validates a webhook body.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if strings.TrimSpace(event.EventID) == "" {
		return nil, fmt.Errorf("webhook missing event_id")
	}
	if strings.TrimSpace(event.OrderNumber) == "" {
		return nil, fmt.Errorf("webhook missing order_number")
	}
	if strings.TrimSpace(event.Status) == "" {
		return nil, fmt.Errorf("webhook missing status")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	event.Raw = json.RawMessage(body)
	return &event, nil
}

// VerifyToken compares the webhook auth token in constant time.
func VerifyToken(expected, presented string) bool {
	if expected == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}

// MapStatus translates the courier's vocabulary to the order
// lifecycle. Unknown statuses map to false so ingestion can store the
// event without advancing the order.
func MapStatus(courierStatus string) (enums.OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(courierStatus)) {
	case "picked_up", "in_transit", "out_for_delivery":
		return enums.OrderShipped, true
	case "delivered":
		return enums.OrderDelivered, true
	default:
		return "", false
	}
}
