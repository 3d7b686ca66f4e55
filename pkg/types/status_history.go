package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/storelinehq/storeline-backend/pkg/enums"
)

// StatusChange is one append-only entry in an order's status history.
type StatusChange struct {
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ActorRole enums.ActorRole   `json:"actor_role"`
	ActorID   string            `json:"actor_id,omitempty"`
	Note      string            `json:"note,omitempty"`
	At        time.Time         `json:"at"`
}

// StatusHistory is stored as a jsonb array. Entries are only ever
// appended, never rewritten.
type StatusHistory []StatusChange

func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		h = StatusHistory{}
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal status history: %w", err)
	}
	return string(raw), nil
}

func (h *StatusHistory) Scan(src any) error {
	if src == nil {
		*h = StatusHistory{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan status history: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*h = StatusHistory{}
		return nil
	}
	return json.Unmarshal(raw, h)
}

// Append returns a new history with the change added. The receiver is
// not mutated so callers can retry without double entries.
func (h StatusHistory) Append(change StatusChange) StatusHistory {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	next := make(StatusHistory, len(h), len(h)+1)
	copy(next, h)
	return append(next, change)
}

// Last returns the most recent change and whether one exists.
func (h StatusHistory) Last() (StatusChange, bool) {
	if len(h) == 0 {
		return StatusChange{}, false
	}
	return h[len(h)-1], true
}
