package types

import (
	"testing"
	"time"

	"github.com/storelinehq/storeline-backend/pkg/enums"
)

func TestStatusHistoryAppendDoesNotMutateReceiver(t *testing.T) {
	base := StatusHistory{}.Append(StatusChange{
		From:      enums.OrderPending,
		To:        enums.OrderPlaced,
		ActorRole: enums.RoleCustomer,
	})

	next := base.Append(StatusChange{
		From:      enums.OrderPlaced,
		To:        enums.OrderShipped,
		ActorRole: enums.RoleVendor,
	})

	if len(base) != 1 {
		t.Fatalf("receiver mutated: len=%d", len(base))
	}
	if len(next) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(next))
	}

	last, ok := next.Last()
	if !ok || last.To != enums.OrderShipped {
		t.Fatalf("unexpected last entry %+v", last)
	}
	if last.At.IsZero() {
		t.Fatalf("Append should stamp At")
	}
}

func TestStatusHistoryRoundTrip(t *testing.T) {
	h := StatusHistory{}.Append(StatusChange{
		From:      enums.OrderPending,
		To:        enums.OrderPlaced,
		ActorRole: enums.RoleCustomer,
		ActorID:   "cust-1",
		At:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})

	val, err := h.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var got StatusHistory
	if err := got.Scan(val); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 || got[0].ActorID != "cust-1" || got[0].To != enums.OrderPlaced {
		t.Fatalf("round trip lost data: %+v", got)
	}
}

func TestStatusHistoryScanNil(t *testing.T) {
	var h StatusHistory
	if err := h.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if h == nil || len(h) != 0 {
		t.Fatalf("expected empty history, got %v", h)
	}
}
