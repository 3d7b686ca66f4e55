package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderPending, OrderPlaced, true},
		{OrderPlaced, OrderShipped, true},
		{OrderShipped, OrderDelivered, true},
		{OrderPlaced, OrderDelivered, true},
		{OrderPending, OrderCancelled, true},
		{OrderPlaced, OrderCancelled, true},

		{OrderShipped, OrderPlaced, false},
		{OrderDelivered, OrderShipped, false},
		{OrderPlaced, OrderPlaced, false},
		{OrderDelivered, OrderCancelled, false},
		{OrderCancelled, OrderPlaced, false},
		{OrderShipped, OrderCancelled, false},
		{OrderPlaced, OrderStatus("bogus"), false},
		{OrderStatus("bogus"), OrderPlaced, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.allowed {
			t.Fatalf("%s -> %s: expected allowed=%v got %v", tt.from, tt.to, tt.allowed, got)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if !OrderDelivered.Terminal() || !OrderCancelled.Terminal() {
		t.Fatalf("delivered and cancelled should be terminal")
	}
	if OrderPlaced.Terminal() || OrderPending.Terminal() {
		t.Fatalf("pending and order_placed should not be terminal")
	}
}

func TestActorRoleValid(t *testing.T) {
	for _, r := range []ActorRole{RoleCustomer, RoleVendor, RoleAgent, RoleAdmin} {
		if !r.Valid() {
			t.Fatalf("role %s should be valid", r)
		}
	}
	if ActorRole("superuser").Valid() {
		t.Fatalf("unknown role should be invalid")
	}
}

func TestPaymentMethodValid(t *testing.T) {
	if !PaymentMethodCOD.Valid() || !PaymentMethodGateway.Valid() {
		t.Fatalf("known methods should be valid")
	}
	if PaymentMethod("barter").Valid() {
		t.Fatalf("unknown method should be invalid")
	}
}
