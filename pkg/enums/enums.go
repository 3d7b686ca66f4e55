package enums

// OrderStatus is the fulfillment lifecycle of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPlaced    OrderStatus = "order_placed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// statusRank orders the forward lifecycle. Cancelled sits outside the
// rank progression and is reachable only from pending or order_placed.
var statusRank = map[OrderStatus]int{
	OrderPending:   0,
	OrderPlaced:    1,
	OrderShipped:   2,
	OrderDelivered: 3,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPlaced, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is allowed.
// Forward moves must strictly increase rank. Backward moves and repeats
// are rejected, as is any move out of a terminal status.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() || s == next {
		return false
	}
	if s == OrderDelivered || s == OrderCancelled {
		return false
	}
	if next == OrderCancelled {
		return s == OrderPending || s == OrderPlaced
	}
	return statusRank[next] > statusRank[s]
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// PaymentStatus is the order-level payment state.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentUnpaid, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// TransactionStatus is the gateway-side state of a payment transaction.
type TransactionStatus string

const (
	TransactionCreated TransactionStatus = "created"
	TransactionPaid    TransactionStatus = "paid"
	TransactionFailed  TransactionStatus = "failed"
)

// PaymentMethod is how the customer chose to pay.
type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodGateway PaymentMethod = "gateway"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodGateway
}

// AgentStatus tracks a delivery agent's availability.
type AgentStatus string

const (
	AgentAvailable AgentStatus = "available"
	AgentBusy      AgentStatus = "busy"
	AgentOffline   AgentStatus = "offline"
)

// ActorRole is the authenticated caller's role.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleVendor   ActorRole = "vendor"
	RoleAgent    ActorRole = "agent"
	RoleAdmin    ActorRole = "admin"
)

func (r ActorRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleVendor, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// NotificationKind labels what a notification is about.
type NotificationKind string

const (
	NotificationOrderPlaced    NotificationKind = "order_placed"
	NotificationOrderStatus    NotificationKind = "order_status"
	NotificationOrderPaid      NotificationKind = "order_paid"
	NotificationDeliveryOffer  NotificationKind = "delivery_offer"
	NotificationDeliveryUpdate NotificationKind = "delivery_update"
)

// RecipientKind says which audience a notification targets.
type RecipientKind string

const (
	RecipientCustomer RecipientKind = "customer"
	RecipientShop     RecipientKind = "shop"
	RecipientAgent    RecipientKind = "agent"
)

// OutboxEventType names the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventOrderPlaced     OutboxEventType = "order.placed"
	EventOrderStatus     OutboxEventType = "order.status_changed"
	EventOrderPaid       OutboxEventType = "order.paid"
	EventOrderCancelled  OutboxEventType = "order.cancelled"
	EventDeliveryClaimed OutboxEventType = "delivery.claimed"
	EventDeliveryDone    OutboxEventType = "delivery.completed"
)

// AggregateType names the aggregate an outbox event belongs to.
type AggregateType string

const (
	AggregateOrder    AggregateType = "order"
	AggregateDelivery AggregateType = "delivery"
)
