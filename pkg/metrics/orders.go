package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records counters and latencies for the order lifecycle.
type OrderMetrics struct {
	placed        *prometheus.CounterVec
	placeFailed   *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	placeDuration *prometheus.HistogramVec
	paymentEvents *prometheus.CounterVec
	courierEvents *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders placed successfully.",
	}, []string{"tenant"})
	placeFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_place_failed_total",
		Help: "Order placement attempts that failed.",
	}, []string{"tenant", "reason"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status transitions by target status.",
	}, []string{"tenant", "status"})
	placeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_place_duration_seconds",
		Help:    "Duration of order placement in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tenant"})
	paymentEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_events_total",
		Help: "Payment reconciliation outcomes.",
	}, []string{"tenant", "outcome"})
	courierEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_webhook_events_total",
		Help: "Courier webhook deliveries by outcome.",
	}, []string{"tenant", "outcome"})
	reg.MustRegister(placed, placeFailed, transitions, placeDuration, paymentEvents, courierEvents)
	return &OrderMetrics{
		placed:        placed,
		placeFailed:   placeFailed,
		transitions:   transitions,
		placeDuration: placeDuration,
		paymentEvents: paymentEvents,
		courierEvents: courierEvents,
	}
}

func (m *OrderMetrics) IncPlaced(tenant string) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.WithLabelValues(normalizeLabel(tenant)).Inc()
}

func (m *OrderMetrics) IncPlaceFailed(tenant, reason string) {
	if m == nil || m.placeFailed == nil {
		return
	}
	m.placeFailed.WithLabelValues(normalizeLabel(tenant), normalizeLabel(reason)).Inc()
}

func (m *OrderMetrics) IncTransition(tenant, status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(tenant), normalizeLabel(status)).Inc()
}

func (m *OrderMetrics) ObservePlaceDuration(tenant string, d time.Duration) {
	if m == nil || m.placeDuration == nil {
		return
	}
	m.placeDuration.WithLabelValues(normalizeLabel(tenant)).Observe(d.Seconds())
}

func (m *OrderMetrics) IncPaymentEvent(tenant, outcome string) {
	if m == nil || m.paymentEvents == nil {
		return
	}
	m.paymentEvents.WithLabelValues(normalizeLabel(tenant), normalizeLabel(outcome)).Inc()
}

func (m *OrderMetrics) IncCourierEvent(tenant, outcome string) {
	if m == nil || m.courierEvents == nil {
		return
	}
	m.courierEvents.WithLabelValues(normalizeLabel(tenant), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
