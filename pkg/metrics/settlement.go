package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics counts order, payment and payout outcomes.
type SettlementMetrics struct {
	ordersCreated       *prometheus.CounterVec
	orderTransitions    *prometheus.CounterVec
	deliverySyncFailure *prometheus.CounterVec
	payments            *prometheus.CounterVec
	payouts             *prometheus.CounterVec
	webhookEvents       *prometheus.CounterVec
	gatewayDuration     *prometheus.HistogramVec
}

// NewSettlementMetrics registers the settlement metrics on reg. A nil
// registerer yields a no-op recorder.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	m := &SettlementMetrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created, by order type.",
		}, []string{"order_type"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status transitions.",
		}, []string{"from", "to"}),
		deliverySyncFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_sync_failures_total",
			Help: "Delivery record updates that failed after an order transition committed.",
		}, []string{"status"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_verifications_total",
			Help: "Payment verification outcomes.",
		}, []string{"outcome"}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_requests_processed_total",
			Help: "Payout request outcomes.",
		}, []string{"outcome"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_webhook_events_total",
			Help: "Gateway webhook deliveries by event and result.",
		}, []string{"event", "result"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Latency of payment gateway calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(
		m.ordersCreated,
		m.orderTransitions,
		m.deliverySyncFailure,
		m.payments,
		m.payouts,
		m.webhookEvents,
		m.gatewayDuration,
	)
	return m
}

func (m *SettlementMetrics) IncOrderCreated(orderType string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(orderType)).Inc()
}

func (m *SettlementMetrics) IncTransition(from, to string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *SettlementMetrics) IncDeliverySyncFailure(status string) {
	if m == nil || m.deliverySyncFailure == nil {
		return
	}
	m.deliverySyncFailure.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *SettlementMetrics) IncPayment(outcome string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *SettlementMetrics) IncPayout(outcome string) {
	if m == nil || m.payouts == nil {
		return
	}
	m.payouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *SettlementMetrics) IncWebhook(event, result string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(event), normalizeLabel(result)).Inc()
}

// ObserveGateway records how long a gateway operation took.
func (m *SettlementMetrics) ObserveGateway(operation string, started time.Time) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(normalizeLabel(operation)).Observe(time.Since(started).Seconds())
}
