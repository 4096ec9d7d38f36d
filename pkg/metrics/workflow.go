package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hyperlocal"

// WorkflowMetrics counts order and delivery lifecycle events. A nil receiver
// or a receiver built without a registerer records nothing.
type WorkflowMetrics struct {
	ordersCreated     prometheus.Counter
	orderRejections   *prometheus.CounterVec
	orderTransitions  *prometheus.CounterVec
	deliveryDecisions *prometheus.CounterVec
	acceptConflicts   prometheus.Counter
	outboxPublished   *prometheus.CounterVec
	outboxFailed      *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders persisted successfully.",
	})
	orderRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_create_rejected_total",
		Help:      "Order placement attempts refused, by error code.",
	}, []string{"code"})
	orderTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Order status transitions applied.",
	}, []string{"from", "to", "role"})
	deliveryDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_decisions_total",
		Help:      "Delivery partner actions on requests.",
	}, []string{"action"})
	acceptConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_accept_conflicts_total",
		Help:      "Accept attempts that lost the race for a request.",
	})
	outboxPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Outbox events relayed to the broker.",
	}, []string{"event_type"})
	outboxFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_failed_total",
		Help:      "Outbox publish failures, by outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(ordersCreated, orderRejections, orderTransitions, deliveryDecisions, acceptConflicts, outboxPublished, outboxFailed)
	return &WorkflowMetrics{
		ordersCreated:     ordersCreated,
		orderRejections:   orderRejections,
		orderTransitions:  orderTransitions,
		deliveryDecisions: deliveryDecisions,
		acceptConflicts:   acceptConflicts,
		outboxPublished:   outboxPublished,
		outboxFailed:      outboxFailed,
	}
}

func (m *WorkflowMetrics) IncOrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *WorkflowMetrics) IncOrderRejected(code string) {
	if m == nil || m.orderRejections == nil {
		return
	}
	m.orderRejections.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *WorkflowMetrics) IncOrderTransition(from, to, role string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(role)).Inc()
}

// IncDeliveryDecision counts accept, reject, pickup and complete actions.
func (m *WorkflowMetrics) IncDeliveryDecision(action string) {
	if m == nil || m.deliveryDecisions == nil {
		return
	}
	m.deliveryDecisions.WithLabelValues(normalizeLabel(action)).Inc()
}

func (m *WorkflowMetrics) IncAcceptConflict() {
	if m == nil || m.acceptConflicts == nil {
		return
	}
	m.acceptConflicts.Inc()
}

func (m *WorkflowMetrics) IncOutboxPublished(eventType string) {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncOutboxFailed records a failed publish; outcome is "retry" or "dlq".
func (m *WorkflowMetrics) IncOutboxFailed(eventType, outcome string) {
	if m == nil || m.outboxFailed == nil {
		return
	}
	m.outboxFailed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
