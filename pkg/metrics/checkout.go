package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records the payment funnel: session creation per provider
// and webhook reconciliation outcomes.
type CheckoutMetrics struct {
	sessions           *prometheus.CounterVec
	webhookEvents      *prometheus.CounterVec
	webhookDuration    *prometheus.HistogramVec
	inventoryConflicts prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Checkout sessions created, by provider and outcome.",
	}, []string{"provider", "outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment webhook events received, by outcome.",
	}, []string{"outcome"})
	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_webhook_duration_seconds",
		Help:    "Duration of webhook reconciliation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	inventoryConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_inventory_conflicts_total",
		Help: "Checkout attempts rejected for insufficient stock.",
	})
	reg.MustRegister(sessions, webhookEvents, webhookDuration, inventoryConflicts)
	return &CheckoutMetrics{
		sessions:           sessions,
		webhookEvents:      webhookEvents,
		webhookDuration:    webhookDuration,
		inventoryConflicts: inventoryConflicts,
	}
}

// IncSession counts a session-creation attempt for the named provider.
func (c *CheckoutMetrics) IncSession(provider, outcome string) {
	if c == nil || c.sessions == nil {
		return
	}
	c.sessions.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// IncWebhookEvent counts a processed webhook delivery.
func (c *CheckoutMetrics) IncWebhookEvent(outcome string) {
	if c == nil || c.webhookEvents == nil {
		return
	}
	c.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveWebhookDuration records how long reconciliation took.
func (c *CheckoutMetrics) ObserveWebhookDuration(outcome string, duration time.Duration) {
	if c == nil || c.webhookDuration == nil {
		return
	}
	c.webhookDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncInventoryConflict counts a stock-conflict rejection.
func (c *CheckoutMetrics) IncInventoryConflict() {
	if c == nil || c.inventoryConflicts == nil {
		return
	}
	c.inventoryConflicts.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
