package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records Stripe webhook intake and fulfillment outcomes.
type WebhookMetrics struct {
	events      *prometheus.CounterVec
	fulfillment *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Received webhook events by type and outcome.",
	}, []string{"event_type", "outcome"})
	fulfillment := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_total",
		Help: "Purchase fulfillment attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_duration_seconds",
		Help:    "Duration of webhook event handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	reg.MustRegister(events, fulfillment, duration)
	return &WebhookMetrics{
		events:      events,
		fulfillment: fulfillment,
		duration:    duration,
	}
}

// IncEvent counts one webhook event with its outcome.
func (w *WebhookMetrics) IncEvent(eventType, outcome string) {
	if w == nil || w.events == nil {
		return
	}
	w.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// IncFulfillment counts one fulfillment attempt with its outcome.
func (w *WebhookMetrics) IncFulfillment(outcome string) {
	if w == nil || w.fulfillment == nil {
		return
	}
	w.fulfillment.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDuration records handling time for the event type.
func (w *WebhookMetrics) ObserveDuration(eventType string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
