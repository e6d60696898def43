package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics records outbox publishing and mailer consumption.
type WorkerMetrics struct {
	published *prometheus.CounterVec
	delivered *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewWorkerMetrics registers the worker metrics on the provided registerer.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		return &WorkerMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published to Pub/Sub by outcome.",
	}, []string{"event_type", "outcome"})
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mail_delivered_total",
		Help: "Emails handled by the mailer worker by outcome.",
	}, []string{"event_type", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mail_delivery_duration_seconds",
		Help:    "Duration of mail deliveries in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	reg.MustRegister(published, delivered, duration)
	return &WorkerMetrics{
		published: published,
		delivered: delivered,
		duration:  duration,
	}
}

// IncPublished counts one publish attempt for the event type.
func (w *WorkerMetrics) IncPublished(eventType, outcome string) {
	if w == nil || w.published == nil {
		return
	}
	w.published.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// IncDelivered counts one mail delivery attempt for the event type.
func (w *WorkerMetrics) IncDelivered(eventType, outcome string) {
	if w == nil || w.delivered == nil {
		return
	}
	w.delivered.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveDelivery records the time taken to deliver one email.
func (w *WorkerMetrics) ObserveDelivery(eventType string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}
