// Package metrics provides the Prometheus metrics of the alert engine.
//
// All recording methods are safe on a nil *Metrics, so components built
// without metrics (tests, the CLI) need no special casing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the counters and gauges of the notification engine.
type Metrics struct {
	DeliveriesTotal         *prometheus.CounterVec // Delivery attempts by status and failure kind
	DeliveryDuration        prometheus.Histogram   // Latency of a single delivery attempt
	AlertsOpenedTotal       prometheus.Counter     // Alerts opened
	AlertsResolvedTotal     *prometheus.CounterVec // Alerts resolved by cause
	AlertsActive            prometheus.Gauge       // Alerts currently active
	NotificationFailedTotal prometheus.Counter     // Alerts where every delivery failed
	DetectionsTotal         *prometheus.CounterVec // Detections by outcome
	collectors              []prometheus.Collector
}

// New creates the metrics and registers them with registerer.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		DeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echopulse_deliveries_total",
				Help: "Total number of contact delivery attempts by status and failure kind",
			},
			[]string{"status", "kind"},
		),
		DeliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "echopulse_delivery_duration_seconds",
			Help:    "Time taken by a single contact delivery attempt",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0}, // 10ms to 10s
		}),
		AlertsOpenedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "echopulse_alerts_opened_total",
			Help: "Total number of alerts opened",
		}),
		AlertsResolvedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echopulse_alerts_resolved_total",
				Help: "Total number of alerts resolved by cause",
			},
			[]string{"cause"}, // cause: manual, timeout
		),
		AlertsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "echopulse_alerts_active",
			Help: "Number of alerts currently active",
		}),
		NotificationFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "echopulse_notification_failed_total",
			Help: "Total number of alerts for which every delivery attempt failed",
		}),
		DetectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echopulse_detections_total",
				Help: "Total number of detections by outcome",
			},
			[]string{"outcome"}, // outcome: alert, ignored, filtered, duplicate, error
		),
	}

	m.collectors = []prometheus.Collector{
		m.DeliveriesTotal,
		m.DeliveryDuration,
		m.AlertsOpenedTotal,
		m.AlertsResolvedTotal,
		m.AlertsActive,
		m.NotificationFailedTotal,
		m.DetectionsTotal,
	}

	for _, c := range m.collectors {
		if err := registerer.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return m, nil
}

// ObserveDelivery records one delivery attempt.
func (m *Metrics) ObserveDelivery(status, kind string, took time.Duration) {
	if m == nil {
		return
	}

	m.DeliveriesTotal.WithLabelValues(status, kind).Inc()
	m.DeliveryDuration.Observe(took.Seconds())
}

// AlertOpened records a new alert.
func (m *Metrics) AlertOpened(notificationFailed bool) {
	if m == nil {
		return
	}

	m.AlertsOpenedTotal.Inc()
	m.AlertsActive.Inc()

	if notificationFailed {
		m.NotificationFailedTotal.Inc()
	}
}

// AlertResolved records a terminal transition.
func (m *Metrics) AlertResolved(cause string) {
	if m == nil {
		return
	}

	m.AlertsResolvedTotal.WithLabelValues(cause).Inc()
	m.AlertsActive.Dec()
}

// Detection records the outcome of an incoming detection.
func (m *Metrics) Detection(outcome string) {
	if m == nil {
		return
	}

	m.DetectionsTotal.WithLabelValues(outcome).Inc()
}
