package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pulse-fitness/notifier/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	PersistErrors       prometheus.Counter
	SendLatency         *prometheus.HistogramVec
	DispatchRuns        *prometheus.CounterVec
	DispatchDuration    prometheus.Histogram
	DispatchFetched     prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_notifications_sent_total",
			Help: "Total number of emails accepted by the SMTP relay.",
		}, []string{"variant"}),

		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_notifications_failed_total",
			Help: "Total number of queue rows marked processed with an error.",
		}, []string{"variant"}),

		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_notification_persist_errors_total",
			Help: "Outcome writes that failed after a send attempt; the row stays pending until its claim lease expires.",
		}),

		SendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pulse_notification_send_seconds",
			Help:    "Time from render to relay acknowledgement for a single email.",
			Buckets: prometheus.DefBuckets,
		}, []string{"variant"}),

		DispatchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_dispatch_runs_total",
			Help: "Dispatcher invocations by outcome (ok, empty, fatal, skipped).",
		}, []string{"outcome"}),

		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_dispatch_run_seconds",
			Help:    "Wall time of a dispatcher invocation.",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		DispatchFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_dispatch_fetched",
			Help: "Rows claimed by the most recent dispatcher invocation.",
		}),
	}

	reg.MustRegister(
		m.NotificationsSent,
		m.NotificationsFailed,
		m.PersistErrors,
		m.SendLatency,
		m.DispatchRuns,
		m.DispatchDuration,
		m.DispatchFetched,
	)

	return m
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
// Centralises the prometheus observation calls so the worker package stays import-free.
func (m *Metrics) WorkerHooks() (
	onSent func(domain.Variant, time.Duration),
	onFailed func(domain.Variant),
	onPersistFailed func(),
	onRun func(outcome string, fetched int, elapsed time.Duration),
) {
	onSent = func(v domain.Variant, latency time.Duration) {
		m.NotificationsSent.WithLabelValues(string(v)).Inc()
		m.SendLatency.WithLabelValues(string(v)).Observe(latency.Seconds())
	}
	onFailed = func(v domain.Variant) {
		m.NotificationsFailed.WithLabelValues(string(v)).Inc()
	}
	onPersistFailed = func() {
		m.PersistErrors.Inc()
	}
	onRun = func(outcome string, fetched int, elapsed time.Duration) {
		m.DispatchRuns.WithLabelValues(outcome).Inc()
		m.DispatchDuration.Observe(elapsed.Seconds())
		m.DispatchFetched.Set(float64(fetched))
	}
	return
}
