// package metrics defines the Prometheus instruments crate exports.
//
// Instruments are created against an injected [prometheus.Registerer] so tests
// and multiple engines in one process do not collide on the default registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crate"

// Metrics groups the counters, gauges and histograms for API calls, sync runs and the HTTP surface.
type Metrics struct {
	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIRetries         *prometheus.CounterVec
	BreakerState       *prometheus.GaugeVec

	SyncRuns     *prometheus.CounterVec
	SyncDuration prometheus.Histogram
	SyncRows     *prometheus.CounterVec
	SyncInFlight prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
}

// New registers every instrument with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		APIRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Catalog API requests by method and response status",
			},
			[]string{"method", "status_code"},
		),
		APIRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Catalog API request latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		APIRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_retries_total",
				Help:      "Catalog API retries by the status that triggered them",
			},
			[]string{"status_code"},
		),
		BreakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		SyncRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Collection synchronization runs by outcome",
			},
			[]string{"outcome"},
		),
		SyncDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Duration of collection synchronization runs in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		SyncRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_rows_inserted_total",
				Help:      "Rows newly inserted by synchronization runs, by kind",
			},
			[]string{"kind"},
		),
		SyncInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sync_in_flight",
				Help:      "Synchronization runs currently executing",
			},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served by route and status",
			},
			[]string{"method", "route", "status_code"},
		),
	}
}

// ObserveAPIRequest records one upstream attempt. status is 0 for transport failures.
func (m *Metrics) ObserveAPIRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.APIRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) IncRetry(status int) {
	if m == nil {
		return
	}
	m.APIRetries.WithLabelValues(strconv.Itoa(status)).Inc()
}

// SetBreakerState stores state as 0 closed, 1 half-open, 2 open.
func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(state)
}

// SyncStarted marks a run in flight and returns a func that completes it.
func (m *Metrics) SyncStarted() func(outcome string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.SyncInFlight.Inc()
	return func(outcome string) {
		m.SyncInFlight.Dec()
		m.SyncRuns.WithLabelValues(outcome).Inc()
		m.SyncDuration.Observe(time.Since(start).Seconds())
	}
}

// AddRows adds n inserted rows of kind.
func (m *Metrics) AddRows(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SyncRows.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) ObserveHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
