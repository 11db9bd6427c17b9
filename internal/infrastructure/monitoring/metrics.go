package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pushd"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Registration metrics
	Registrations    *prometheus.CounterVec
	Unregistrations  *prometheus.CounterVec
	LiveReservations prometheus.Gauge
	Owners           prometheus.Gauge

	// Signal and launch metrics
	Signals        *prometheus.CounterVec
	SignalsDropped prometheus.Counter
	Launches       *prometheus.CounterVec
	LaunchDuration prometheus.Histogram

	// Bootstrap metrics
	BootstrapRecords *prometheus.CounterVec

	// Store metrics
	StoreOps      *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec

	Uptime    prometheus.Gauge
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON stats API
type Snapshot struct {
	TotalRequests  int64   `json:"total_requests"`
	TotalErrors    int64   `json:"total_errors"`
	Registrations  int64   `json:"registrations"`
	Signals        int64   `json:"signals"`
	Launches       int64   `json:"launches"`
	LaunchFailures int64   `json:"launch_failures"`
	AvgLatencyMS   float64 `json:"avg_latency_ms"`
	UptimeSeconds  float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),

		Registrations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Registration attempts by scheme and result",
			},
			[]string{"scheme", "result"},
		),
		Unregistrations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unregistrations_total",
				Help:      "Unregistration attempts by result",
			},
			[]string{"result"},
		),
		LiveReservations: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reservations_live",
				Help:      "Number of live reservations",
			},
		),
		Owners: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "owners",
				Help:      "Number of owners holding at least one reservation",
			},
		),

		Signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_total",
				Help:      "Data-arrival signals dispatched by scheme",
			},
			[]string{"scheme"},
		),
		SignalsDropped: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_dropped_total",
				Help:      "Signals ignored because their reservation was gone or canceled",
			},
		),
		Launches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "launches_total",
				Help:      "Launch requests by result",
			},
			[]string{"result"},
		),
		LaunchDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "launch_duration_seconds",
				Help:      "Time taken to launch or resume a target",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),

		BootstrapRecords: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bootstrap_records_total",
				Help:      "Persisted records processed at startup by result",
			},
			[]string{"result"},
		),

		StoreOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Persistent store operations by result",
			},
			[]string{"op", "result"},
		),
		StoreDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Persistent store operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op"},
		),

		Uptime: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "uptime_seconds",
				Help:      "Daemon uptime in seconds",
			},
		),
	}
}

// RunUptime updates the uptime gauge every second until ctx is done
func (m *Metrics) RunUptime(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		}
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordRegistration records a registration attempt
func (m *Metrics) RecordRegistration(scheme string, err error) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(scheme, result(err)).Inc()
	if err == nil {
		m.mu.Lock()
		m.snapshot.Registrations++
		m.mu.Unlock()
	}
}

// RecordUnregistration records an unregistration attempt
func (m *Metrics) RecordUnregistration(err error) {
	if m == nil {
		return
	}
	m.Unregistrations.WithLabelValues(result(err)).Inc()
}

// SetReservations publishes registry sizes
func (m *Metrics) SetReservations(live, owners int) {
	if m == nil {
		return
	}
	m.LiveReservations.Set(float64(live))
	m.Owners.Set(float64(owners))
}

// RecordSignal records a dispatched data-arrival signal
func (m *Metrics) RecordSignal(scheme string) {
	if m == nil {
		return
	}
	m.Signals.WithLabelValues(scheme).Inc()
	m.mu.Lock()
	m.snapshot.Signals++
	m.mu.Unlock()
}

// IncSignalsDropped records a signal for a reservation that no longer exists
func (m *Metrics) IncSignalsDropped() {
	if m == nil {
		return
	}
	m.SignalsDropped.Inc()
}

// RecordLaunch records a launch request
func (m *Metrics) RecordLaunch(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.Launches.WithLabelValues(result(err)).Inc()
	m.LaunchDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Launches++
	if err != nil {
		m.snapshot.LaunchFailures++
	}
	m.mu.Unlock()
}

// RecordBootstrap records one persisted record processed at startup
func (m *Metrics) RecordBootstrap(outcome string) {
	if m == nil {
		return
	}
	m.BootstrapRecords.WithLabelValues(outcome).Inc()
}

// RecordStoreOp records a persistent store call
func (m *Metrics) RecordStoreOp(op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.StoreOps.WithLabelValues(op, result(err)).Inc()
	m.StoreDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// GetSnapshot returns current values for the JSON stats API
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AvgLatencyMS = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
