// Package metrics exposes Prometheus instrumentation for API fetches and
// refresh cycles.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API request metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitals_api_requests_total",
			Help: "Total number of API requests by endpoint and status code",
		},
		[]string{"endpoint", "status"}, // status is "error" when no response arrived
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vitals_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitals_api_retries_total",
			Help: "Total number of retried API attempts by error kind",
		},
		[]string{"kind"},
	)

	APIPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitals_api_pages_total",
			Help: "Total number of pages drained by endpoint",
		},
		[]string{"endpoint"},
	)

	// Refresh cycle metrics
	RefreshCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitals_refresh_cycles_total",
			Help: "Total number of refresh cycles by outcome",
		},
		[]string{"outcome"}, // "success", "error", "not_configured", "cancelled"
	)

	RefreshCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vitals_refresh_cycle_duration_seconds",
			Help:    "Duration of refresh cycles in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	RefreshInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitals_refresh_in_progress",
			Help: "1 while a refresh cycle is running",
		},
	)

	RefreshSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitals_refresh_skipped_total",
			Help: "Total number of refresh requests dropped because a cycle was running",
		},
	)

	// Schedule metrics
	EffectiveIntervalSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitals_effective_refresh_interval_seconds",
			Help: "Current timer period in seconds, 0 when manual",
		},
	)

	PowerConstrained = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitals_power_constrained",
			Help: "1 when the device is on battery or in low-power mode",
		},
	)

	// Control server metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitals_websocket_connections",
			Help: "Current number of snapshot stream subscribers",
		},
	)
)

// RecordAPIRequest records one HTTP round trip. status is 0 when the
// transport failed before a response arrived.
func RecordAPIRequest(endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	APIRequestsTotal.WithLabelValues(endpoint, label).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRetry records a retried attempt.
func RecordRetry(kind string) {
	APIRetriesTotal.WithLabelValues(kind).Inc()
}

// RecordPage records one drained page.
func RecordPage(endpoint string) {
	APIPagesTotal.WithLabelValues(endpoint).Inc()
}

// RecordCycle records a finished refresh cycle.
func RecordCycle(outcome string, duration time.Duration) {
	RefreshCyclesTotal.WithLabelValues(outcome).Inc()
	RefreshCycleDuration.Observe(duration.Seconds())
}

// SetSchedule publishes the current timer state.
func SetSchedule(effective time.Duration, constrained bool) {
	EffectiveIntervalSeconds.Set(effective.Seconds())
	if constrained {
		PowerConstrained.Set(1)
	} else {
		PowerConstrained.Set(0)
	}
}
