package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Polling cycle metrics
	Cycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_cycles_total",
			Help: "Total number of polling cycles",
		},
		[]string{"status"}, // success, partial
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "whalewatch_cycle_duration_seconds",
			Help:    "Duration of a full polling cycle",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	EventsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_events_detected_total",
			Help: "Total number of whale events above threshold",
		},
		[]string{"kind", "asset"}, // onchain_transfer/exchange_order, BTC/ETH
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_source_failures_total",
			Help: "Total number of sources that returned no batch in a cycle",
		},
		[]string{"source"},
	)

	// Alert metrics
	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_alerts_sent_total",
			Help: "Total number of alerts sent",
		},
		[]string{"status", "type"}, // success/error, onchain_transfer/exchange_order
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whalewatch_alerts_suppressed_total",
			Help: "Total number of events suppressed as already alerted",
		},
	)

	// API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_api_requests_total",
			Help: "Total number of upstream API requests",
		},
		[]string{"api", "endpoint", "status"}, // blockchain/etherscan/coinbase..., success/error
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whalewatch_api_request_duration_seconds",
			Help:    "Duration of upstream API requests",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"api", "endpoint"},
	)

	ThresholdUSD = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "whalewatch_threshold_usd",
			Help: "Current whale threshold in USD",
		},
		[]string{"asset"},
	)

	// System health
	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_health_checks_total",
			Help: "Total number of health check requests",
		},
		[]string{"status"}, // healthy/unhealthy
	)
)

// RecordCycle records a finished polling cycle
func RecordCycle(duration time.Duration, failedSources int) {
	status := "success"
	if failedSources > 0 {
		status = "partial"
	}
	Cycles.WithLabelValues(status).Inc()
	CycleDuration.Observe(duration.Seconds())
}

// RecordEvent records a detected whale event
func RecordEvent(kind, asset string) {
	EventsDetected.WithLabelValues(kind, asset).Inc()
}

// RecordSourceFailure records a source that failed for a cycle
func RecordSourceFailure(source string) {
	SourceFailures.WithLabelValues(source).Inc()
}

// RecordAlert records alert metrics
func RecordAlert(eventType string, err error, suppressed bool) {
	if suppressed {
		AlertsSuppressed.Inc()
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	AlertsSent.WithLabelValues(status, eventType).Inc()
}

// RecordAPIRequest records API request metrics
func RecordAPIRequest(api, endpoint string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	APIRequests.WithLabelValues(api, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(api, endpoint).Observe(duration.Seconds())
}

// SetThreshold publishes the current threshold of an asset
func SetThreshold(asset string, usd float64) {
	ThresholdUSD.WithLabelValues(asset).Set(usd)
}

// RecordHealthCheck records health check status
func RecordHealthCheck(healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecks.WithLabelValues(status).Inc()
}
