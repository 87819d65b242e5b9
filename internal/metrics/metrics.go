package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for stationcal.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts mock API requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stationcal_http_requests_total", Help: "Total mock API requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records mock API request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "stationcal_http_request_duration_seconds", Help: "Mock API request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	// RateLimited counts requests rejected by the mock API limiter.
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stationcal_http_rate_limited_total", Help: "Mock API requests rejected by the rate limiter."},
	)

	// ClientCalls counts booking API client operations by outcome.
	ClientCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stationcal_client_calls_total", Help: "Booking API client calls by operation and outcome."},
		[]string{"operation", "outcome"},
	)
	// Superseded counts async results discarded because a newer request replaced them.
	Superseded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stationcal_superseded_results_total", Help: "Async results discarded as superseded, by slot."},
		[]string{"slot"},
	)
	// ExportedEvents counts bookings endpoints pushed to Google Calendar.
	ExportedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stationcal_exported_events_total", Help: "Calendar events written by week export."},
	)
)

// Outcome labels for ClientCalls.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// RegisterDefault registers collectors to the stationcal registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(RateLimited)
		Registry.MustRegister(ClientCalls)
		Registry.MustRegister(Superseded)
		Registry.MustRegister(ExportedEvents)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
