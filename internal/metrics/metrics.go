package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PlansTotal counts optimization runs by tenant
	PlansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_plans_total", Help: "Route optimization runs."},
		[]string{"tenant"},
	)
	// JobsRouted counts jobs placed on routes vs left unrouted
	JobsRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_plan_jobs_total", Help: "Jobs handled per plan by outcome."},
		[]string{"tenant", "outcome"},
	)
	// OptimizeDuration records how long a full plan takes
	OptimizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_optimize_duration_seconds", Help: "Route plan wall time in seconds.", Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}},
	)
	// RefinementSavings tracks miles shaved off the greedy tour per route
	RefinementSavings = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_refinement_saved_miles", Help: "Distance saved by tour refinement per route, miles.", Buckets: []float64{0, 0.5, 1, 2, 5, 10, 25, 50}},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PlansTotal)
		Registry.MustRegister(JobsRouted)
		Registry.MustRegister(OptimizeDuration)
		Registry.MustRegister(RefinementSavings)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
