package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Deliveries counts webhook delivery outcomes by event type and outcome
	// (delivered, retried, failed).
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook delivery attempts by event type and outcome."},
		[]string{"event_type", "outcome"},
	)
	// DeliveryLatency tracks outbound send latencies in milliseconds.
	DeliveryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 15000}},
		[]string{"event_type", "outcome"},
	)
	// DispatchCycles counts dispatcher invocations.
	DispatchCycles = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "webhook_dispatch_cycles_total", Help: "Dispatch cycles executed."},
	)
	// DispatchBatchSize tracks how many rows each cycle examined.
	DispatchBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "webhook_dispatch_batch_size", Help: "Rows examined per dispatch cycle.", Buckets: []float64{0, 1, 5, 10, 25, 50}},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Deliveries)
		Registry.MustRegister(DeliveryLatency)
		Registry.MustRegister(DispatchCycles)
		Registry.MustRegister(DispatchBatchSize)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
