package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Every method
// is safe to call on a nil *Collector, which records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Engine metrics
	MergeDuration      prometheus.Histogram
	SourceFailures     *prometheus.CounterVec
	CycleWarnings      *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	MovesRejected      *prometheus.CounterVec
	NodeWrites         *prometheus.CounterVec
	HandlerDuration    *prometheus.HistogramVec

	// Integration metrics
	EventsPublished *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		MergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tree_merge_duration_seconds",
				Help:      "Time to fetch and merge both snippet sources",
				Buckets:   prometheus.DefBuckets,
			},
		),
		SourceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_failures_total",
				Help:      "Failed calls to a snippet source",
			},
			[]string{"provenance", "operation"},
		),
		CycleWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hierarchy_cycles_total",
				Help:      "Branches excluded because stored parent links loop",
			},
			[]string{"provenance"},
		),
		ValidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Writes rejected by node validation",
			},
			[]string{"provenance"},
		),
		MovesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "moves_rejected_total",
				Help:      "Moves rejected because the destination was not legal",
			},
			[]string{"provenance"},
		),
		NodeWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_writes_total",
				Help:      "Successful node writes",
			},
			[]string{"provenance", "operation"},
		),
		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_duration_seconds",
				Help:      "Command and query handler duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind", "name", "status"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Change events handed to the event bus",
			},
			[]string{"status"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.MergeDuration,
		c.SourceFailures,
		c.CycleWarnings,
		c.ValidationFailures,
		c.MovesRejected,
		c.NodeWrites,
		c.HandlerDuration,
		c.EventsPublished,
		c.BreakerState,
	)

	return c
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordMerge(duration time.Duration) {
	if c == nil {
		return
	}
	c.MergeDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordSourceFailure(provenance, operation string) {
	if c == nil {
		return
	}
	c.SourceFailures.WithLabelValues(provenance, operation).Inc()
}

func (c *Collector) RecordCycles(provenance string, count int) {
	if c == nil || count == 0 {
		return
	}
	c.CycleWarnings.WithLabelValues(provenance).Add(float64(count))
}

func (c *Collector) RecordValidationFailure(provenance string) {
	if c == nil {
		return
	}
	c.ValidationFailures.WithLabelValues(provenance).Inc()
}

func (c *Collector) RecordMoveRejected(provenance string) {
	if c == nil {
		return
	}
	c.MovesRejected.WithLabelValues(provenance).Inc()
}

func (c *Collector) RecordNodeWrite(provenance, operation string) {
	if c == nil {
		return
	}
	c.NodeWrites.WithLabelValues(provenance, operation).Inc()
}

// RecordHandler observes one command or query dispatch
func (c *Collector) RecordHandler(kind, name string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.HandlerDuration.WithLabelValues(kind, name, status).Observe(duration.Seconds())
}

func (c *Collector) RecordEventsPublished(status string, count int) {
	if c == nil || count == 0 {
		return
	}
	c.EventsPublished.WithLabelValues(status).Add(float64(count))
}

func (c *Collector) SetBreakerState(name string, state float64) {
	if c == nil {
		return
	}
	c.BreakerState.WithLabelValues(name).Set(state)
}
