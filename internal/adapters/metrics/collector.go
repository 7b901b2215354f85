package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Kind distinguishes request vs query observations.
type Kind uint8

const (
	KindRequest Kind = iota
	KindQuery
)

// Entry is a single timing observation.
type Entry struct {
	Kind       Kind
	Path       string // route pattern for requests, "Store.Method" or SQL op for queries
	Method     string // HTTP method (empty for queries)
	StatusCode int    // HTTP status (0 for queries)
	Duration   time.Duration
}

// Collector owns a private Prometheus registry with request, query and domain event series.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry
	requests *prometheus.HistogramVec
	queries  *prometheus.HistogramVec
	events   *prometheus.CounterVec
	recorded atomic.Uint64
}

// NewCollector creates a collector with Go runtime and process metrics registered.
// PRE: none
// POST: Returns a ready-to-use collector; Handler serves its registry
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coachdesk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		queries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coachdesk",
			Name:      "db_query_duration_seconds",
			Help:      "Database call latency by operation.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, 1},
		}, []string{"op"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coachdesk",
			Name:      "domain_events_total",
			Help:      "Committed domain events by name.",
		}, []string{"event"}),
	}
	reg.MustRegister(
		c.requests, c.queries, c.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Record stores one observation.
// PRE: e.Kind is KindRequest or KindQuery
// POST: the matching histogram is updated
func (c *Collector) Record(e Entry) {
	if c == nil {
		return
	}
	c.recorded.Add(1)
	switch e.Kind {
	case KindRequest:
		c.requests.WithLabelValues(e.Method, e.Path, strconv.Itoa(e.StatusCode)).Observe(e.Duration.Seconds())
	case KindQuery:
		c.queries.WithLabelValues(e.Path).Observe(e.Duration.Seconds())
	}
}

// TotalRecorded returns the number of observations recorded since creation.
func (c *Collector) TotalRecorded() uint64 {
	if c == nil {
		return 0
	}
	return c.recorded.Load()
}

// CountEvent increments the counter for a committed domain event.
func (c *Collector) CountEvent(name string) {
	if c == nil {
		return
	}
	c.events.WithLabelValues(name).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
