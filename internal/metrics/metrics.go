// Package metrics records gateway counters in a private Prometheus registry and renders
// both the Prometheus exposition and the compact JSON snapshot served at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "goodbooks"

// Metrics holds every collector of the service.
type Metrics struct {
	registry *prometheus.Registry
	started  time.Time

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimited     prometheus.Counter
	ratingWrites    *prometheus.CounterVec
}

// Snapshot is the JSON body of GET /metrics.
type Snapshot struct {
	UptimeS           int64 `json:"uptime_s"`
	RequestsTotal     int64 `json:"requests_total"`
	RateLimitedTotal  int64 `json:"rate_limited_total"`
	RatingWritesTotal int64 `json:"rating_writes_total"`
}

// New creates the collectors and registers them, together with the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		ratingWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_writes_total",
			Help:      "Successful rating upserts by outcome.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.rateLimited,
		m.ratingWrites,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one served request. route is the router pattern, not the raw path,
// to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RateLimited counts one rejected request.
func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}

// RatingWritten counts one rating upsert. created distinguishes inserts from updates.
func (m *Metrics) RatingWritten(created bool) {
	status := "updated"
	if created {
		status = "created"
	}
	m.ratingWrites.WithLabelValues(status).Inc()
}

// Snapshot sums the counters into the JSON summary.
func (m *Metrics) Snapshot() (Snapshot, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{UptimeS: int64(time.Since(m.started).Seconds())}
	for _, f := range families {
		total := sumCounters(f)
		switch f.GetName() {
		case namespace + "_http_requests_total":
			snap.RequestsTotal = total
		case namespace + "_rate_limited_total":
			snap.RateLimitedTotal = total
		case namespace + "_rating_writes_total":
			snap.RatingWritesTotal = total
		}
	}
	return snap, nil
}

// Handler serves the Prometheus exposition of the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func sumCounters(f *dto.MetricFamily) int64 {
	if f.GetType() != dto.MetricType_COUNTER {
		return 0
	}
	var total float64
	for _, metric := range f.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	return int64(total)
}
