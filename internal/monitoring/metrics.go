package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	FetchesTotal        *prometheus.CounterVec
	CacheLookupsTotal   *prometheus.CounterVec
	ItemLookupsTotal    *prometheus.CounterVec
	RenderDuration      *prometheus.HistogramVec
	CommandsTotal       *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "armory_upstream_fetches_total",
			Help: "Upstream page fetches by target and outcome.",
		}, []string{"target", "outcome"}), // outcome: ok, http_error, timeout, network_error
		CacheLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "armory_cache_lookups_total",
			Help: "Cache lookups by namespace and result.",
		}, []string{"namespace", "result"}), // result: hit, miss, stale, corrupt
		ItemLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "armory_item_lookups_total",
			Help: "Item metadata resolutions by result.",
		}, []string{"result"}),
		RenderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "armory_render_duration_seconds",
			Help:    "Time spent rasterizing a card.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		}, []string{"card", "backend"}),
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "armory_commands_total",
			Help: "Executed commands by name and outcome.",
		}, []string{"command", "outcome"}), // outcome: ok, not_found, failed
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

func (m *Metrics) IncFetch(target, outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(target, outcome).Inc()
}

func (m *Metrics) IncCacheLookup(namespace, result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(namespace, result).Inc()
}

func (m *Metrics) IncItemLookup(result string) {
	if m == nil {
		return
	}
	m.ItemLookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRender(card, backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.RenderDuration.WithLabelValues(card, backend).Observe(d.Seconds())
}

func (m *Metrics) IncCommand(command, outcome string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}
