package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry. All methods are
// safe to call on a nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	CatalogProducts     prometheus.Gauge
	CatalogFetchErrors  *prometheus.CounterVec
	SubmissionsTotal    *prometheus.CounterVec
	FormSessionsOpen    prometheus.Gauge
	RedirectsDispatched prometheus.Counter
}

// New registers all collectors under the given name prefix
func New(prefix string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		CatalogProducts: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_catalog_products",
				Help: "Number of products currently held in the catalog",
			},
		),
		CatalogFetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_catalog_fetch_errors_total",
				Help: "Total number of failed catalog document fetches",
			},
			[]string{"source"},
		),
		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_submissions_total",
				Help: "Total number of product submissions by outcome",
			},
			[]string{"outcome"},
		),
		FormSessionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_form_sessions_open",
				Help: "Number of add-product forms currently open",
			},
		),
		RedirectsDispatched: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_form_redirects_total",
				Help: "Total number of delayed redirects that fired on a live form",
			},
		),
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.CatalogProducts.Set(float64(n))
}

func (m *Metrics) RecordFetchError(source string) {
	if m == nil {
		return
	}
	m.CatalogFetchErrors.WithLabelValues(source).Inc()
}

// RecordSubmission counts a submission attempt; outcome is "committed" or "rejected"
func (m *Metrics) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FormOpened() {
	if m == nil {
		return
	}
	m.FormSessionsOpen.Inc()
}

func (m *Metrics) FormClosed() {
	if m == nil {
		return
	}
	m.FormSessionsOpen.Dec()
}

func (m *Metrics) RecordRedirect() {
	if m == nil {
		return
	}
	m.RedirectsDispatched.Inc()
}
