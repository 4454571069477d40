package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the orchestrator.
type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     prometheus.Counter
	errorsTotal       prometheus.Counter
	applicationsTotal prometheus.Gauge
	modulesTotal      prometheus.Gauge
	pullsTotal        prometheus.Counter
	pullFailuresTotal prometheus.Counter
}

// New creates and registers Prometheus metrics for the orchestrator.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orchestrator_requests_total",
		Help: "Total number of admin HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orchestrator_errors_total",
		Help: "Total number of admin HTTP responses with error status (4xx or 5xx)",
	})
	applicationsTotal := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orchestrator_applications_total",
		Help: "Number of applications currently known to the orchestrator",
	})
	modulesTotal := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orchestrator_modules_total",
		Help: "Number of modules currently registered with the orchestrator",
	})
	pullsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orchestrator_pulls_total",
		Help: "Total number of successful RequestPullStream calls",
	})
	pullFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orchestrator_pull_failures_total",
		Help: "Total number of failed RequestPullStream calls",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		applicationsTotal,
		modulesTotal,
		pullsTotal,
		pullFailuresTotal,
	)

	return &Metrics{
		registry:          registry,
		requestsTotal:     requestsTotal,
		errorsTotal:       errorsTotal,
		applicationsTotal: applicationsTotal,
		modulesTotal:      modulesTotal,
		pullsTotal:        pullsTotal,
		pullFailuresTotal: pullFailuresTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// SetApplications sets the applications-known gauge.
func (m *Metrics) SetApplications(n int) {
	m.applicationsTotal.Set(float64(n))
}

// SetModules sets the modules-registered gauge.
func (m *Metrics) SetModules(n int) {
	m.modulesTotal.Set(float64(n))
}

// IncPulls increments the successful-pull counter.
func (m *Metrics) IncPulls() {
	m.pullsTotal.Inc()
}

// IncPullFailures increments the failed-pull counter.
func (m *Metrics) IncPullFailures() {
	m.pullFailuresTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g.
// applications/modules counts).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
