package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the process registry and the collectors the site reports.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	storeOps     *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
	skipped      *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	forms        *prometheus.CounterVec
	consoles     prometheus.Gauge
}

// New creates the collectors under namespace and registers them, together
// with the Go runtime and process collectors, on a private registry.
func New(namespace string) *Metrics {
	ns := fmtFixer(namespace)
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Document store operations by collection, operation and result.",
		}, []string{"collection", "op", "result"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Document store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection", "op"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "store",
			Name:      "malformed_documents_total",
			Help:      "Stored documents skipped because they failed schema validation.",
		}, []string{"collection"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		forms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "forms",
			Name:      "submissions_total",
			Help:      "Public form posts by form and outcome.",
		}, []string{"form", "result"}),
		consoles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "admin",
			Name:      "console_sessions",
			Help:      "Admin console sessions currently held in memory.",
		}),
	}

	reg.MustRegister(m.storeOps, m.storeLatency, m.skipped, m.httpRequests, m.httpDuration, m.forms, m.consoles)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(m.registry, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveStore records one store call that started at start.
func (m *Metrics) ObserveStore(collection, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(collection, op, result(err)).Inc()
	m.storeLatency.WithLabelValues(collection, op).Observe(time.Since(start).Seconds())
}

// SkippedDocument counts a stored document that could not be decoded.
func (m *Metrics) SkippedDocument(collection string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(collection).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// FormPosted counts a public form post. result is "ok", "invalid",
// "limited" or "error".
func (m *Metrics) FormPosted(form, result string) {
	if m == nil {
		return
	}
	m.forms.WithLabelValues(form, result).Inc()
}

// SetConsoleSessions reports the number of live console sessions.
func (m *Metrics) SetConsoleSessions(n int) {
	if m == nil {
		return
	}
	m.consoles.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func fmtFixer(in string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(in)
}
