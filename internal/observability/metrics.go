package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "varnet"

// Metrics holds every varnet metric on a dedicated Prometheus registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// Scans
	ScansTotal        *prometheus.CounterVec
	ScanDuration      prometheus.Histogram
	VariablesScanned  prometheus.Counter
	BindingsScanned   prometheus.Counter
	AliasEdgesScanned prometheus.Counter
	LastScanVariables prometheus.Gauge

	// Census
	CensusTotal *prometheus.CounterVec

	// HTTP API
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Publishing
	PublishTotal    *prometheus.CounterVec
	PublishDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		ScansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scans_total",
			Help:      "Total variable scans by outcome",
		}, []string{"status"}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "scan_duration_seconds",
			Help:      "Variable scan duration",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		VariablesScanned: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "variables_scanned_total",
			Help:      "Selected variables materialized across all scans",
		}),
		BindingsScanned: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bindings_scanned_total",
			Help:      "Binding occurrences registered across all scans",
		}),
		AliasEdgesScanned: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "alias_edges_total",
			Help:      "Alias edges emitted across all scans",
		}),
		LastScanVariables: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_scan_variables",
			Help:      "Variables selected by the most recent successful scan",
		}),

		CensusTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "census_total",
			Help:      "Total type census requests by outcome",
		}, []string{"status"}),

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests",
		}, []string{"method", "path", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		PublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "publish_total",
			Help:      "Report exports by sink and outcome",
		}, []string{"sink", "status"}),
		PublishDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "publish_duration_seconds",
			Help:      "Report export duration by sink",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// RecordScan records one scan. Counts are ignored for failed scans.
func (m *Metrics) RecordScan(duration time.Duration, variables, bindings, aliasEdges int, err error) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(status(err)).Inc()
	m.ScanDuration.Observe(duration.Seconds())
	if err != nil {
		return
	}
	m.VariablesScanned.Add(float64(variables))
	m.BindingsScanned.Add(float64(bindings))
	m.AliasEdgesScanned.Add(float64(aliasEdges))
	m.LastScanVariables.Set(float64(variables))
}

// RecordCensus records one type census.
func (m *Metrics) RecordCensus(_ time.Duration, err error) {
	if m == nil {
		return
	}
	m.CensusTotal.WithLabelValues(status(err)).Inc()
}

// RecordHTTPRequest records one API request.
func (m *Metrics) RecordHTTPRequest(method, path string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPublish records one export to sink.
func (m *Metrics) RecordPublish(sink string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.PublishTotal.WithLabelValues(sink, status(err)).Inc()
	m.PublishDuration.WithLabelValues(sink).Observe(duration.Seconds())
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Default returns the process-wide metrics instance.
func Default() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = NewMetrics()
	})
	return globalMetrics
}
