package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "codeshell"

// Metrics holds the Prometheus collectors fed by the lifecycle hooks.
type Metrics struct {
	registry *prometheus.Registry

	compilesTotal   *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	runsActive      prometheus.Gauge
	recordsTotal    *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on registry.
// A nil registry creates a private one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		compilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compiles_total",
				Help:      "Total number of transpilations",
			},
			[]string{"dialect", "result"},
		),
		compileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compile_duration_seconds",
				Help:      "Transpilation duration in seconds",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"dialect"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished runs",
			},
			[]string{"result"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		runsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_active",
				Help:      "Number of runs currently executing",
			},
		),
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "console_records_total",
				Help:      "Total number of console records captured",
			},
			[]string{"level"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.compilesTotal,
		m.compileDuration,
		m.runsTotal,
		m.runDuration,
		m.runsActive,
		m.recordsTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCompile: func(_ context.Context, e *domain.CompileEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			dialect := e.Dialect.String()
			m.compilesTotal.WithLabelValues(dialect, result).Inc()
			m.compileDuration.WithLabelValues(dialect).Observe(e.Duration.Seconds())
		},
		OnRunStart: func(_ context.Context, _ *domain.RunEvent) {
			m.runsActive.Inc()
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.runsActive.Dec()
			result := "ok"
			if e.Failed {
				result = "error"
			}
			m.runsTotal.WithLabelValues(result).Inc()
			m.runDuration.Observe(e.Duration.Seconds())
		},
		OnRecord: func(_ context.Context, e *domain.RecordEvent) {
			m.recordsTotal.WithLabelValues(string(e.Record.Level)).Inc()
		},
	}
}

// ObserveHTTP records one served request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
