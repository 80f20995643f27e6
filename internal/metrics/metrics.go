// Package metrics exports render, evaluation, cache and HTTP events as
// Prometheus metrics by implementing the observability hooks.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/observability"
)

const namespace = "kindview"

// Metrics holds the collectors. It implements every hook interface in
// [observability].
type Metrics struct {
	registry *prometheus.Registry

	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	policyFailures *prometheus.CounterVec

	evals        *prometheus.CounterVec
	evalDuration prometheus.Histogram

	cacheOps   *prometheus.CounterVec
	cacheBytes *prometheus.CounterVec

	inflight     prometheus.Gauge
	requests     *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Notes dispatched to a renderer.",
			},
			[]string{"kind", "nested", "outcome"},
		),
		renderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Time spent rendering one note, children included.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"kind"},
		),
		policyFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_failures_total",
				Help:      "Rendering-policy failures turned into content.",
			},
			[]string{"kind", "code"},
		),
		evals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evals_total",
				Help:      "Forms evaluated.",
			},
			[]string{"outcome"},
		),
		evalDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "eval_duration_seconds",
				Help:      "Time spent evaluating and rendering one form.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		cacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_operations_total",
				Help:      "Cache lookups and writes.",
			},
			[]string{"key_type", "op"},
		),
		cacheBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_written_bytes_total",
				Help:      "Bytes written to the cache.",
			},
			[]string{"key_type"},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Requests currently being served.",
			},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Completed HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	m.registry.MustRegister(
		m.renders, m.renderDuration, m.policyFailures,
		m.evals, m.evalDuration,
		m.cacheOps, m.cacheBytes,
		m.inflight, m.requests, m.httpDuration,
	)
	return m
}

// Register installs m as the process-wide hooks.
func (m *Metrics) Register() {
	observability.SetRenderHooks(m)
	observability.SetEvalHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Registry returns the registry holding m's collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) OnRenderStart(context.Context, string, bool) {}

func (m *Metrics) OnRenderComplete(_ context.Context, kind string, nested bool, d time.Duration, err error) {
	m.renders.WithLabelValues(kind, strconv.FormatBool(nested), outcome(err)).Inc()
	m.renderDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) OnPolicyFailure(_ context.Context, kind string, code string) {
	m.policyFailures.WithLabelValues(kind, code).Inc()
}

func (m *Metrics) OnEvalStart(context.Context) {}

func (m *Metrics) OnEvalComplete(_ context.Context, passthrough bool, d time.Duration, err error) {
	switch {
	case err != nil:
		m.evals.WithLabelValues(outcome(err)).Inc()
	case passthrough:
		m.evals.WithLabelValues("passthrough").Inc()
	default:
		m.evals.WithLabelValues("rendered").Inc()
	}
	m.evalDuration.Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {
	m.inflight.Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.inflight.Dec()
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// outcome labels an error by its code.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := errors.GetCode(err); code != "" {
		return string(code)
	}
	return "error"
}

var (
	_ observability.RenderHooks = (*Metrics)(nil)
	_ observability.EvalHooks   = (*Metrics)(nil)
	_ observability.CacheHooks  = (*Metrics)(nil)
	_ observability.HTTPHooks   = (*Metrics)(nil)
)
