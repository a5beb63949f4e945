// Package metrics exposes gateway metrics in the Prometheus format. Counters
// are fed by eventbus subscribers so instrumented packages never import
// Prometheus directly.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	eventbus "github.com/hanpama/graphgate/internal/eventbus"
	events "github.com/hanpama/graphgate/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "graphgate"

type Registry struct {
	registry *prometheus.Registry

	HTTPRequests         *prometheus.CounterVec
	GraphQLOperations    *prometheus.CounterVec
	EngineStartups       *prometheus.CounterVec
	EngineStartupSeconds prometheus.Histogram
	EngineReady          prometheus.Gauge
	DocsRenders          *prometheus.CounterVec
}

// New creates a registry holding the gateway metrics and the Go runtime and
// process collectors.
func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by status code.",
		}, []string{"status"}),
		GraphQLOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_operations_total",
			Help:      "GraphQL operations executed, by operation type and outcome.",
		}, []string{"type", "outcome"}),
		EngineStartups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_startups_total",
			Help:      "Engine startup attempts, by outcome.",
		}, []string{"outcome"}),
		EngineStartupSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_startup_seconds",
			Help:      "Time spent building the engine.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
		EngineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_ready",
			Help:      "1 once the engine serves requests.",
		}),
		DocsRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "docs_renders_total",
			Help:      "Documentation renders, by format.",
		}, []string{"format"}),
	}
	r.registry.MustRegister(
		r.HTTPRequests,
		r.GraphQLOperations,
		r.EngineStartups,
		r.EngineStartupSeconds,
		r.EngineReady,
		r.DocsRenders,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Registry) Prometheus() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Subscribe feeds the metrics from the global event bus until the returned
// function is called.
func (r *Registry) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			r.HTTPRequests.WithLabelValues(strconv.Itoa(e.Status)).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			r.GraphQLOperations.WithLabelValues(operationType(e.OperationType), outcome(e)).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.EngineReady) {
			r.EngineStartupSeconds.Observe(e.Duration.Seconds())
			if e.Err != nil {
				r.EngineStartups.WithLabelValues("failure").Inc()
				r.EngineReady.Set(0)
				return
			}
			r.EngineStartups.WithLabelValues("success").Inc()
			r.EngineReady.Set(1)
		}),
		eventbus.Subscribe(func(_ context.Context, e events.DocsRendered) {
			r.DocsRenders.WithLabelValues(e.Format).Inc()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func operationType(t string) string {
	if t == "" {
		return "unknown"
	}
	return t
}

func outcome(e events.GraphQLFinish) string {
	switch {
	case len(e.Errors) == 0:
		return "success"
	case e.HasData:
		return "partial"
	default:
		return "error"
	}
}
