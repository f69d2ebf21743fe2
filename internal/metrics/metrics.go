/*
Package metrics exposes Prometheus collectors for the analysis gateway.

Collectors live in a private registry so several instances (tests, the CLI)
never collide on registration.
*/
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/khanglvm/cofounder-hub/internal/analysis"
	"github.com/khanglvm/cofounder-hub/internal/llm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cofounder"

// Metrics holds every collector.
type Metrics struct {
	registry *prometheus.Registry

	analyses          *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec
	generations       *prometheus.CounterVec
	generationLatency prometheus.Histogram
	retries           prometheus.Counter
	retrievalDegraded *prometheus.CounterVec
	persistFailures   *prometheus.CounterVec
	searchFailures    *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Completed analyses by collection and outcome.",
		}, []string{"collection", "outcome"}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis latency.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"collection"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation calls by error kind (ok on success).",
		}, []string{"outcome"}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Generation call latency including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_retries_total",
			Help:      "Generation attempts that were retried.",
		}),
		retrievalDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_degraded_total",
			Help:      "Requests that fell back to the empty context.",
		}, []string{"collection"}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Generated results that could not be stored.",
		}, []string{"collection"}),
		searchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_failures_total",
			Help:      "Web search calls that failed after retries.",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.analyses,
		m.analysisDuration,
		m.generations,
		m.generationLatency,
		m.retries,
		m.retrievalDegraded,
		m.persistFailures,
		m.searchFailures,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// LLMHooks returns generation client hooks feeding these collectors.
func (m *Metrics) LLMHooks() llm.Hooks {
	return llm.Hooks{
		OnRetry: func(int, time.Duration, error) {
			m.retries.Inc()
		},
		OnDone: func(d time.Duration, err error) {
			outcome := "ok"
			if err != nil {
				outcome = llm.KindOf(err).String()
			}
			m.generations.WithLabelValues(outcome).Inc()
			m.generationLatency.Observe(d.Seconds())
		},
	}
}

// AnalysisDone records one finished analysis.
func (m *Metrics) AnalysisDone(collection string, d time.Duration, err error) {
	outcome := "ok"
	var verr *analysis.ValidationError
	switch {
	case errors.As(err, &verr):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	m.analyses.WithLabelValues(collection, outcome).Inc()
	if err == nil {
		m.analysisDuration.WithLabelValues(collection).Observe(d.Seconds())
	}
}

// RetrievalDegraded counts a request that ran without prior context
// because retrieval failed.
func (m *Metrics) RetrievalDegraded(collection string) {
	m.retrievalDegraded.WithLabelValues(collection).Inc()
}

// PersistFailed counts a result that was returned but not stored.
func (m *Metrics) PersistFailed(collection string) {
	m.persistFailures.WithLabelValues(collection).Inc()
}

// SearchFailed counts a failed web search of the given kind (text, news).
func (m *Metrics) SearchFailed(kind string) {
	m.searchFailures.WithLabelValues(kind).Inc()
}

// HTTPRequest counts a served HTTP request.
func (m *Metrics) HTTPRequest(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
