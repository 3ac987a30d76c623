// Package metrics exposes Prometheus collectors for the scoring engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns every collector on a private prometheus registry so that
// tests can build as many as they like.
type Registry struct {
	reg *prometheus.Registry

	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	FetchErrors   *prometheus.CounterVec
	NewsTier      *prometheus.CounterVec
	LayerScore    *prometheus.GaugeVec
	LayerFailures *prometheus.CounterVec
	RunDuration   prometheus.Histogram
}

// New registers all collectors.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layersentinel_cache_hits_total",
				Help: "Cache hits by operation",
			},
			[]string{"op"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layersentinel_cache_misses_total",
				Help: "Cache misses by operation",
			},
			[]string{"op"},
		),
		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layersentinel_fetch_errors_total",
				Help: "Failed upstream fetches by source",
			},
			[]string{"source"},
		),
		NewsTier: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layersentinel_news_tier_total",
				Help: "News results served by fallback tier",
			},
			[]string{"tier"},
		),
		LayerScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "layersentinel_layer_score",
				Help: "Most recent score per layer",
			},
			[]string{"layer"},
		),
		LayerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layersentinel_layer_failures_total",
				Help: "Layers that could not be scored, by reason",
			},
			[]string{"layer", "reason"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "layersentinel_run_duration_seconds",
				Help:    "Duration of a full scoring run",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
	}
	r.reg.MustRegister(
		r.CacheHits, r.CacheMisses, r.FetchErrors, r.NewsTier,
		r.LayerScore, r.LayerFailures, r.RunDuration,
		collectors.NewGoCollector(),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) CacheHit(op string)  { r.CacheHits.WithLabelValues(op).Inc() }
func (r *Registry) CacheMiss(op string) { r.CacheMisses.WithLabelValues(op).Inc() }

func (r *Registry) FetchFailed(source string) { r.FetchErrors.WithLabelValues(source).Inc() }

func (r *Registry) NewsServed(tier string) { r.NewsTier.WithLabelValues(tier).Inc() }

func (r *Registry) LayerScored(layer string, score int) {
	r.LayerScore.WithLabelValues(layer).Set(float64(score))
}

func (r *Registry) LayerFailed(layer, reason string) {
	r.LayerFailures.WithLabelValues(layer, reason).Inc()
}

func (r *Registry) ObserveRun(d time.Duration) { r.RunDuration.Observe(d.Seconds()) }
