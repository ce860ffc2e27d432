// Package metrics exposes Prometheus instrumentation for the engine.
//
// A Collector owns its own registry so several engines (or tests) never
// collide on the global default registry. A nil *Collector is valid and
// every method on it is a no-op, which keeps instrumentation optional.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contextrank"

// Collector holds the engine's metric vectors
type Collector struct {
	registry *prometheus.Registry

	searches          *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	cacheLookups      *prometheus.CounterVec
	embeddings        prometheus.Counter
	embeddingFailures prometheus.Counter
	classifyFailures  prometheus.Counter
	filesAnalyzed     prometheus.Counter
}

// New creates a collector registered on a fresh registry, including the
// standard Go runtime and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Searches executed, by mode.",
		}, []string{"mode"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search latency, by mode.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"mode"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Durable cache lookups, by namespace and result.",
		}, []string{"namespace", "result"}),
		embeddings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embeddings_generated_total",
			Help:      "File embeddings generated by the provider.",
		}),
		embeddingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_failures_total",
			Help:      "Files whose embedding could not be generated.",
		}),
		classifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_failures_total",
			Help:      "Files the generative classifier failed to label.",
		}),
		filesAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_analyzed_total",
			Help:      "Files run through symbol extraction.",
		}),
	}

	c.registry.MustRegister(
		c.searches,
		c.searchDuration,
		c.cacheLookups,
		c.embeddings,
		c.embeddingFailures,
		c.classifyFailures,
		c.filesAnalyzed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveSearch records one completed search
func (c *Collector) ObserveSearch(mode string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.searches.WithLabelValues(mode).Inc()
	c.searchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// CacheLookup records a durable cache read
func (c *Collector) CacheLookup(ns string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(ns, result).Inc()
}

// EmbeddingGenerated counts one freshly generated file embedding
func (c *Collector) EmbeddingGenerated() {
	if c == nil {
		return
	}
	c.embeddings.Inc()
}

// EmbeddingFailed counts one file whose embedding failed
func (c *Collector) EmbeddingFailed() {
	if c == nil {
		return
	}
	c.embeddingFailures.Inc()
}

// ClassificationFailed counts one failed classification
func (c *Collector) ClassificationFailed() {
	if c == nil {
		return
	}
	c.classifyFailures.Inc()
}

// FilesAnalyzed adds n files to the analysed counter
func (c *Collector) FilesAnalyzed(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.filesAnalyzed.Add(float64(n))
}
