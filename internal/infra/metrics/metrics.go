// Package metrics exports engine activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datallboy/modfetch/internal/domain"
)

// Collector implements engine.Observer. Each Collector has its own
// registry, so several can live in one process.
type Collector struct {
	registry *prometheus.Registry

	// resultsTotal counts terminal results by source kind and outcome
	resultsTotal *prometheus.CounterVec
	retriesTotal *prometheus.CounterVec
	bytesTotal   *prometheus.CounterVec
	// durationSeconds covers the whole request including retries and validation
	durationSeconds *prometheus.HistogramVec
	fileSizeBytes   *prometheus.HistogramVec
}

func New(namespace string) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.resultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_results_total", namespace),
			Help: "Terminal download results by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	c.retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_retries_total", namespace),
			Help: "Retried download attempts by source",
		},
		[]string{"source"},
	)

	c.bytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_bytes_total", namespace),
			Help: "Bytes materialized by source",
		},
		[]string{"source"},
	)

	c.durationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_request_duration_seconds", namespace),
			Help:    "Time from admission to terminal result",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		},
		[]string{"source"},
	)

	// Buckets: 1MB, 10MB, 100MB, 1GB, 10GB
	c.fileSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_file_size_bytes", namespace),
			Help:    "Sizes of successfully downloaded files",
			Buckets: prometheus.ExponentialBuckets(1<<20, 10, 5),
		},
		[]string{"source"},
	)

	c.registry.MustRegister(
		c.resultsTotal,
		c.retriesTotal,
		c.bytesTotal,
		c.durationSeconds,
		c.fileSizeBytes,
	)

	return c
}

func (c *Collector) ObserveResult(kind domain.SourceKind, res domain.Result) {
	src := label(kind)
	c.resultsTotal.WithLabelValues(src, string(res.Outcome)).Inc()
	c.durationSeconds.WithLabelValues(src).Observe(res.Elapsed.Seconds())
	if res.OK() {
		c.fileSizeBytes.WithLabelValues(src).Observe(float64(res.Size))
	}
}

func (c *Collector) ObserveRetry(kind domain.SourceKind) {
	c.retriesTotal.WithLabelValues(label(kind)).Inc()
}

func (c *Collector) ObserveBytes(kind domain.SourceKind, n int64) {
	if n > 0 {
		c.bytesTotal.WithLabelValues(label(kind)).Add(float64(n))
	}
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func label(kind domain.SourceKind) string {
	if kind == domain.KindUndefined {
		return "unknown"
	}
	return string(kind)
}
