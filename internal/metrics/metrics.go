package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	conversionsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "stackvis",
		Name:      "conversions_total",
		Help:      "The total number of profiles converted, by input mode.",
	}, []string{"mode"})

	diagnosticsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "stackvis",
		Name:      "skipped_lines_total",
		Help:      "The total number of input lines skipped with a diagnostic, by input mode.",
	}, []string{"mode"})

	publishedTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "stackvis",
		Name:      "published_trees_total",
		Help:      "The total number of serialized trees written to a sink.",
	}, []string{"sink"})
)

func ObserveConversion(mode string, diagnostics int) {
	conversionsTotal.WithLabelValues(mode).Inc()
	diagnosticsTotal.WithLabelValues(mode).Add(float64(diagnostics))
}

func ObservePublished(sink string, trees int) {
	publishedTotal.WithLabelValues(sink).Add(float64(trees))
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
