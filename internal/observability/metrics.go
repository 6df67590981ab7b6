// internal/observability/metrics.go
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "harness"

var (
	SessionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_created_total",
		Help:      "Browser session creation attempts by engine and result.",
	}, []string{"engine", "result"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_active",
		Help:      "Browser sessions that are ready or in use.",
	})

	Interactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "interactions_total",
		Help:      "Element interactions by kind and result.",
	}, []string{"kind", "result"})

	ClickFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "click_fallbacks_total",
		Help:      "Clicks that fell back to the scripted strategy.",
	})

	Recoveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "recoveries_total",
		Help:      "Session recoveries by kind (repair, emergency) and result.",
	}, []string{"kind", "result"})

	WaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "wait_seconds",
		Help:      "Time spent in bounded polling waits.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	})

	ArtifactsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "artifacts_stored_total",
		Help:      "Screenshots stored by sink and result.",
	}, []string{"sink", "result"})
)
