package routing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// graphBuilds counts knowledge graph builds.
	// Labels: status (ok, error)
	graphBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routegraph",
		Subsystem: "routing",
		Name:      "graph_builds_total",
		Help:      "Total knowledge graph builds",
	}, []string{"status"})

	// graphBuildDuration measures configuration load plus graph build time.
	graphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "routegraph",
		Subsystem: "routing",
		Name:      "graph_build_duration_seconds",
		Help:      "Knowledge graph build latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	})

	// cacheLookups counts graph cache lookups.
	// Labels: result (hit, miss)
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routegraph",
		Subsystem: "routing",
		Name:      "cache_lookups_total",
		Help:      "Total knowledge graph cache lookups",
	}, []string{"result"})

	// candidateVerdicts counts connector candidates by outcome.
	// Labels: verdict (eligible, rejected)
	candidateVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routegraph",
		Subsystem: "routing",
		Name:      "candidate_verdicts_total",
		Help:      "Total connector candidates checked, by verdict",
	}, []string{"verdict"})
)
