package tune

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// selectionsTotal counts bandit choices served.
	// Labels: strategy, implementation (the chosen one).
	selectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kerneltune",
		Name:      "selections_total",
		Help:      "Total bandit selections served, by strategy and chosen implementation",
	}, []string{"strategy", "implementation"})

	// observedCostSeconds tracks the measured cost distribution of
	// finished selections. Buckets span 1us to ~16s: kernel costs sit in
	// the micro-to-millisecond range, the tail covers pathological cases.
	// Labels: implementation.
	observedCostSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kerneltune",
		Name:      "observed_cost_seconds",
		Help:      "Measured cost of finished selections in seconds",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 13),
	}, []string{"implementation"})

	// banditsCreatedTotal counts bandit instances created across all
	// registries. Resets do not decrement it.
	// Labels: strategy.
	banditsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kerneltune",
		Name:      "bandits_created_total",
		Help:      "Total bandit instances created, by strategy",
	}, []string{"strategy"})
)
