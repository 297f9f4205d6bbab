package spans

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MaterializationsTotal counts span materializations.
	// Labels: result (persisted, raced, skipped, error)
	MaterializationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redactd",
			Subsystem: "spans",
			Name:      "materializations_total",
			Help:      "Total number of span materializations by outcome",
		},
		[]string{"result"},
	)

	// SpansCreated counts computed spans by category.
	// Labels: category (pii, secret)
	SpansCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redactd",
			Subsystem: "spans",
			Name:      "created_total",
			Help:      "Total number of spans computed by category",
		},
		[]string{"category"},
	)
)
