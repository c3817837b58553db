package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// LateralCharactersTotal counts reconciled characters.
	LateralCharactersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lateral_characters_total",
			Help: "Total number of characters reconciled",
		},
	)

	// LateralTieSampledTotal counts characters whose tie set was sampled
	// rather than enumerated exhaustively.
	LateralTieSampledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lateral_tie_sampled_total",
			Help: "Characters whose tied scenario set exceeded the cap and was sampled",
		},
	)

	// LateralEdgesProposedTotal counts proposed borrowing candidates.
	LateralEdgesProposedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lateral_edges_proposed_total",
			Help: "Total number of lateral edge candidates proposed",
		},
	)

	// LateralRunSeconds tracks the duration of the last analysis run.
	LateralRunSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lateral_run_seconds",
			Help: "Wall-clock duration of the last analysis run in seconds",
		},
	)
)

func init() {
	prometheus.MustRegister(LateralCharactersTotal)
	prometheus.MustRegister(LateralTieSampledTotal)
	prometheus.MustRegister(LateralEdgesProposedTotal)
	prometheus.MustRegister(LateralRunSeconds)
}
