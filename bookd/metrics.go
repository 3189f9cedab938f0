package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// bookMetrics gathers the counters exported on /metrics. All methods are
// nil-safe so the engine runs unchanged without a registry (CLI commands,
// tests).
type bookMetrics struct {
	positions    prometheus.Gauge
	leafSearches prometheus.Counter
	expansions   prometheus.Counter
	checkpoints  prometheus.Counter
}

func newBookMetrics(reg prometheus.Registerer) *bookMetrics {
	factory := promauto.With(reg)
	return &bookMetrics{
		positions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "book_positions",
			Help: "Positions currently stored in the book.",
		}),
		leafSearches: factory.NewCounter(prometheus.CounterOpts{
			Name: "book_leaf_searches_total",
			Help: "Leaf evaluations delegated to the searcher.",
		}),
		expansions: factory.NewCounter(prometheus.CounterOpts{
			Name: "book_expansions_total",
			Help: "Leaves expanded into stored positions by growth passes.",
		}),
		checkpoints: factory.NewCounter(prometheus.CounterOpts{
			Name: "book_checkpoints_total",
			Help: "Checkpoint files written during growth.",
		}),
	}
}

func (m *bookMetrics) positionAdded(total int) {
	if m == nil {
		return
	}
	m.positions.Set(float64(total))
}

func (m *bookMetrics) setPositions(total int) {
	if m == nil {
		return
	}
	m.positions.Set(float64(total))
}

func (m *bookMetrics) leafSearched() {
	if m == nil {
		return
	}
	m.leafSearches.Inc()
}

func (m *bookMetrics) expanded() {
	if m == nil {
		return
	}
	m.expansions.Inc()
}

func (m *bookMetrics) checkpointed() {
	if m == nil {
		return
	}
	m.checkpoints.Inc()
}
