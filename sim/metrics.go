package sim

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the run's Prometheus collectors on a private registry.
// All methods are no-ops on a nil receiver so the kernel can run without
// metrics.
type Metrics struct {
	registry *prometheus.Registry

	eventsExecuted *prometheus.CounterVec
	stageEntries   *prometheus.CounterVec
	graphRefreshes prometheus.Counter
	lcaBatches     prometheus.Counter
	lcaRows        prometheus.Counter
	activeItems    prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "celavi",
				Name:      "events_executed_total",
				Help:      "Simulation events executed, by event type",
			},
			[]string{"event"},
		),
		stageEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "celavi",
				Name:      "stage_entries_total",
				Help:      "Items entering a processing stage, by step",
			},
			[]string{"step"},
		),
		graphRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "celavi",
			Name:      "graph_refreshes_total",
			Help:      "Supply chain graph cost refreshes",
		}),
		lcaBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "celavi",
			Name:      "lca_batches_total",
			Help:      "Yearly flow batches handed to the LCA collaborator",
		}),
		lcaRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "celavi",
			Name:      "lca_rows_total",
			Help:      "Flow and transport rows handed to the LCA collaborator",
		}),
		activeItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "celavi",
			Name:      "active_items",
			Help:      "Items that have entered and not reached a terminal stage",
		}),
	}
	m.registry.MustRegister(
		m.eventsExecuted,
		m.stageEntries,
		m.graphRefreshes,
		m.lcaBatches,
		m.lcaRows,
		m.activeItems,
	)
	return m
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes every metric in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// EventExecuted counts one executed event of the given type.
func (m *Metrics) EventExecuted(label string) {
	if m == nil {
		return
	}
	m.eventsExecuted.WithLabelValues(label).Inc()
}

// StageEntered counts an item entering a stage running step.
func (m *Metrics) StageEntered(step string) {
	if m == nil {
		return
	}
	m.stageEntries.WithLabelValues(step).Inc()
}

// GraphRefreshed counts one cost refresh.
func (m *Metrics) GraphRefreshed() {
	if m == nil {
		return
	}
	m.graphRefreshes.Inc()
}

// LCABatch counts one handed-off batch holding rows flow and transport rows.
func (m *Metrics) LCABatch(rows int) {
	if m == nil {
		return
	}
	m.lcaBatches.Inc()
	m.lcaRows.Add(float64(rows))
}

// SetActiveItems sets the active item gauge.
func (m *Metrics) SetActiveItems(n int) {
	if m == nil {
		return
	}
	m.activeItems.Set(float64(n))
}
