// Package metrics records pipeline counters with Prometheus and writes them
// in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the pipeline metrics. Each Manager has its own registry, so
// several runs in one process do not collide.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	rowsLoaded    *prometheus.CounterVec
	rowsSkipped   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	outputBytes   *prometheus.GaugeVec

	persons    prometheus.Gauge
	links      prometheus.Gauge
	unresolved prometheus.Gauge
}

// NewManager creates a metrics manager with its own registry unless one is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "xref",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.rowsLoaded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rows_loaded_total",
		Help:      "Rows decoded into records, by table",
	}, []string{"table"})

	m.rowsSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rows_skipped_total",
		Help:      "Malformed rows skipped, by table",
	}, []string{"table"})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "stage_duration_seconds",
		Help:      "Wall time of each pipeline stage",
		Buckets:   m.histogramBuckets,
	}, []string{"stage"})

	m.outputBytes = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "output_bytes",
		Help:      "Size of each written JSON document",
	}, []string{"file"})

	m.persons = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "persons",
		Help:      "Canonical persons after name resolution",
	})

	m.links = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "network_links",
		Help:      "Merged links in the person network",
	})

	m.unresolved = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "unresolved_mentions",
		Help:      "Name occurrences that matched no person",
	})
}

// RowsLoaded adds n decoded rows for table.
func (m *Manager) RowsLoaded(table string, n int) {
	m.rowsLoaded.WithLabelValues(table).Add(float64(n))
}

// RowsSkipped adds n skipped rows for table.
func (m *Manager) RowsSkipped(table string, n int) {
	m.rowsSkipped.WithLabelValues(table).Add(float64(n))
}

// ObserveStage records the duration of a pipeline stage.
func (m *Manager) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetOutputBytes records the size of a written document.
func (m *Manager) SetOutputBytes(file string, n int64) {
	m.outputBytes.WithLabelValues(file).Set(float64(n))
}

// SetResolution records the resolved person count and unresolved mentions.
func (m *Manager) SetResolution(persons, unresolved int) {
	m.persons.Set(float64(persons))
	m.unresolved.Set(float64(unresolved))
}

// SetLinks records the merged link count.
func (m *Manager) SetLinks(n int) {
	m.links.Set(float64(n))
}

// Registry returns the registry the metrics live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// The file is written atomically.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
