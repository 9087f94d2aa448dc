// Package metrics exposes Prometheus instruments for document
// transactions, persistence, history and workspace lifecycle.
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "constellation"

// Metrics bundles the instruments.
type Metrics struct {
	Transactions  *prometheus.CounterVec
	Writes        *prometheus.CounterVec
	WrittenBytes  prometheus.Counter
	Loads         *prometheus.CounterVec
	History       *prometheus.CounterVec
	SyncSkipped   *prometheus.CounterVec
	OpenDocuments prometheus.Gauge
	Unloads       prometheus.Counter
}

// New registers the instruments on reg. Use a fresh prometheus.NewRegistry
// per workspace so tests do not collide on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "transactions_total",
			Help:      "Document catalog transactions by operation and result.",
		}, []string{"op", "result"}),
		Writes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "writes_total",
			Help:      "Key/value writes by record kind and result.",
		}, []string{"kind", "result"}),
		WrittenBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "written_bytes_total",
			Help:      "Bytes handed to the key/value store.",
		}),
		Loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "loads_total",
			Help:      "Document loads by result.",
		}, []string{"result"}),
		History: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "operations_total",
			Help:      "History pushes, undos and redos.",
		}, []string{"op"}),
		SyncSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "skipped_total",
			Help:      "Working store changes not synced into the timeline, by reason.",
		}, []string{"reason"}),
		OpenDocuments: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "workspace",
			Name:      "open_documents",
			Help:      "Documents currently loaded in memory.",
		}),
		Unloads: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workspace",
			Name:      "unloads_total",
			Help:      "Inactive documents unloaded by the idle timer.",
		}),
	}
}

// Result labels.
const (
	ResultOK         = "ok"
	ResultRolledBack = "rolled_back"
	ResultError      = "error"
)

func (m *Metrics) Transaction(op, result string) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Write(kind string, size int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Writes.WithLabelValues(kind, ResultError).Inc()
		return
	}
	m.Writes.WithLabelValues(kind, ResultOK).Inc()
	m.WrittenBytes.Add(float64(size))
}

func (m *Metrics) Load(result string) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(result).Inc()
}

func (m *Metrics) HistoryOp(op string) {
	if m == nil {
		return
	}
	m.History.WithLabelValues(op).Inc()
}

func (m *Metrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.SyncSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetOpen(n int) {
	if m == nil {
		return
	}
	m.OpenDocuments.Set(float64(n))
}

func (m *Metrics) Unloaded() {
	if m == nil {
		return
	}
	m.Unloads.Inc()
}

// WriteTextfile dumps everything gathered by g in the node-exporter
// textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
