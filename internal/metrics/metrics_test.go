package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Transaction("addNodeType", ResultOK)
	m.Transaction("addNodeType", ResultRolledBack)
	m.Write("document", 120, nil)
	m.Write("document", 0, errors.New("quota"))
	m.HistoryOp("undo")
	m.SetOpen(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("addNodeType", ResultRolledBack)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Writes.WithLabelValues("document", ResultError)))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.WrittenBytes))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OpenDocuments))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Transaction("x", ResultOK)
	m.Write("x", 1, nil)
	m.Load(ResultOK)
	m.HistoryOp("push")
	m.Skipped("loading")
	m.SetOpen(1)
	m.Unloaded()
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Unloaded()

	path := filepath.Join(t.TempDir(), "constellation.prom")
	require.NoError(t, WriteTextfile(path, reg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "constellation_workspace_unloads_total 1")
}
