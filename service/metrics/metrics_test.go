package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Extraction(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.RecordExtraction("none")
	m.RecordExtraction("none")
	m.RecordExtraction("malformed_amount")
	m.RecordBalanceEvent("sol", 30)
	m.RecordBalanceEvent("sol", 70)
	m.RecordBalanceEvent("token", 500)
	m.RecordEntrySkipped("missing_owner")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.extractionsTotal.WithLabelValues("none")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.extractionsTotal.WithLabelValues("malformed_amount")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.balanceEventsTotal.WithLabelValues("sol")))
	assert.Equal(t, float64(100), testutil.ToFloat64(m.balanceDeltaTotal.WithLabelValues("sol")))
	assert.Equal(t, float64(500), testutil.ToFloat64(m.balanceDeltaTotal.WithLabelValues("token")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.entriesSkippedTotal.WithLabelValues("missing_owner")))
}

func TestMetrics_RPCAndNATS(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.RecordRPCCall("getTransaction", "success", "mainnet", 0.2)
	m.RecordNATSPublish("balances.*", "success", 0.001)
	m.RecordNATSPublish("balances.*", "error", 0.002)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.solanaRPCCallsTotal.WithLabelValues("getTransaction", "success", "mainnet")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.solanaRPCCallDuration))
	assert.Equal(t, 2, testutil.CollectAndCount(m.natsMessagesPublished))
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)
	assert.Panics(t, func() { NewMetrics(registry) })
}

func TestWriteTextfile(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordExtraction("none")

	path := filepath.Join(t.TempDir(), "txparse.prom")
	require.NoError(t, WriteTextfile(path, registry))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `balance_extractions_total{condition="none"} 1`))
}

func TestWriteTextfile_BadPath(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)

	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "txparse.prom"), registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write metrics textfile")
}
