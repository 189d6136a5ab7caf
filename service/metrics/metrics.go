package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Extraction Metrics
	extractionsTotal    *prometheus.CounterVec
	balanceEventsTotal  *prometheus.CounterVec
	balanceDeltaTotal   *prometheus.CounterVec
	entriesSkippedTotal *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),

		// Extraction Metrics
		extractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balance_extractions_total",
				Help: "Total number of balance extractions by outcome condition",
			},
			[]string{"condition"},
		),
		balanceEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balance_events_total",
				Help: "Total number of balance increase events extracted",
			},
			[]string{"kind"},
		),
		balanceDeltaTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balance_delta_raw_total",
				Help: "Sum of extracted balance increases in raw units (lamports for SOL)",
			},
			[]string{"kind"},
		),
		entriesSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_entries_skipped_total",
				Help: "Total number of token balance entries skipped under the skip policy",
			},
			[]string{"reason"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of messages published to NATS",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// Extraction metric helpers

// RecordExtraction records the outcome of one extraction ("none" for success).
func (m *Metrics) RecordExtraction(condition string) {
	m.extractionsTotal.WithLabelValues(condition).Inc()
}

// RecordBalanceEvent records one extracted increase.
func (m *Metrics) RecordBalanceEvent(kind string, delta uint64) {
	m.balanceEventsTotal.WithLabelValues(kind).Inc()
	m.balanceDeltaTotal.WithLabelValues(kind).Add(float64(delta))
}

// RecordEntrySkipped records a token balance entry dropped under the skip policy.
func (m *Metrics) RecordEntrySkipped(reason string) {
	m.entriesSkippedTotal.WithLabelValues(reason).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// WriteTextfile dumps everything in gatherer to path in the text exposition
// format, for pickup by the node_exporter textfile collector.
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
