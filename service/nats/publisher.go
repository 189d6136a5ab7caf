package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/txparse/service/metrics"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher defines the interface for publishing balance change events to NATS.
type Publisher interface {
	// PublishBalanceChange publishes a single event to JetStream.
	// The event is published to the subject "balances.{recipient}".
	PublishBalanceChange(ctx context.Context, event *BalanceChangeEvent) error

	// PublishBalanceChangeBatch publishes every event of one report.
	// It returns the first error; events after a failure are still attempted.
	PublishBalanceChangeBatch(ctx context.Context, events []*BalanceChangeEvent) error

	// Close closes the connection to NATS.
	Close() error
}

// JetStreamPublisher publishes balance change events to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	metrics *metrics.Metrics
	logger  *slog.Logger
}

const (
	// StreamName is the name of the JetStream stream for balance changes.
	StreamName = "BALANCES"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "balances.*"

	// StreamRetention is how long messages are retained (30 days by default).
	StreamRetention = 30 * 24 * time.Hour
)

// Subject returns the subject an event is published to.
func Subject(event *BalanceChangeEvent) string {
	return fmt.Sprintf("balances.%s", event.Recipient)
}

// NewPublisher creates a new JetStream publisher.
// It connects to NATS and ensures the stream exists. If metrics is nil, no metrics will be recorded.
func NewPublisher(ctx context.Context, natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("txparse-publisher"),
		nats.Timeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:      nc,
		js:      js,
		metrics: m,
		logger:  logger,
	}

	if err := publisher.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.DebugContext(ctx, "NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		p.logger.DebugContext(ctx, "JetStream stream already exists", "stream", StreamName)
		return nil
	}

	p.logger.InfoContext(ctx, "creating JetStream stream", "stream", StreamName)

	streamConfig := jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Balance increases extracted from Solana transactions",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	}

	if _, err := p.js.CreateStream(ctx, streamConfig); err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.logger.InfoContext(ctx, "JetStream stream created successfully", "stream", StreamName)
	return nil
}

// PublishBalanceChange publishes a single event.
func (p *JetStreamPublisher) PublishBalanceChange(ctx context.Context, event *BalanceChangeEvent) error {
	subject := Subject(event)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal balance change event: %w", err)
	}

	start := time.Now()
	_, err = p.js.Publish(ctx, subject, data)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if p.metrics != nil {
		// The stream pattern keeps label cardinality bounded.
		p.metrics.RecordNATSPublish(StreamSubjects, status, duration)
	}

	if err != nil {
		return fmt.Errorf("failed to publish balance change: %w", err)
	}

	p.logger.DebugContext(ctx, "published balance change event",
		"subject", subject,
		"signature", event.Signature,
		"kind", event.Kind,
	)

	return nil
}

// PublishBalanceChangeBatch publishes multiple events.
func (p *JetStreamPublisher) PublishBalanceChangeBatch(ctx context.Context, events []*BalanceChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	var firstErr error
	for _, event := range events {
		if err := p.PublishBalanceChange(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish balance change in batch",
				"signature", event.Signature,
				"recipient", event.Recipient,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
	}

	p.logger.DebugContext(ctx, "published balance change batch",
		"count", len(events),
	)

	return firstErr
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
			return fmt.Errorf("failed to drain NATS connection: %w", err)
		}
		p.logger.Debug("NATS publisher closed")
	}
	return nil
}
