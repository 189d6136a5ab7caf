package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu                sync.RWMutex
	publishedEvents   []*BalanceChangeEvent
	publishError      error
	publishBatchError error
	closed            bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*BalanceChangeEvent, 0),
	}
}

// PublishBalanceChange records the event and returns any configured error.
func (m *MockPublisher) PublishBalanceChange(ctx context.Context, event *BalanceChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// PublishBalanceChangeBatch records the events and returns any configured error.
func (m *MockPublisher) PublishBalanceChangeBatch(ctx context.Context, events []*BalanceChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishBatchError != nil {
		return m.publishBatchError
	}

	m.publishedEvents = append(m.publishedEvents, events...)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns all published events (for testing).
func (m *MockPublisher) GetPublishedEvents() []*BalanceChangeEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid race conditions
	events := make([]*BalanceChangeEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// GetPublishedEventsForRecipient returns events published for a specific recipient.
func (m *MockPublisher) GetPublishedEventsForRecipient(recipient string) []*BalanceChangeEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*BalanceChangeEvent, 0)
	for _, event := range m.publishedEvents {
		if event.Recipient == recipient {
			events = append(events, event)
		}
	}
	return events
}

// SetPublishBatchError configures the mock to return an error on PublishBalanceChangeBatch.
func (m *MockPublisher) SetPublishBatchError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishBatchError = err
}

// SetPublishError configures the mock to return an error on PublishBalanceChange.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
