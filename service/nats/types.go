package nats

import (
	"time"

	"github.com/brojonat/txparse/service/report"
)

// BalanceChangeEvent represents a balance increase published to NATS.
// This is published to the subject "balances.{recipient}" in JetStream.
type BalanceChangeEvent struct {
	// Transaction identifiers
	Signature string     `json:"signature"`
	Slot      uint64     `json:"slot"`
	BlockTime *time.Time `json:"block_time,omitempty"`

	// Who gained
	Recipient    string `json:"recipient"`         // Owner for tokens, account address for SOL
	Address      string `json:"address,omitempty"` // Account whose balance changed
	AccountIndex int    `json:"account_index"`

	// What was gained
	Kind    string  `json:"kind"` // "sol" or "token"
	Mint    *string `json:"mint,omitempty"`
	Delta   uint64  `json:"delta"`
	UIDelta string  `json:"ui_delta"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromReport converts every event in a report into a BalanceChangeEvent for publishing.
func FromReport(r *report.Report) []*BalanceChangeEvent {
	now := time.Now().UTC()
	events := make([]*BalanceChangeEvent, 0, len(r.Events))
	for _, ev := range r.Events {
		event := &BalanceChangeEvent{
			Signature:    r.Signature,
			Slot:         r.Slot,
			BlockTime:    r.BlockTime,
			Recipient:    ev.Recipient(),
			Address:      ev.Address,
			AccountIndex: ev.Index,
			Kind:         ev.Kind,
			Delta:        ev.Delta,
			UIDelta:      ev.UIDelta.String(),
			PublishedAt:  now,
		}

		// Convert optional string fields
		if ev.Mint != "" {
			mint := ev.Mint
			event.Mint = &mint
		}
		if event.Recipient == "" {
			event.Recipient = "unknown"
		}

		events = append(events, event)
	}
	return events
}
