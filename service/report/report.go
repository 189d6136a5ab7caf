// Package report turns an extraction into the text and JSON forms shown to users.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/brojonat/txparse/service/solana"
	"github.com/shopspring/decimal"
)

// Report is the presentation model of one extracted transaction.
type Report struct {
	Signature         string         `json:"signature"`
	Slot              uint64         `json:"slot"`
	BlockTime         *time.Time     `json:"block_time,omitempty"`
	Version           string         `json:"version"`
	InnerInstructions int            `json:"inner_instructions"`
	NoMessage         bool           `json:"no_message,omitempty"`
	Events            []Event        `json:"events"`
	Skipped           []SkippedEntry `json:"skipped,omitempty"`
}

// Event is one balance increase.
type Event struct {
	Index   int             `json:"index"`
	Kind    string          `json:"kind"`
	Address string          `json:"address,omitempty"`
	Mint    string          `json:"mint,omitempty"`
	Owner   string          `json:"owner,omitempty"`
	Delta   uint64          `json:"delta"`
	UIDelta decimal.Decimal `json:"ui_delta"`
}

// Recipient is the address that gained the balance: the owner for token
// accounts, the account itself for SOL.
func (e Event) Recipient() string {
	if e.Kind == string(solana.KindToken) && e.Owner != "" {
		return e.Owner
	}
	return e.Address
}

// SkippedEntry describes a token balance entry dropped under the skip policy.
type SkippedEntry struct {
	Position     int    `json:"position"`
	AccountIndex int    `json:"account_index"`
	Condition    string `json:"condition"`
	Error        string `json:"error"`
}

// New builds a Report. ext may be nil if extraction did not get past the
// message check; in that case only the record's header fields are used.
func New(rec *solana.Record, ext *solana.Extraction) *Report {
	r := &Report{
		Signature: rec.Signature,
		Slot:      rec.Slot,
		BlockTime: rec.BlockTime,
		Version:   solana.VersionString(rec.Version),
		NoMessage: rec.Message == nil,
		Events:    []Event{},
	}
	if rec.Meta != nil {
		r.InnerInstructions = rec.Meta.InnerInstructionCount
	}
	if ext == nil {
		return r
	}

	r.Version = solana.VersionString(ext.Version)
	r.InnerInstructions = ext.InnerInstructionCount
	for _, ev := range ext.Events {
		r.Events = append(r.Events, Event{
			Index:   ev.AccountIndex,
			Kind:    string(ev.Kind),
			Address: ev.Address,
			Mint:    ev.Mint,
			Owner:   ev.Owner,
			Delta:   ev.Delta,
			UIDelta: ScaleAmount(ev.Delta, ev.Decimals),
		})
	}
	for _, s := range ext.Skipped {
		r.Skipped = append(r.Skipped, SkippedEntry{
			Position:     s.Position,
			AccountIndex: s.AccountIndex,
			Condition:    solana.Condition(s),
			Error:        unwrapAll(s).Error(),
		})
	}
	return r
}

// ScaleAmount converts a raw amount into whole units given its decimals.
func ScaleAmount(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

// unwrapAll strips the EntryError wrapper so skipped entries are not described twice.
func unwrapAll(err error) error {
	var entryErr *solana.EntryError
	if errors.As(err, &entryErr) {
		return entryErr.Err
	}
	return err
}

// WriteText renders the report in the line-oriented format:
//
//	version 0
//	inner instructions 3
//	index 1 sol +30
//	<account address>
//	index 2 token +500
//	mint <mint>
//	owner <owner>
func WriteText(w io.Writer, r *Report) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "version %s\n", r.Version)
	fmt.Fprintf(&buf, "inner instructions %d\n", r.InnerInstructions)

	if r.NoMessage {
		buf.WriteString("no message\n")
		_, err := w.Write(buf.Bytes())
		return err
	}

	for _, ev := range r.Events {
		switch ev.Kind {
		case string(solana.KindSOL):
			fmt.Fprintf(&buf, "index %d sol +%d\n", ev.Index, ev.Delta)
			fmt.Fprintf(&buf, "%s\n", orUnknown(ev.Address))
		default:
			fmt.Fprintf(&buf, "index %d token +%d\n", ev.Index, ev.Delta)
			fmt.Fprintf(&buf, "mint %s\n", ev.Mint)
			fmt.Fprintf(&buf, "owner %s\n", ev.Owner)
		}
	}

	if len(r.Skipped) > 0 {
		fmt.Fprintf(&buf, "skipped %d entries\n", len(r.Skipped))
		for _, s := range r.Skipped {
			fmt.Fprintf(&buf, "  position %d account index %d: %s\n", s.Position, s.AccountIndex, s.Error)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// WriteJSON renders the report as a single JSON document.
func WriteJSON(w io.Writer, r *Report, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
