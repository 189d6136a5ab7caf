package solana

import (
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SOLDecimals is the number of decimal places between lamports and SOL.
const SOLDecimals = uint8(9)

// VersionString renders a transaction version the way the node reports it:
// "legacy", a number, or "undefined" when the node sent none.
func VersionString(v *rpc.TransactionVersion) string {
	switch {
	case v == nil:
		return "undefined"
	case *v == rpc.LegacyTransactionVersion:
		return "legacy"
	default:
		return strconv.Itoa(int(*v))
	}
}

// Record is a fetched transaction decoded into our domain model.
// It is independent of the RPC response format and is never mutated after decoding.
type Record struct {
	Signature string
	Slot      uint64
	BlockTime *time.Time
	Version   *rpc.TransactionVersion // nil if the node did not report a version
	Message   *Message                // nil if the transaction body is not in parsed form
	Meta      *Meta                   // nil if the node returned no status metadata
}

// Message is the parsed transaction message.
type Message struct {
	// AccountKeys includes addresses loaded from lookup tables, in the order
	// the node reports them. Balance indexes refer to positions in this list.
	AccountKeys []solana.PublicKey
}

// AccountKey returns the address at index i, if there is one.
func (m *Message) AccountKey(i int) (solana.PublicKey, bool) {
	if m == nil || i < 0 || i >= len(m.AccountKeys) {
		return solana.PublicKey{}, false
	}
	return m.AccountKeys[i], true
}

// Meta holds the balance snapshots taken around the transaction.
// PreBalances and PostBalances are index-aligned to Message.AccountKeys.
// PreTokenBalances and PostTokenBalances are not guaranteed to be aligned with each other.
type Meta struct {
	Err                   interface{}
	Fee                   uint64
	PreBalances           []uint64
	PostBalances          []uint64
	PreTokenBalances      []TokenBalance
	PostTokenBalances     []TokenBalance
	InnerInstructionCount int
}

// TokenBalance is one token account's balance in a pre or post snapshot.
type TokenBalance struct {
	AccountIndex int     // index into Message.AccountKeys
	Mint         string
	Owner        *string // nil when the node omits the owner
	Amount       string  // raw base-10 amount, not scaled by decimals
	Decimals     uint8
}

// AssetKind distinguishes native SOL changes from SPL token changes.
type AssetKind string

const (
	KindSOL   AssetKind = "sol"
	KindToken AssetKind = "token"
)

// BalanceChangeEvent is a single reportable balance increase.
type BalanceChangeEvent struct {
	AccountIndex int
	Kind         AssetKind
	Address      string // account key at AccountIndex, empty if it cannot be resolved
	Mint         string // empty for SOL
	Owner        string // empty for SOL
	Delta        uint64 // lamports for SOL, raw units for tokens
	Decimals     uint8
}

// Extraction is the result of running Extract over a Record.
type Extraction struct {
	Version               *rpc.TransactionVersion
	InnerInstructionCount int
	Events                []BalanceChangeEvent
	Skipped               []*EntryError // only populated under PolicySkip
}

// SOLEvents returns the native currency events.
func (e *Extraction) SOLEvents() []BalanceChangeEvent {
	return e.byKind(KindSOL)
}

// TokenEvents returns the token events.
func (e *Extraction) TokenEvents() []BalanceChangeEvent {
	return e.byKind(KindToken)
}

func (e *Extraction) byKind(kind AssetKind) []BalanceChangeEvent {
	out := make([]BalanceChangeEvent, 0, len(e.Events))
	for _, ev := range e.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
