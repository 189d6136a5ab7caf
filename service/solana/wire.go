package solana

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// GetTransactionConfig is the config object sent with getTransaction.
type GetTransactionConfig struct {
	Encoding                       solana.EncodingType `json:"encoding"`
	Commitment                     rpc.CommitmentType  `json:"commitment,omitempty"`
	MaxSupportedTransactionVersion *uint64             `json:"maxSupportedTransactionVersion,omitempty"`
}

// transactionResponse is the getTransaction result. Only the transaction body is
// kept raw, because its shape depends on the encoding the node answered with.
type transactionResponse struct {
	Slot        uint64                     `json:"slot"`
	BlockTime   *solana.UnixTimeSeconds    `json:"blockTime"`
	Version     *rpc.TransactionVersion    `json:"version"`
	Transaction json.RawMessage            `json:"transaction"`
	Meta        *rpc.ParsedTransactionMeta `json:"meta"`
}

// DecodeTransaction decodes a raw getTransaction result into a Record.
// A JSON null result means the node does not know the transaction.
func DecodeTransaction(signature string, data []byte) (*Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrTransactionNotFound
	}
	var resp *transactionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if resp == nil {
		return nil, ErrTransactionNotFound
	}
	return resp.toRecord(signature)
}

func (r *transactionResponse) toRecord(signature string) (*Record, error) {
	rec := &Record{
		Signature: signature,
		Slot:      r.Slot,
		Version:   r.Version,
	}
	if r.BlockTime != nil {
		t := r.BlockTime.Time().UTC()
		rec.BlockTime = &t
	}

	msg, err := decodeMessage(r.Transaction)
	if err != nil {
		return nil, err
	}
	rec.Message = msg

	if r.Meta != nil {
		meta, err := toMeta(r.Meta)
		if err != nil {
			return nil, err
		}
		rec.Meta = meta
	}

	return rec, nil
}

// decodeMessage returns the parsed message, or nil if the transaction body is
// binary ([data, encoding]) or a raw (unparsed) JSON message.
func decodeMessage(raw json.RawMessage) (*Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil
	}

	var body struct {
		Message *struct {
			AccountKeys []json.RawMessage `json:"accountKeys"`
		} `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return nil, fmt.Errorf("%w: transaction body: %v", ErrMalformedRecord, err)
	}
	if body.Message == nil {
		return nil, nil
	}

	keys := make([]solana.PublicKey, 0, len(body.Message.AccountKeys))
	for i, rawKey := range body.Message.AccountKeys {
		k := bytes.TrimSpace(rawKey)
		if len(k) == 0 || k[0] != '{' {
			// Plain key strings mean the node sent the raw message form.
			return nil, nil
		}
		var account rpc.ParsedMessageAccount
		if err := json.Unmarshal(k, &account); err != nil {
			return nil, fmt.Errorf("%w: account key %d: %v", ErrMalformedRecord, i, err)
		}
		keys = append(keys, account.PublicKey)
	}

	return &Message{AccountKeys: keys}, nil
}

func toMeta(m *rpc.ParsedTransactionMeta) (*Meta, error) {
	if len(m.PreBalances) != len(m.PostBalances) {
		return nil, fmt.Errorf("%w: %d pre balances but %d post balances",
			ErrMalformedRecord, len(m.PreBalances), len(m.PostBalances))
	}

	return &Meta{
		Err:                   m.Err,
		Fee:                   m.Fee,
		PreBalances:           m.PreBalances,
		PostBalances:          m.PostBalances,
		PreTokenBalances:      toTokenBalances(m.PreTokenBalances),
		PostTokenBalances:     toTokenBalances(m.PostTokenBalances),
		InnerInstructionCount: len(m.InnerInstructions),
	}, nil
}

func toTokenBalances(in []rpc.TokenBalance) []TokenBalance {
	if len(in) == 0 {
		return nil
	}
	out := make([]TokenBalance, 0, len(in))
	for _, b := range in {
		tb := TokenBalance{
			AccountIndex: int(b.AccountIndex),
			Mint:         b.Mint.String(),
		}
		if b.Owner != nil {
			owner := b.Owner.String()
			tb.Owner = &owner
		}
		if b.UiTokenAmount != nil {
			tb.Amount = b.UiTokenAmount.Amount
			tb.Decimals = b.UiTokenAmount.Decimals
		}
		out = append(out, tb)
	}
	return out
}
