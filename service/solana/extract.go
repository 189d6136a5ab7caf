package solana

import (
	"fmt"
	"strconv"
)

// Policy controls what happens when a single token balance entry is unusable.
type Policy string

const (
	// PolicyStrict aborts the whole extraction on the first bad entry.
	PolicyStrict Policy = "strict"
	// PolicySkip drops the bad entry, records it, and keeps going.
	PolicySkip Policy = "skip"
)

// Correlation controls how pre and post token balances are paired.
type Correlation string

const (
	// CorrelationPositional pairs the i-th pre entry with the i-th post entry.
	// This relies on the node returning both snapshots in the same account order.
	CorrelationPositional Correlation = "positional"
	// CorrelationAccountIndex pairs entries that share an account index.
	CorrelationAccountIndex Correlation = "account-index"
)

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (want %q or %q)", s, PolicyStrict, PolicySkip)
	}
}

// ParseCorrelation converts a configuration string into a Correlation.
func ParseCorrelation(s string) (Correlation, error) {
	switch Correlation(s) {
	case "", CorrelationPositional:
		return CorrelationPositional, nil
	case CorrelationAccountIndex:
		return CorrelationAccountIndex, nil
	default:
		return "", fmt.Errorf("unknown token correlation %q (want %q or %q)",
			s, CorrelationPositional, CorrelationAccountIndex)
	}
}

// Options tunes Extract. The zero value is strict, positional extraction.
type Options struct {
	Policy      Policy
	Correlation Correlation
}

// Extract derives the balance increases recorded in rec.
//
// SOL events come first in ascending account index, followed by token events in
// post-snapshot order. Decreases and unchanged balances are never reported.
//
// If the record has no metadata, the error wraps ErrMissingMetadata. If the
// transaction body is not in parsed form, Extract returns the partially filled
// Extraction (version and inner instruction count) together with ErrNoMessage.
func Extract(rec *Record, opts Options) (*Extraction, error) {
	if rec == nil || rec.Meta == nil {
		return nil, ErrMissingMetadata
	}

	out := &Extraction{
		Version:               rec.Version,
		InnerInstructionCount: rec.Meta.InnerInstructionCount,
	}

	if rec.Message == nil {
		return out, ErrNoMessage
	}

	if len(rec.Meta.PreBalances) != len(rec.Meta.PostBalances) {
		return nil, fmt.Errorf("%w: %d pre balances but %d post balances",
			ErrMalformedRecord, len(rec.Meta.PreBalances), len(rec.Meta.PostBalances))
	}

	out.Events = solDeltas(rec.Meta, rec.Message)

	tokenEvents, skipped, err := tokenDeltas(rec.Meta, rec.Message, opts)
	if err != nil {
		return nil, err
	}
	out.Events = append(out.Events, tokenEvents...)
	out.Skipped = skipped

	return out, nil
}

func solDeltas(meta *Meta, msg *Message) []BalanceChangeEvent {
	var events []BalanceChangeEvent
	for i, pre := range meta.PreBalances {
		post := meta.PostBalances[i]
		if post <= pre {
			continue
		}
		ev := BalanceChangeEvent{
			AccountIndex: i,
			Kind:         KindSOL,
			Delta:        post - pre,
			Decimals:     SOLDecimals,
		}
		if key, ok := msg.AccountKey(i); ok {
			ev.Address = key.String()
		}
		events = append(events, ev)
	}
	return events
}

// tokenPair is a post entry and the pre entry it is compared against.
type tokenPair struct {
	position int
	pre      *TokenBalance // nil means the account held nothing before
	post     TokenBalance
}

func pairTokenBalances(meta *Meta, correlation Correlation) []tokenPair {
	pairs := make([]tokenPair, 0, len(meta.PostTokenBalances))

	if correlation == CorrelationAccountIndex {
		preByIdx := make(map[int]TokenBalance, len(meta.PreTokenBalances))
		for _, b := range meta.PreTokenBalances {
			preByIdx[b.AccountIndex] = b
		}
		for i, post := range meta.PostTokenBalances {
			p := tokenPair{position: i, post: post}
			if pre, ok := preByIdx[post.AccountIndex]; ok {
				p.pre = &pre
			}
			pairs = append(pairs, p)
		}
		return pairs
	}

	for i, post := range meta.PostTokenBalances {
		p := tokenPair{position: i, post: post}
		if i < len(meta.PreTokenBalances) {
			pre := meta.PreTokenBalances[i]
			p.pre = &pre
		}
		pairs = append(pairs, p)
	}
	return pairs
}

func tokenDeltas(meta *Meta, msg *Message, opts Options) ([]BalanceChangeEvent, []*EntryError, error) {
	var (
		events  []BalanceChangeEvent
		skipped []*EntryError
	)

	for _, p := range pairTokenBalances(meta, opts.Correlation) {
		ev, ok, err := p.delta(msg)
		if err != nil {
			entryErr := &EntryError{
				Position:     p.position,
				AccountIndex: p.post.AccountIndex,
				Err:          err,
			}
			if opts.Policy == PolicySkip {
				skipped = append(skipped, entryErr)
				continue
			}
			return nil, nil, entryErr
		}
		if ok {
			events = append(events, ev)
		}
	}

	return events, skipped, nil
}

// delta reports whether the pair is an increase and builds its event.
// The owner is only required when there is something to report.
func (p tokenPair) delta(msg *Message) (BalanceChangeEvent, bool, error) {
	var pre uint64
	if p.pre != nil {
		v, err := parseAmount(p.pre.Amount)
		if err != nil {
			return BalanceChangeEvent{}, false, fmt.Errorf("pre balance: %w", err)
		}
		pre = v
	}

	post, err := parseAmount(p.post.Amount)
	if err != nil {
		return BalanceChangeEvent{}, false, fmt.Errorf("post balance: %w", err)
	}

	if post <= pre {
		return BalanceChangeEvent{}, false, nil
	}

	if p.post.Owner == nil {
		return BalanceChangeEvent{}, false, fmt.Errorf("%w: mint %s", ErrMissingOwner, p.post.Mint)
	}

	ev := BalanceChangeEvent{
		AccountIndex: p.post.AccountIndex,
		Kind:         KindToken,
		Mint:         p.post.Mint,
		Owner:        *p.post.Owner,
		Delta:        post - pre,
		Decimals:     p.post.Decimals,
	}
	if key, ok := msg.AccountKey(p.post.AccountIndex); ok {
		ev.Address = key.String()
	}
	return ev, true, nil
}

func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	return v, nil
}
