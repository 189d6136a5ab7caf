package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/brojonat/txparse/service/config"
	"github.com/brojonat/txparse/service/metrics"
	natspkg "github.com/brojonat/txparse/service/nats"
	"github.com/brojonat/txparse/service/report"
	"github.com/brojonat/txparse/service/solana"
	"github.com/gagliardetto/solana-go/rpc"
)

// runner holds the explicit dependencies of a single parse run.
type runner struct {
	cfg        *config.Config
	rpc        solana.RPCClient
	publisher  natspkg.Publisher // nil when publishing is disabled
	filter     *report.Filter
	jsonOutput bool
	pretty     bool
	metrics    *metrics.Metrics
	logger     *slog.Logger
	out        io.Writer
}

// run fetches the transaction, extracts balance increases and writes the report.
// A transaction without a parsed message is reported and is not an error.
func (r *runner) run(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.RPCTimeout)
	defer cancel()

	client := solana.NewClient(r.rpc, r.cfg.Endpoint(), rpc.CommitmentType(r.cfg.Commitment), r.metrics, r.logger)

	rec, err := client.FetchTransaction(ctx, signature)
	if err != nil {
		r.recordOutcome(err)
		return err
	}

	ext, err := solana.Extract(rec, r.cfg.ExtractOptions())
	r.recordOutcome(err)
	if errors.Is(err, solana.ErrNoMessage) {
		r.logger.InfoContext(ctx, "transaction has no parsed message", "signature", signature)
		return r.write(report.New(rec, ext))
	}
	if err != nil {
		return fmt.Errorf("failed to extract balance changes for %s: %w", signature, err)
	}

	r.recordExtraction(ext)
	r.logger.DebugContext(ctx, "extracted balance changes",
		"signature", signature,
		"sol_events", len(ext.SOLEvents()),
		"token_events", len(ext.TokenEvents()),
		"skipped", len(ext.Skipped),
	)
	for _, s := range ext.Skipped {
		r.logger.WarnContext(ctx, "skipped token balance entry",
			"signature", signature,
			"position", s.Position,
			"account_index", s.AccountIndex,
			"error", s.Err,
		)
	}

	rep, err := r.filter.Apply(report.New(rec, ext))
	if err != nil {
		return err
	}

	if err := r.write(rep); err != nil {
		return err
	}

	if r.publisher != nil {
		events := natspkg.FromReport(rep)
		if err := r.publisher.PublishBalanceChangeBatch(ctx, events); err != nil {
			return fmt.Errorf("failed to publish balance changes: %w", err)
		}
		r.logger.InfoContext(ctx, "published balance changes",
			"signature", signature,
			"count", len(events),
		)
	}

	return nil
}

func (r *runner) write(rep *report.Report) error {
	if r.jsonOutput {
		return report.WriteJSON(r.out, rep, r.pretty)
	}
	return report.WriteText(r.out, rep)
}

func (r *runner) recordOutcome(err error) {
	if r.metrics != nil {
		r.metrics.RecordExtraction(solana.Condition(err))
	}
}

func (r *runner) recordExtraction(ext *solana.Extraction) {
	if r.metrics == nil {
		return
	}
	for _, ev := range ext.Events {
		r.metrics.RecordBalanceEvent(string(ev.Kind), ev.Delta)
	}
	for _, s := range ext.Skipped {
		r.metrics.RecordEntrySkipped(solana.Condition(s))
	}
}
