package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/brojonat/txparse/service/config"
	"github.com/brojonat/txparse/service/metrics"
	natspkg "github.com/brojonat/txparse/service/nats"
	"github.com/brojonat/txparse/service/report"
	"github.com/brojonat/txparse/service/solana"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "txparse",
		Usage: "Show who gained SOL and tokens in a Solana transaction",
		Description: `Fetches one transaction by signature and prints every account whose
SOL balance increased, followed by every token account whose balance increased
together with its mint and owner.

Defaults come from the environment (and an optional .env file); flags override them.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "tx-signature",
				Aliases:  []string{"t"},
				Usage:    "Base58 transaction signature to inspect",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "network",
				Aliases: []string{"n"},
				Usage:   "Solana network to query (mainnet or devnet) [$SOLANA_NETWORK]",
			},
			&cli.StringFlag{
				Name:  "rpc-url",
				Usage: "RPC endpoint URL; overrides the network default [$SOLANA_RPC_URL]",
			},
			&cli.StringFlag{
				Name:  "commitment",
				Usage: "Commitment level (processed, confirmed, finalized) [$SOLANA_COMMITMENT]",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Deadline for the RPC call [$RPC_TIMEOUT]",
			},
			&cli.StringFlag{
				Name:  "policy",
				Usage: "What to do with a malformed token balance entry: strict aborts, skip reports it and continues [$FAILURE_POLICY]",
			},
			&cli.StringFlag{
				Name:  "correlation",
				Usage: "How pre/post token balances are paired: positional or account-index [$TOKEN_CORRELATION]",
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Aliases: []string{"jq"},
				Usage:   "jq filter expression each reported event must satisfy (can be specified multiple times, all must match)",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output the report as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Indent JSON output",
			},
			&cli.StringFlag{
				Name:  "nats-url",
				Usage: "Publish reported events to this NATS server (disabled when empty) [$NATS_URL]",
			},
			&cli.StringFlag{
				Name:  "metrics-textfile",
				Usage: "Write Prometheus metrics to this file after the run (disabled when empty) [$METRICS_TEXTFILE]",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error) [$LOG_LEVEL]",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (text or json) [$LOG_FORMAT]",
			},
		},
		Action: parseAction,
	}
}

func parseAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, c.App.ErrWriter)
	if err != nil {
		return err
	}

	filter, err := report.CompileFilter(c.StringSlice("must-jq"))
	if err != nil {
		return err
	}
	if !filter.Empty() {
		logger.Debug("filtering events", "exprs", filter.Exprs())
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	r := &runner{
		cfg:        cfg,
		rpc:        solana.NewRPCClient(cfg.RPCURL()),
		filter:     filter,
		jsonOutput: c.Bool("json"),
		pretty:     c.Bool("pretty"),
		metrics:    m,
		logger:     logger,
		out:        c.App.Writer,
	}

	if cfg.NATSURL != "" {
		publisher, err := natspkg.NewPublisher(ctx, cfg.NATSURL, m, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		r.publisher = publisher
	}

	runErr := r.run(ctx, c.String("tx-signature"))

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile, registry); err != nil {
			logger.ErrorContext(ctx, "failed to write metrics", "error", err)
			if runErr == nil {
				return err
			}
		}
	}

	return runErr
}

// loadConfig reads the environment, applies any flags given on the command line,
// then validates the result once.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}

	if c.IsSet("network") {
		cfg.Network = c.String("network")
	}
	if c.IsSet("rpc-url") {
		cfg.SolanaRPCURL = c.String("rpc-url")
	}
	if c.IsSet("commitment") {
		cfg.Commitment = c.String("commitment")
	}
	if c.IsSet("timeout") {
		cfg.RPCTimeout = c.Duration("timeout")
	}
	if c.IsSet("policy") {
		cfg.FailurePolicy = solana.Policy(c.String("policy"))
	}
	if c.IsSet("correlation") {
		cfg.TokenCorrelation = solana.Correlation(c.String("correlation"))
	}
	if c.IsSet("nats-url") {
		cfg.NATSURL = c.String("nats-url")
	}
	if c.IsSet("metrics-textfile") {
		cfg.MetricsTextfile = c.String("metrics-textfile")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
