package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/brojonat/txparse/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	// GetTransaction returns the raw getTransaction result; a JSON null means not found.
	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		config GetTransactionConfig,
	) (json.RawMessage, error)
}

// Client fetches single transactions and decodes them into Records.
type Client struct {
	rpc        RPCClient
	logger     *slog.Logger
	metrics    *metrics.Metrics
	endpoint   string // RPC endpoint identifier for metrics (e.g., "mainnet", "devnet", rpc host)
	commitment rpc.CommitmentType
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling (e.g., "mainnet", "devnet", or RPC hostname).
// An empty commitment leaves the choice to the node. If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, commitment rpc.CommitmentType, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		rpc:        rpcClient,
		logger:     logger,
		metrics:    m,
		endpoint:   endpoint,
		commitment: commitment,
	}
}

// FetchTransaction validates the signature and fetches the transaction in
// jsonParsed encoding with one RPC call. There are no retries.
func (c *Client) FetchTransaction(ctx context.Context, signature string) (*Record, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSignature, signature, err)
	}

	config := GetTransactionConfig{
		Encoding:                       solana.EncodingJSONParsed,
		Commitment:                     c.commitment,
		MaxSupportedTransactionVersion: pointer.ToUint64(0),
	}

	c.logger.DebugContext(ctx, "calling getTransaction",
		"signature", signature,
		"endpoint", c.endpoint,
		"commitment", c.commitment,
	)

	start := time.Now()
	raw, err := c.rpc.GetTransaction(ctx, sig, config)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall("getTransaction", status, c.endpoint, duration)
	}

	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get transaction",
			"signature", signature,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	rec, err := DecodeTransaction(sig.String(), raw)
	if errors.Is(err, ErrTransactionNotFound) {
		c.logger.WarnContext(ctx, "node returned no transaction", "signature", signature)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "fetched transaction",
		"signature", signature,
		"slot", rec.Slot,
		"parsed_message", rec.Message != nil,
		"has_meta", rec.Meta != nil,
	)

	return rec, nil
}
