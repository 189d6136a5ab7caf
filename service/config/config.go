package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/brojonat/txparse/service/solana"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
)

// Default public RPC endpoints per network.
const (
	DefaultMainnetRPCURL = "https://api.mainnet-beta.solana.com"
	DefaultDevnetRPCURL  = "https://api.devnet.solana.com"
)

// Recognized network names.
const (
	NetworkMainnet = "mainnet"
	NetworkDevnet  = "devnet"
)

// Config holds all application configuration loaded from environment variables.
// All fields are validated together so every problem is reported at once.
type Config struct {
	// Logging configuration
	LogLevel  string
	LogFormat string // "text" or "json"

	// Solana configuration
	Network             string // "mainnet" or "devnet"
	SolanaMainnetRPCURL string
	SolanaDevnetRPCURL  string
	SolanaRPCURL        string // explicit override; wins over the network default
	Commitment          string
	RPCTimeout          time.Duration

	// Extraction configuration
	FailurePolicy    solana.Policy
	TokenCorrelation solana.Correlation

	// Optional outputs, empty means disabled
	NATSURL         string
	MetricsTextfile string

	rpcTimeoutErr error
}

// Load reads configuration from environment variables and validates all fields.
func Load() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnv reads configuration from environment variables without validating it,
// so overrides such as command line flags can be applied before Validate.
// Variables from a .env file (or the file named by TXPARSE_ENV_FILE) are loaded
// first; variables already set in the environment take precedence.
func LoadEnv() (*Config, error) {
	if err := loadDotEnv(getEnvOrDefault("TXPARSE_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "warn")
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", "text")

	cfg.Network = getEnvOrDefault("SOLANA_NETWORK", NetworkMainnet)
	cfg.SolanaMainnetRPCURL = getEnvOrDefault("SOLANA_MAINNET_RPC_URL", DefaultMainnetRPCURL)
	cfg.SolanaDevnetRPCURL = getEnvOrDefault("SOLANA_DEVNET_RPC_URL", DefaultDevnetRPCURL)
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	cfg.Commitment = getEnvOrDefault("SOLANA_COMMITMENT", string(rpc.CommitmentConfirmed))

	// An unparsable timeout stays zero; Validate reports why unless it is overridden.
	cfg.RPCTimeout, cfg.rpcTimeoutErr = parseDuration("RPC_TIMEOUT", "30s")

	cfg.FailurePolicy = solana.Policy(getEnvOrDefault("FAILURE_POLICY", string(solana.PolicyStrict)))
	cfg.TokenCorrelation = solana.Correlation(getEnvOrDefault("TOKEN_CORRELATION", string(solana.CorrelationPositional)))

	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.MetricsTextfile = os.Getenv("METRICS_TEXTFILE")

	return cfg, nil
}

// Validate checks if the configuration is valid.
// This is useful after flags have overridden values loaded from the environment.
func (c *Config) Validate() error {
	var errs []error

	switch c.Network {
	case NetworkMainnet, NetworkDevnet:
	default:
		errs = append(errs, fmt.Errorf("Network must be %q or %q, got %q", NetworkMainnet, NetworkDevnet, c.Network))
	}

	if c.SolanaRPCURL == "" {
		if c.SolanaMainnetRPCURL == "" {
			errs = append(errs, fmt.Errorf("SolanaMainnetRPCURL is required"))
		}
		if c.SolanaDevnetRPCURL == "" {
			errs = append(errs, fmt.Errorf("SolanaDevnetRPCURL is required"))
		}
	}

	switch rpc.CommitmentType(c.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		errs = append(errs, fmt.Errorf("Commitment must be processed, confirmed or finalized, got %q", c.Commitment))
	}

	if c.RPCTimeout <= 0 {
		if c.rpcTimeoutErr != nil {
			errs = append(errs, c.rpcTimeoutErr)
		} else {
			errs = append(errs, fmt.Errorf("RPCTimeout must be positive"))
		}
	}

	if _, err := solana.ParsePolicy(string(c.FailurePolicy)); err != nil {
		errs = append(errs, fmt.Errorf("FailurePolicy: %w", err))
	}

	if _, err := solana.ParseCorrelation(string(c.TokenCorrelation)); err != nil {
		errs = append(errs, fmt.Errorf("TokenCorrelation: %w", err))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LogFormat must be text or json, got %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// RPCURL returns the node URL to query: the explicit override if set,
// otherwise the URL configured for the selected network.
func (c *Config) RPCURL() string {
	if c.SolanaRPCURL != "" {
		return c.SolanaRPCURL
	}
	if c.Network == NetworkDevnet {
		return c.SolanaDevnetRPCURL
	}
	return c.SolanaMainnetRPCURL
}

// Endpoint returns the label used for RPC metrics.
func (c *Config) Endpoint() string {
	if c.SolanaRPCURL != "" {
		return "custom"
	}
	return c.Network
}

// ExtractOptions returns the extraction options derived from the config.
func (c *Config) ExtractOptions() solana.Options {
	return solana.Options{
		Policy:      c.FailurePolicy,
		Correlation: c.TokenCorrelation,
	}
}

// ParseLogLevel converts a level name into a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// loadDotEnv loads path into the environment if it exists.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}
