// Package config loads the engine's runtime configuration via viper,
// layering a config file, environment variables, and CLI flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration for the `run` daemon.
type Config struct {
	GRPCEndpoint                  string        `mapstructure:"grpc_endpoint"`
	RPCEndpoint                   string        `mapstructure:"rpc_endpoint"`
	RelayEndpoints                []string      `mapstructure:"relay_endpoints"`
	RelayMaxRetry                 int           `mapstructure:"relay_max_retry"`
	PayerKeypairPath              string        `mapstructure:"payer_keypair_path"`
	MinProfitThreshold            int64         `mapstructure:"min_profit_threshold"`
	SlippageBps                   uint32        `mapstructure:"slippage_bps"`
	TipLamports                   uint64        `mapstructure:"tip_lamports"`
	PendingTxTimeout              time.Duration `mapstructure:"pending_tx_timeout"`
	BundleSubmitTimeout           time.Duration `mapstructure:"bundle_submit_timeout"`
	HighWaterMark                 int           `mapstructure:"high_water_mark"`
	EvidenceSink                  string        `mapstructure:"evidence_sink"` // "jsonl" or "sqlite"
	EvidencePath                  string        `mapstructure:"evidence_path"`
	ALTHotlistPath                string        `mapstructure:"alt_hotlist_path"`
	SummaryInterval               time.Duration `mapstructure:"summary_interval"`
	MetricsAddr                   string        `mapstructure:"metrics_addr"` // empty disables the /metrics listener
	Dev                           bool          `mapstructure:"dev"`
	ComputeUnitLimit              uint64        `mapstructure:"compute_unit_limit"`
	ComputeUnitPriceMicroLamports uint64        `mapstructure:"compute_unit_price"`
	TipAccounts                   []string      `mapstructure:"tip_accounts"`
}

// Defaults returns the configuration's zero-risk defaults, applied before
// any file/env/flag overrides.
func Defaults() Config {
	return Config{
		RelayMaxRetry:                 5,
		SlippageBps:                   50,
		TipLamports:                   1000,
		PendingTxTimeout:              5 * time.Second,
		BundleSubmitTimeout:           10 * time.Second,
		HighWaterMark:                 10000,
		EvidenceSink:                  "jsonl",
		EvidencePath:                  "evidence.jsonl",
		ALTHotlistPath:                "alt_hotlist.json",
		SummaryInterval:               30 * time.Second,
		MetricsAddr:                   "127.0.0.1:9184",
		ComputeUnitLimit:              200_000,
		ComputeUnitPriceMicroLamports: 1_000,
	}
}

// BindFlags registers this package's flags on cmd and binds them into v,
// so CLI flags take precedence over a config file or environment, which
// in turn take precedence over Defaults().
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.Flags()
	flags.String("grpc-endpoint", "", "gRPC account-stream endpoint")
	flags.String("rpc-endpoint", "", "JSON-RPC bootstrap endpoint")
	flags.StringSlice("relay-endpoints", nil, "relay endpoints, round-robin")
	flags.Int("relay-max-retry", 5, "max retries per relay submission")
	flags.String("payer-keypair", "", "path to the payer keypair")
	flags.Int64("min-profit-threshold", 0, "minimum net profit in lamports to submit")
	flags.Uint32("slippage-bps", 50, "slippage tolerance in basis points")
	flags.Uint64("tip-lamports", 1000, "relay tip in lamports")
	flags.String("evidence-sink", "jsonl", "evidence sink: jsonl or sqlite")
	flags.String("evidence-path", "evidence.jsonl", "evidence sink path")
	flags.String("alt-hotlist", "alt_hotlist.json", "ALT hotlist persistence path")
	flags.Bool("dev", false, "enable development (console) logging")
	flags.String("metrics-addr", "127.0.0.1:9184", "prometheus /metrics listen address, empty to disable")
	flags.Uint64("compute-unit-limit", 200_000, "compute unit limit assumed for gas cost estimation")
	flags.Uint64("compute-unit-price", 1_000, "compute unit price in micro-lamports, for gas cost estimation")
	flags.StringSlice("tip-accounts", nil, "relay tip account pool, one chosen at random per bundle")

	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		switch f.Name {
		case "payer-keypair":
			key = "payer_keypair_path"
		case "alt-hotlist":
			key = "alt_hotlist_path"
		}
		_ = v.BindPFlag(key, f)
	})
}

// Load resolves Config from defaults, an optional config file, SOLMEV_*
// environment variables, and bound CLI flags, in increasing priority.
func Load(v *viper.Viper, configFile string) (Config, error) {
	cfg := Defaults()

	v.SetEnvPrefix("SOLMEV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
