package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"teleport/pkg/aggregator"
	"teleport/pkg/bridge"
	"teleport/pkg/types"
)

const (
	AggregatorLiFi     = "lifi"
	AggregatorOneClick = "oneclick"
)

// Config holds the application configuration
type Config struct {
	Integrator string `mapstructure:"integrator"`
	APIKey     string `mapstructure:"api_key"`
	Aggregator string `mapstructure:"aggregator"`

	LiFiBaseURL      string `mapstructure:"lifi_base_url"`
	OneClickBaseURL  string `mapstructure:"oneclick_base_url"`
	OneClickJWTToken string `mapstructure:"oneclick_jwt_token"`

	PrivateKey string `mapstructure:"private_key"`

	Destination  types.DestinationConfig `mapstructure:"destination"`
	SourceChains []types.ChainConfig     `mapstructure:"source_chains"`

	Poll PollConfig `mapstructure:"poll"`
	Log  LogConfig  `mapstructure:"log"`

	MetricsAddr string `mapstructure:"metrics_addr"`
}

type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Chains returns the configured source chains in display order
func (c *Config) Chains() types.ChainSet {
	return types.ChainSet(c.SourceChains)
}

// RPCURLs maps every source chain id to its RPC endpoint
func (c *Config) RPCURLs() map[int64]string {
	urls := make(map[int64]string, len(c.SourceChains))
	for _, chain := range c.SourceChains {
		if chain.RPCURL != "" {
			urls[chain.ID] = chain.RPCURL
		}
	}
	return urls
}

var globalConfig *Config

// Load reads configuration from environment variables and config file.
// Environment variables win over the file, which wins over defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".teleport")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	cfg, err := load(v)
	if err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("TELEPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("integrator", aggregator.DefaultIntegrator)
	v.SetDefault("aggregator", AggregatorLiFi)
	v.SetDefault("api_key", "")
	v.SetDefault("oneclick_jwt_token", "")
	v.SetDefault("private_key", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("lifi_base_url", "https://li.quest")
	v.SetDefault("oneclick_base_url", "https://1click.chaindefuser.com")
	v.SetDefault("destination", map[string]any{
		"chain_id":       143,
		"name":           "Monad",
		"aggregator_key": "monad",
		"token_address":  types.NativeTokenAddress,
		"decimals":       18,
		"symbol":         "MON",
	})
	v.SetDefault("source_chains", defaultChains())
	v.SetDefault("poll.interval", bridge.DefaultPollInterval)
	v.SetDefault("poll.max_attempts", bridge.DefaultMaxAttempts)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func defaultChains() []map[string]any {
	chain := func(id int64, name, key, explorer, rpc, usdc string) map[string]any {
		return map[string]any{
			"id":             id,
			"name":           name,
			"aggregator_key": key,
			"explorer_url":   explorer,
			"rpc_url":        rpc,
			"tokens": []map[string]any{
				{"address": usdc, "decimals": 6, "symbol": "USDC", "asset": "USDC"},
				{"address": types.NativeTokenAddress, "decimals": 18, "symbol": "ETH", "asset": "ETH"},
			},
		}
	}

	return []map[string]any{
		chain(1, "Ethereum", "eth", "https://etherscan.io", "https://ethereum-rpc.publicnode.com", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		chain(10, "Optimism", "op", "https://optimistic.etherscan.io", "https://mainnet.optimism.io", "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"),
		chain(42161, "Arbitrum", "arb", "https://arbiscan.io", "https://arb1.arbitrum.io/rpc", "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
		chain(8453, "Base", "base", "https://basescan.org", "https://mainnet.base.org", "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
	}
}

// Validate checks the settings every command depends on
func (c *Config) Validate() error {
	switch c.Aggregator {
	case AggregatorLiFi:
	case AggregatorOneClick:
		if c.OneClickJWTToken == "" {
			return fmt.Errorf("1Click JWT token not found. Please set TELEPORT_ONECLICK_JWT_TOKEN environment variable or add oneclick_jwt_token to .teleport.yaml")
		}
	default:
		return fmt.Errorf("unknown aggregator %q (expected %s or %s)", c.Aggregator, AggregatorLiFi, AggregatorOneClick)
	}

	if len(c.SourceChains) == 0 {
		return fmt.Errorf("no source chains configured")
	}
	if c.Destination.ChainID == 0 {
		return fmt.Errorf("destination chain id is required")
	}
	return nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}

// ConfigureLogger builds the process logger from level and format
// ("text", "json" or "color-text")
func ConfigureLogger(level, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)

	switch format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	case "color-text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	return logger, nil
}
