package types

import (
	"fmt"
	"strings"
)

// NativeTokenAddress is the placeholder address aggregators use for gas tokens
const NativeTokenAddress = "0x0000000000000000000000000000000000000000"

const defaultExplorerURL = "https://etherscan.io"

// SourceToken is a token the host offers for bridging on a source chain
type SourceToken struct {
	Address  string `mapstructure:"address" json:"address"`
	Decimals int    `mapstructure:"decimals" json:"decimals"`
	Symbol   string `mapstructure:"symbol" json:"symbol"`
	Asset    string `mapstructure:"asset" json:"asset"`
}

// IsNative reports whether the token is the chain's gas token
func (t SourceToken) IsNative() bool {
	return t.Address == "" || strings.EqualFold(t.Address, NativeTokenAddress)
}

// ChainConfig describes a supported source chain
type ChainConfig struct {
	ID          int64  `mapstructure:"id" json:"id"`
	Name        string `mapstructure:"name" json:"name"`
	ExplorerURL string `mapstructure:"explorer_url" json:"explorer_url"`
	RPCURL      string `mapstructure:"rpc_url" json:"rpc_url"`

	// AggregatorKey is the chain identifier used by deposit-address aggregators
	AggregatorKey string        `mapstructure:"aggregator_key" json:"aggregator_key"`
	Tokens        []SourceToken `mapstructure:"tokens" json:"tokens"`
}

// Token finds a configured token by asset name
func (c ChainConfig) Token(asset string) (SourceToken, bool) {
	for _, t := range c.Tokens {
		if strings.EqualFold(t.Asset, asset) {
			return t, true
		}
	}
	return SourceToken{}, false
}

// DestinationConfig describes the single chain and asset everything bridges to
type DestinationConfig struct {
	ChainID       int64  `mapstructure:"chain_id" json:"chain_id"`
	Name          string `mapstructure:"name" json:"name"`
	AggregatorKey string `mapstructure:"aggregator_key" json:"aggregator_key"`
	TokenAddress  string `mapstructure:"token_address" json:"token_address"`
	Decimals      int    `mapstructure:"decimals" json:"decimals"`
	Symbol        string `mapstructure:"symbol" json:"symbol"`
}

// ChainSet is the ordered list of source chains offered to the user
type ChainSet []ChainConfig

// ByID looks up a chain by its numeric id
func (s ChainSet) ByID(id int64) (ChainConfig, bool) {
	for _, c := range s {
		if c.ID == id {
			return c, true
		}
	}
	return ChainConfig{}, false
}

// ByName looks up a chain by name or aggregator key, case-insensitively
func (s ChainSet) ByName(name string) (ChainConfig, bool) {
	for _, c := range s {
		if strings.EqualFold(c.Name, name) || strings.EqualFold(c.AggregatorKey, name) {
			return c, true
		}
	}
	return ChainConfig{}, false
}

// ExplorerTxURL builds a block explorer link for a source chain transaction
func (s ChainSet) ExplorerTxURL(chainID int64, txHash string) string {
	base := defaultExplorerURL
	if c, ok := s.ByID(chainID); ok && c.ExplorerURL != "" {
		base = strings.TrimRight(c.ExplorerURL, "/")
	}
	return fmt.Sprintf("%s/tx/%s", base, txHash)
}
