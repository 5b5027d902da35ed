package parser

import (
	"fmt"
	"regexp"
	"strings"

	"teleport/pkg/amount"
	"teleport/pkg/types"
)

var bridgePattern = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9.]+)\s+FROM\s+([A-Z0-9 ]+)$`)

// chainAliases maps shorthand chain names to configured chain names
var chainAliases = map[string]string{
	"ETH":     "ETHEREUM",
	"MAINNET": "ETHEREUM",
	"OP":      "OPTIMISM",
	"ARB":     "ARBITRUM",
	"ARB1":    "ARBITRUM",
}

// ParseBridgeCommand parses a shorthand bridge command
// Examples:
//   - "bridge 50 USDC from base"
//   - "0.25 ETH from arbitrum"
func ParseBridgeCommand(command string) (*types.BridgeRequest, error) {
	command = strings.Join(strings.Fields(strings.ToUpper(command)), " ")
	command = strings.TrimPrefix(command, "BRIDGE ")

	matches := bridgePattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid bridge command format. Expected: 'bridge <amount> <token> from <chain>' (e.g., 'bridge 50 USDC from base')")
	}

	return &types.BridgeRequest{
		Amount:      matches[1],
		Symbol:      matches[2],
		SourceChain: NormalizeChainName(matches[3]),
	}, nil
}

// ValidateBridgeRequest checks the request against the configured chains and
// returns the chain and token it refers to
func ValidateBridgeRequest(req *types.BridgeRequest, chains types.ChainSet) (types.ChainConfig, types.SourceToken, error) {
	if !amount.IsNumeric(req.Amount) || !amount.IsPositive(req.Amount) {
		return types.ChainConfig{}, types.SourceToken{}, fmt.Errorf("amount must be a positive number, got %q", req.Amount)
	}

	chain, ok := chains.ByName(req.SourceChain)
	if !ok {
		return types.ChainConfig{}, types.SourceToken{}, fmt.Errorf("unsupported source chain %q", req.SourceChain)
	}

	token, ok := chain.Token(req.Symbol)
	if !ok {
		return types.ChainConfig{}, types.SourceToken{}, fmt.Errorf("%s is not offered on %s", req.Symbol, chain.Name)
	}

	return chain, token, nil
}

// NormalizeChainName resolves common chain shorthands
func NormalizeChainName(name string) string {
	name = strings.TrimSpace(strings.ToUpper(name))
	if full, ok := chainAliases[name]; ok {
		return full
	}
	return name
}
