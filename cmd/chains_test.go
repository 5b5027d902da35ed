package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleport/pkg/bridgeerr"
	"teleport/pkg/types"
)

func testChains() types.ChainSet {
	return types.ChainSet{
		{ID: 1, Name: "Ethereum", AggregatorKey: "eth", Tokens: []types.SourceToken{
			{Symbol: "USDC", Asset: "USDC", Decimals: 6},
			{Symbol: "ETH", Asset: "ETH", Decimals: 18, Address: types.NativeTokenAddress},
		}},
		{ID: 8453, Name: "Base", AggregatorKey: "base", Tokens: []types.SourceToken{
			{Symbol: "USDC", Asset: "USDC", Decimals: 6},
		}},
	}
}

func TestFilterChains(t *testing.T) {
	all := filterChains(testChains(), "", "")
	assert.Len(t, all, 2)

	byName := filterChains(testChains(), "eth", "")
	require.Len(t, byName, 1)
	assert.Equal(t, int64(1), byName[0].ID)

	bySymbol := filterChains(testChains(), "", "eth")
	require.Len(t, bySymbol, 1)
	require.Len(t, bySymbol[0].Tokens, 1)
	assert.Equal(t, "ETH", bySymbol[0].Tokens[0].Symbol)

	assert.Empty(t, filterChains(testChains(), "base", "eth"))

	chains := testChains()
	filterChains(chains, "", "usdc")
	assert.Len(t, chains[0].Tokens, 2, "the input is not modified")
}

func TestUserMessage(t *testing.T) {
	wrapped := fmt.Errorf("execute: %w", bridgeerr.New(bridgeerr.Cancelled, bridgeerr.MessageCancelled, errors.New("user rejected")))
	assert.Equal(t, bridgeerr.MessageCancelled, userMessage(wrapped))
	assert.Equal(t, "plain", userMessage(errors.New("plain")))
	assert.Equal(t, bridgeerr.MessageUnknown, userMessage(nil))
}
