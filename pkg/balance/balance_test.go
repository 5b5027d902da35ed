package balance

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleport/pkg/types"
)

const (
	usdcEth  = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	usdcBase = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
)

var account = common.HexToAddress("0x1111111111111111111111111111111111111111")

func testChains() types.ChainSet {
	return types.ChainSet{
		{ID: 1, Name: "Ethereum", RPCURL: "eth", Tokens: []types.SourceToken{
			{Address: usdcEth, Decimals: 6, Symbol: "USDC", Asset: "USDC"},
			{Address: types.NativeTokenAddress, Decimals: 18, Symbol: "ETH", Asset: "ETH"},
		}},
		{ID: 8453, Name: "Base", RPCURL: "base", Tokens: []types.SourceToken{
			{Address: usdcBase, Decimals: 6, Symbol: "USDC", Asset: "USDC"},
		}},
	}
}

type staticProvider struct {
	amounts map[int64][]RawAmount
	err     error
}

func (p staticProvider) GetBalances(context.Context, common.Address) (map[int64][]RawAmount, error) {
	return p.amounts, p.err
}

func TestCollect_FullSnapshotInConfigOrder(t *testing.T) {
	provider := staticProvider{amounts: map[int64][]RawAmount{
		8453: {{TokenAddress: "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", Amount: big.NewInt(50_000_000)}},
		1:    {{TokenAddress: types.NativeTokenAddress, Amount: big.NewInt(1_234_567_890_123_456_789)}},
	}}

	got, err := Collect(context.Background(), provider, testChains(), account)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, int64(1), got[0].ChainID)
	assert.Equal(t, "USDC", got[0].Asset)
	assert.Equal(t, "0", got[0].RawBalance)
	assert.Equal(t, "0.00", got[0].FormattedBalance)

	assert.Equal(t, "ETH", got[1].Asset)
	assert.Equal(t, "1.234567", got[1].FormattedBalance, "18-decimal assets show 6 places, truncated")

	assert.Equal(t, int64(8453), got[2].ChainID)
	assert.Equal(t, "Base", got[2].ChainName)
	assert.Equal(t, "50000000", got[2].RawBalance)
	assert.Equal(t, "50.00", got[2].FormattedBalance)

	again, err := Collect(context.Background(), provider, testChains(), account)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestCollect_ProviderError(t *testing.T) {
	_, err := Collect(context.Background(), staticProvider{err: errors.New("rpc down")}, testChains(), account)
	assert.Error(t, err)
}

func TestPositiveTotalFind(t *testing.T) {
	balances := []types.TokenBalance{
		{ChainID: 1, Asset: "USDC", Symbol: "USDC", RawBalance: "0", Decimals: 6},
		{ChainID: 10, Asset: "USDC", Symbol: "USDC", RawBalance: "1500000", Decimals: 6},
		{ChainID: 8453, Asset: "USDC", Symbol: "USDC", RawBalance: "50000000", Decimals: 6},
		{ChainID: 8453, Asset: "ETH", Symbol: "ETH", RawBalance: "1000", Decimals: 18},
	}

	positive := Positive(balances)
	require.Len(t, positive, 3)
	assert.Equal(t, int64(10), positive[0].ChainID)

	assert.Equal(t, "51.50", Total(balances, "USDC"))

	b, ok := Find(balances, 8453, "usdc")
	require.True(t, ok)
	assert.Equal(t, "50000000", b.RawBalance)

	_, ok = Find(balances, 42161, "USDC")
	assert.False(t, ok)
}

type fakeReader struct {
	native *big.Int
	erc20  *big.Int
	err    error
}

func (r fakeReader) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return r.native, r.err
}

func (r fakeReader) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return common.LeftPadBytes(r.erc20.Bytes(), 32), r.err
}

func TestRPCProvider_GetBalances(t *testing.T) {
	readers := map[string]fakeReader{
		"eth":  {native: big.NewInt(7), erc20: big.NewInt(0)},
		"base": {native: big.NewInt(0), erc20: big.NewInt(50_000_000)},
	}
	dial := func(_ context.Context, url string) (ChainReader, error) {
		return readers[url], nil
	}

	p := NewRPCProvider(testChains(), dial, logrus.New())
	got, err := p.GetBalances(context.Background(), account)
	require.NoError(t, err)

	require.Len(t, got[1], 2)
	assert.Zero(t, got[1][0].Amount.Sign())
	assert.Equal(t, big.NewInt(7), got[1][1].Amount)
	assert.Equal(t, []RawAmount{{TokenAddress: usdcBase, Amount: big.NewInt(50_000_000)}}, got[8453])
}

func TestRPCProvider_ChainFailureFailsRead(t *testing.T) {
	dial := func(_ context.Context, url string) (ChainReader, error) {
		if url == "base" {
			return nil, errors.New("connection refused")
		}
		return fakeReader{native: big.NewInt(0), erc20: big.NewInt(0)}, nil
	}

	_, err := NewRPCProvider(testChains(), dial, logrus.New()).GetBalances(context.Background(), account)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Base")
}
