package balance

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"teleport/pkg/types"
	"teleport/pkg/wallet"
)

// ChainReader is the subset of ethclient.Client balance reads need
type ChainReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Dialer func(ctx context.Context, rpcURL string) (ChainReader, error)

func DialEthclient(ctx context.Context, rpcURL string) (ChainReader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	return client, nil
}

// RPCProvider reads balances straight from each chain's JSON-RPC endpoint
type RPCProvider struct {
	chains types.ChainSet
	dial   Dialer
	log    logrus.FieldLogger
}

var _ Provider = (*RPCProvider)(nil)

func NewRPCProvider(chains types.ChainSet, dial Dialer, log logrus.FieldLogger) *RPCProvider {
	if dial == nil {
		dial = DialEthclient
	}
	return &RPCProvider{chains: chains, dial: dial, log: log}
}

// GetBalances queries all chains concurrently; any chain failing fails the whole read
func (p *RPCProvider) GetBalances(ctx context.Context, account common.Address) (map[int64][]RawAmount, error) {
	results := make([][]RawAmount, len(p.chains))

	g, ctx := errgroup.WithContext(ctx)
	for i, chain := range p.chains {
		i, chain := i, chain
		g.Go(func() error {
			amounts, err := p.chainBalances(ctx, chain, account)
			if err != nil {
				return fmt.Errorf("failed to read balances on %s: %w", chain.Name, err)
			}
			results[i] = amounts
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int64][]RawAmount, len(p.chains))
	for i, chain := range p.chains {
		out[chain.ID] = results[i]
	}
	return out, nil
}

func (p *RPCProvider) chainBalances(ctx context.Context, chain types.ChainConfig, account common.Address) ([]RawAmount, error) {
	if chain.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL not configured for chain %d", chain.ID)
	}

	reader, err := p.dial(ctx, chain.RPCURL)
	if err != nil {
		return nil, err
	}
	if closer, ok := reader.(interface{ Close() }); ok {
		defer closer.Close()
	}

	amounts := make([]RawAmount, 0, len(chain.Tokens))
	for _, token := range chain.Tokens {
		var value *big.Int
		if token.IsNative() {
			value, err = reader.BalanceAt(ctx, account, nil)
		} else {
			value, err = wallet.BalanceOf(ctx, reader, common.HexToAddress(token.Address), account)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", token.Symbol, err)
		}

		p.log.WithFields(logrus.Fields{
			"chain_id": chain.ID,
			"symbol":   token.Symbol,
			"balance":  value.String(),
		}).Debug("read token balance")

		amounts = append(amounts, RawAmount{TokenAddress: token.Address, Amount: value})
	}
	return amounts, nil
}
