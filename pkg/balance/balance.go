// Package balance reads source-chain token balances and turns them into the
// snapshot the dialog presents.
package balance

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"teleport/pkg/amount"
	"teleport/pkg/types"
)

// RawAmount is a balance in base units for one token address
type RawAmount struct {
	TokenAddress string
	Amount       *big.Int
}

// Provider fetches every known token balance of an account, keyed by chain id
type Provider interface {
	GetBalances(ctx context.Context, account common.Address) (map[int64][]RawAmount, error)
}

// Collect builds one TokenBalance per configured chain token, in config
// order. Tokens the provider did not report are zero.
func Collect(ctx context.Context, provider Provider, chains types.ChainSet, account common.Address) ([]types.TokenBalance, error) {
	raw, err := provider.GetBalances(ctx, account)
	if err != nil {
		return nil, err
	}

	var balances []types.TokenBalance
	for _, chain := range chains {
		for _, token := range chain.Tokens {
			value := lookup(raw[chain.ID], token.Address)
			places := amount.DisplayPlaces(token.Decimals)

			balances = append(balances, types.TokenBalance{
				ChainID:          chain.ID,
				ChainName:        chain.Name,
				RawBalance:       value.String(),
				FormattedBalance: amount.Fraction(amount.FromBaseUnits(value, token.Decimals), decimal.NewFromInt(1), places),
				TokenAddress:     token.Address,
				Asset:            token.Asset,
				Decimals:         token.Decimals,
				Symbol:           token.Symbol,
			})
		}
	}

	return balances, nil
}

func lookup(amounts []RawAmount, address string) *big.Int {
	for _, a := range amounts {
		if strings.EqualFold(a.TokenAddress, address) && a.Amount != nil {
			return a.Amount
		}
	}
	return big.NewInt(0)
}

// Positive keeps only balances with funds, preserving order
func Positive(balances []types.TokenBalance) []types.TokenBalance {
	var out []types.TokenBalance
	for _, b := range balances {
		if b.HasFunds() {
			out = append(out, b)
		}
	}
	return out
}

// Total sums the exact balances of one symbol across chains
func Total(balances []types.TokenBalance, symbol string) string {
	total := decimal.Zero
	places := 2
	for _, b := range balances {
		if !strings.EqualFold(b.Symbol, symbol) {
			continue
		}
		d, err := decimal.NewFromString(amount.FromBaseUnitsString(b.RawBalance, b.Decimals))
		if err != nil {
			continue
		}
		total = total.Add(d)
		places = amount.DisplayPlaces(b.Decimals)
	}
	return total.Truncate(int32(places)).StringFixed(int32(places))
}

// Find returns the balance for a chain and asset
func Find(balances []types.TokenBalance, chainID int64, asset string) (types.TokenBalance, bool) {
	for _, b := range balances {
		if b.ChainID == chainID && strings.EqualFold(b.Asset, asset) {
			return b, true
		}
	}
	return types.TokenBalance{}, false
}
