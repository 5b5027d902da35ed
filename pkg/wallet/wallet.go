package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrUserRejected is returned when the account holder declines to sign.
// The wording matches what browser wallets report so it classifies the same way.
var ErrUserRejected = errors.New("user rejected the request")

// ErrNotConnected is returned when no account is available to sign with
var ErrNotConnected = errors.New("wallet not connected")

// TxRequest is an unsigned call the signer fills in (nonce, gas) and submits
type TxRequest struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64
}

// Signer is bound to one account on one chain
type Signer interface {
	Address() common.Address
	ChainID() int64
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Provider hands out signers for the connected account. SwitchChain returns
// a signer rebound to the requested chain; previously issued signers keep
// their old chain.
type Provider interface {
	Signer(ctx context.Context) (Signer, error)
	SwitchChain(ctx context.Context, chainID int64) (Signer, error)
}
