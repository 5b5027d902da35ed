// Package wallettest provides in-memory wallet fakes for tests.
package wallettest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"teleport/pkg/wallet"
)

// Signer records submitted requests and mines them instantly
type Signer struct {
	Addr  common.Address
	Chain int64

	// SendErr is returned by every SendTransaction when set
	SendErr error
	// Reverted makes every receipt report failure
	Reverted bool
	// CallResult is returned by CallContract
	CallResult []byte
	CallErr    error

	mu   sync.Mutex
	sent []wallet.TxRequest
}

var _ wallet.Signer = (*Signer)(nil)

func NewSigner(addr common.Address, chainID int64) *Signer {
	return &Signer{Addr: addr, Chain: chainID}
}

func (s *Signer) Address() common.Address { return s.Addr }
func (s *Signer) ChainID() int64          { return s.Chain }

func (s *Signer) SendTransaction(_ context.Context, req wallet.TxRequest) (common.Hash, error) {
	if s.SendErr != nil {
		return common.Hash{}, s.SendErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, req)
	return HashFor(s.Chain, len(s.sent)), nil
}

func (s *Signer) WaitReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	status := types.ReceiptStatusSuccessful
	if s.Reverted {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{Status: status, TxHash: hash}, nil
}

func (s *Signer) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return s.CallResult, s.CallErr
}

// Sent returns a copy of every submitted request
func (s *Signer) Sent() []wallet.TxRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]wallet.TxRequest, len(s.sent))
	copy(out, s.sent)
	return out
}

// HashFor is the hash the n-th (1-based) submission on a chain receives
func HashFor(chainID int64, n int) common.Hash {
	return common.BigToHash(new(big.Int).Add(big.NewInt(chainID<<32), big.NewInt(int64(n))))
}

// Uint256 encodes v the way a uint256 contract call returns it
func Uint256(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

// Provider hands out one Signer per chain and records switches
type Provider struct {
	SwitchErr error

	mu       sync.Mutex
	signers  map[int64]*Signer
	current  int64
	switches []int64
}

var _ wallet.Provider = (*Provider)(nil)

// NewProvider creates signers for addr on each chain, starting on the first
func NewProvider(addr common.Address, chains ...int64) *Provider {
	p := &Provider{signers: make(map[int64]*Signer)}
	for _, id := range chains {
		p.signers[id] = NewSigner(addr, id)
	}
	if len(chains) > 0 {
		p.current = chains[0]
	}
	return p
}

// On returns the fake signer for a chain
func (p *Provider) On(chainID int64) *Signer {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.signers[chainID]
}

func (p *Provider) Signer(context.Context) (wallet.Signer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.signers[p.current]
	if !ok {
		return nil, wallet.ErrNotConnected
	}
	return s, nil
}

func (p *Provider) SwitchChain(_ context.Context, chainID int64) (wallet.Signer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.SwitchErr != nil {
		return nil, p.SwitchErr
	}
	s, ok := p.signers[chainID]
	if !ok {
		return nil, wallet.ErrNotConnected
	}
	p.current = chainID
	p.switches = append(p.switches, chainID)
	return s, nil
}

// Switches lists every chain switched to, in order
func (p *Provider) Switches() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int64, len(p.switches))
	copy(out, p.switches)
	return out
}
