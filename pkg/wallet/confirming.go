package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ConfirmFunc asks the account holder whether to sign a request
type ConfirmFunc func(chainID int64, req TxRequest) bool

// ConfirmingProvider wraps a Provider so every submission needs explicit
// approval, the way a browser wallet pops up a signing prompt.
type ConfirmingProvider struct {
	inner   Provider
	confirm ConfirmFunc
}

func NewConfirmingProvider(inner Provider, confirm ConfirmFunc) *ConfirmingProvider {
	return &ConfirmingProvider{inner: inner, confirm: confirm}
}

func (p *ConfirmingProvider) Signer(ctx context.Context) (Signer, error) {
	s, err := p.inner.Signer(ctx)
	if err != nil {
		return nil, err
	}
	return &confirmingSigner{Signer: s, confirm: p.confirm}, nil
}

func (p *ConfirmingProvider) SwitchChain(ctx context.Context, chainID int64) (Signer, error) {
	s, err := p.inner.SwitchChain(ctx, chainID)
	if err != nil {
		return nil, err
	}
	return &confirmingSigner{Signer: s, confirm: p.confirm}, nil
}

type confirmingSigner struct {
	Signer
	confirm ConfirmFunc
}

func (s *confirmingSigner) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	if !s.confirm(s.ChainID(), req) {
		return common.Hash{}, ErrUserRejected
	}
	return s.Signer.SendTransaction(ctx, req)
}
