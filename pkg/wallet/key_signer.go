package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

const (
	nativeTransferGas = uint64(21000)  // Standard ETH transfer
	contractCallGas   = uint64(100000) // Typical ERC20 transfer
	receiptPollPeriod = 2 * time.Second
)

// Backend is the subset of ethclient.Client a KeySigner needs
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// KeySigner signs with a local private key and submits through a JSON-RPC backend
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID int64
	backend Backend
}

// NewKeySigner binds a private key to one chain backend
func NewKeySigner(key *ecdsa.PrivateKey, chainID int64, backend Backend) *KeySigner {
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		backend: backend,
	}
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) ChainID() int64 {
	return s.chainID
}

// SendTransaction fills in nonce and gas, signs, and broadcasts the call
func (s *KeySigner) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	nonce, err := s.backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = s.estimateGas(ctx, req, value)
	}

	to := req.To
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     req.Data,
	})

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(s.chainID)), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash(), nil
}

func (s *KeySigner) estimateGas(ctx context.Context, req TxRequest, value *big.Int) uint64 {
	fallback := nativeTransferGas
	if len(req.Data) > 0 {
		fallback = contractCallGas
	}

	to := req.To
	estimated, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.address,
		To:    &to,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		return fallback
	}
	return estimated * 120 / 100 // Add 20% buffer
}

// WaitReceipt polls until the transaction is mined or ctx is done
func (s *KeySigner) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollPeriod)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *KeySigner) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return s.backend.CallContract(ctx, msg, blockNumber)
}

// Dialer opens a backend for an RPC endpoint
type Dialer func(ctx context.Context, rpcURL string) (Backend, error)

// DialEthclient is the production Dialer
func DialEthclient(ctx context.Context, rpcURL string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	return client, nil
}

// KeyProvider serves KeySigners for one private key across the configured chains
type KeyProvider struct {
	key     *ecdsa.PrivateKey
	rpcURLs map[int64]string
	dial    Dialer
	log     logrus.FieldLogger

	mu       sync.Mutex
	backends map[int64]Backend
	current  int64
}

// NewKeyProvider parses a hex private key; initialChain is the chain the
// first Signer call binds to.
func NewKeyProvider(privateKeyHex string, rpcURLs map[int64]string, initialChain int64, dial Dialer, log logrus.FieldLogger) (*KeyProvider, error) {
	if privateKeyHex == "" {
		return nil, ErrNotConnected
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	if dial == nil {
		dial = DialEthclient
	}

	return &KeyProvider{
		key:      key,
		rpcURLs:  rpcURLs,
		dial:     dial,
		log:      log,
		backends: make(map[int64]Backend),
		current:  initialChain,
	}, nil
}

// Address is the account every signer from this provider signs for
func (p *KeyProvider) Address() common.Address {
	return crypto.PubkeyToAddress(p.key.PublicKey)
}

func (p *KeyProvider) Signer(ctx context.Context) (Signer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.signerLocked(ctx, p.current)
}

func (p *KeyProvider) SwitchChain(ctx context.Context, chainID int64) (Signer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	signer, err := p.signerLocked(ctx, chainID)
	if err != nil {
		return nil, err
	}

	if p.current != chainID {
		p.log.WithFields(logrus.Fields{
			"from_chain": p.current,
			"to_chain":   chainID,
		}).Debug("switched signing chain")
	}
	p.current = chainID

	return signer, nil
}

func (p *KeyProvider) signerLocked(ctx context.Context, chainID int64) (Signer, error) {
	backend, ok := p.backends[chainID]
	if !ok {
		rpcURL, configured := p.rpcURLs[chainID]
		if !configured || rpcURL == "" {
			return nil, fmt.Errorf("RPC URL not configured for chain %d", chainID)
		}

		var err error
		backend, err = p.dial(ctx, rpcURL)
		if err != nil {
			return nil, err
		}
		p.backends[chainID] = backend
	}

	return NewKeySigner(p.key, chainID, backend), nil
}

// Close releases any RPC connections the provider opened
func (p *KeyProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, backend := range p.backends {
		if client, ok := backend.(*ethclient.Client); ok {
			client.Close()
		}
		delete(p.backends, id)
	}
}
