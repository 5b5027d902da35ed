package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fakeBackend struct {
	nonce       uint64
	gasPrice    *big.Int
	estimate    uint64
	estimateErr error
	sent        []*types.Transaction
	receipts    map[common.Hash]*types.Receipt
	callResult  []byte
	lastCall    ethereum.CallMsg
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return b.nonce, nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return b.gasPrice, nil
}

func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return b.estimate, b.estimateErr
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	if r, ok := b.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (b *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.lastCall = msg
	return b.callResult, nil
}

func testSigner(t *testing.T, chainID int64, backend Backend) *KeySigner {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	return NewKeySigner(key, chainID, backend)
}

func TestKeySigner_SendTransaction(t *testing.T) {
	backend := &fakeBackend{nonce: 7, gasPrice: big.NewInt(1_000_000_000), estimate: 50_000}
	signer := testSigner(t, 8453, backend)

	to := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	hash, err := signer.SendTransaction(context.Background(), TxRequest{To: to, Data: []byte{0x01}})
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(60_000), tx.Gas(), "estimate carries a 20% buffer")
	assert.Equal(t, big.NewInt(8453), tx.ChainId())

	sender, err := types.Sender(types.NewEIP155Signer(big.NewInt(8453)), tx)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), sender)
}

func TestKeySigner_GasFallback(t *testing.T) {
	backend := &fakeBackend{gasPrice: big.NewInt(1), estimateErr: errors.New("estimation failed")}
	signer := testSigner(t, 1, backend)

	_, err := signer.SendTransaction(context.Background(), TxRequest{To: common.Address{1}, Value: big.NewInt(5)})
	require.NoError(t, err)
	_, err = signer.SendTransaction(context.Background(), TxRequest{To: common.Address{1}, Data: []byte{0x01}})
	require.NoError(t, err)

	assert.Equal(t, nativeTransferGas, backend.sent[0].Gas())
	assert.Equal(t, contractCallGas, backend.sent[1].Gas())
}

func TestKeySigner_WaitReceiptHonoursContext(t *testing.T) {
	signer := testSigner(t, 1, &fakeBackend{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := signer.WaitReceipt(ctx, common.Hash{1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeySigner_WaitReceiptFound(t *testing.T) {
	hash := common.Hash{2}
	want := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	signer := testSigner(t, 1, &fakeBackend{receipts: map[common.Hash]*types.Receipt{hash: want}})

	got, err := signer.WaitReceipt(context.Background(), hash)
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestERC20_Allowance(t *testing.T) {
	backend := &fakeBackend{callResult: common.LeftPadBytes(big.NewInt(125_500_000).Bytes(), 32)}
	token := common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")

	got, err := Allowance(context.Background(), backend, token, common.Address{1}, common.Address{2})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(125_500_000), got)
	require.NotNil(t, backend.lastCall.To)
	assert.Equal(t, token, *backend.lastCall.To)

	selector := crypto.Keccak256([]byte("allowance(address,address)"))[:4]
	assert.Equal(t, selector, backend.lastCall.Data[:4])
}

func TestERC20_PackTransfer(t *testing.T) {
	data, err := PackTransfer(common.Address{9}, big.NewInt(1))
	require.NoError(t, err)
	assert.Len(t, data, 4+32+32)
	assert.Equal(t, crypto.Keccak256([]byte("transfer(address,uint256)"))[:4], data[:4])
}

func TestKeyProvider_SwitchChain(t *testing.T) {
	var dialed []string
	dial := func(_ context.Context, url string) (Backend, error) {
		dialed = append(dialed, url)
		return &fakeBackend{}, nil
	}

	p, err := NewKeyProvider("0x"+testKeyHex, map[int64]string{1: "eth", 8453: "base"}, 1, dial, logrus.New())
	require.NoError(t, err)

	s, err := p.Signer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.ChainID())

	s, err = p.SwitchChain(context.Background(), 8453)
	require.NoError(t, err)
	assert.Equal(t, int64(8453), s.ChainID())
	assert.Equal(t, p.Address(), s.Address())

	s, err = p.Signer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8453), s.ChainID())
	assert.Equal(t, []string{"eth", "base"}, dialed)

	_, err = p.SwitchChain(context.Background(), 10)
	assert.Error(t, err)
}

func TestNewKeyProvider_NoKey(t *testing.T) {
	_, err := NewKeyProvider("", nil, 1, nil, logrus.New())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConfirmingProvider_Rejects(t *testing.T) {
	backend := &fakeBackend{gasPrice: big.NewInt(1)}
	dial := func(context.Context, string) (Backend, error) { return backend, nil }
	inner, err := NewKeyProvider(testKeyHex, map[int64]string{1: "eth"}, 1, dial, logrus.New())
	require.NoError(t, err)

	approve := false
	p := NewConfirmingProvider(inner, func(chainID int64, req TxRequest) bool { return approve })

	s, err := p.Signer(context.Background())
	require.NoError(t, err)

	_, err = s.SendTransaction(context.Background(), TxRequest{To: common.Address{1}})
	assert.ErrorIs(t, err, ErrUserRejected)
	assert.Empty(t, backend.sent)

	approve = true
	_, err = s.SendTransaction(context.Background(), TxRequest{To: common.Address{1}})
	require.NoError(t, err)
	assert.Len(t, backend.sent, 1)
}
