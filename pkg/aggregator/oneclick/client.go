// Package oneclick bridges through NEAR Intents 1Click: the quote carries a
// deposit address and executing the route is a plain transfer to it.
package oneclick

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"teleport/pkg/aggregator"
	teletypes "teleport/pkg/types"
	"teleport/pkg/wallet"
)

// Route is the handle a 1Click quote hands to ExecuteRoute
type Route struct {
	DepositAddress string
	ChainID        int64
	TokenAddress   string
	Amount         *big.Int
}

// Client adapts 1Click to aggregator.Client. Status is tracked by deposit
// address, so the client remembers which deposit each submitted hash paid.
type Client struct {
	api    api
	cfg    *aggregator.Config
	chains teletypes.ChainSet
	dest   teletypes.DestinationConfig
	log    logrus.FieldLogger

	mu       sync.Mutex
	tokens   []token
	deposits map[string]string // tx hash -> deposit address
}

var _ aggregator.Client = (*Client)(nil)

// NewClient creates a 1Click client authenticated with a JWT
func NewClient(cfg *aggregator.Config, baseURL, jwtToken string, chains teletypes.ChainSet, dest teletypes.DestinationConfig, log logrus.FieldLogger) *Client {
	return newClient(newSDKAPI(baseURL, jwtToken), cfg, chains, dest, log)
}

func newClient(a api, cfg *aggregator.Config, chains teletypes.ChainSet, dest teletypes.DestinationConfig, log logrus.FieldLogger) *Client {
	return &Client{
		api:      a,
		cfg:      cfg,
		chains:   chains,
		dest:     dest,
		log:      log.WithField("aggregator", "oneclick"),
		deposits: make(map[string]string),
	}
}

func (c *Client) Name() string {
	return "oneclick"
}

func (c *Client) GetQuote(ctx context.Context, req aggregator.QuoteRequest) (*aggregator.Estimate, error) {
	chain, ok := c.chains.ByID(req.FromChain)
	if !ok {
		return nil, fmt.Errorf("chain %d is not configured", req.FromChain)
	}

	origin, err := c.findToken(ctx, chain.AggregatorKey, req.FromToken)
	if err != nil {
		return nil, fmt.Errorf("source token error: %w", err)
	}

	destination, err := c.findToken(ctx, c.dest.AggregatorKey, req.ToToken)
	if err != nil {
		return nil, fmt.Errorf("destination token error: %w", err)
	}

	amount, ok := new(big.Int).SetString(req.FromAmount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", req.FromAmount)
	}

	recipient := req.ToAddress
	if recipient == "" {
		recipient = req.FromAddress
	}

	quote, err := c.api.Quote(ctx, quoteParams{
		OriginAsset:      origin.AssetID,
		DestinationAsset: destination.AssetID,
		Amount:           req.FromAmount,
		RefundTo:         req.FromAddress,
		Recipient:        recipient,
	})
	if err != nil {
		return nil, err
	}
	if quote.DepositAddress == "" {
		return nil, fmt.Errorf("quote has no deposit address")
	}

	return &aggregator.Estimate{
		ToAmount:    quote.AmountOut,
		ToAmountMin: quote.MinAmountOut,
		GasCost:     "0",
		Duration:    int(math.Ceil(quote.TimeEstimate)),
		Tool:        "NEAR Intents",
		Route: &Route{
			DepositAddress: quote.DepositAddress,
			ChainID:        req.FromChain,
			TokenAddress:   req.FromToken,
			Amount:         amount,
		},
	}, nil
}

// findToken matches by contract address on a blockchain; the native token
// is the one without a contract address
func (c *Client) findToken(ctx context.Context, blockchain, address string) (*token, error) {
	tokens, err := c.supportedTokens(ctx)
	if err != nil {
		return nil, err
	}

	native := address == "" || strings.EqualFold(address, teletypes.NativeTokenAddress)
	for i := range tokens {
		t := &tokens[i]
		if !strings.EqualFold(t.Blockchain, blockchain) {
			continue
		}
		if native && t.ContractAddress == "" {
			return t, nil
		}
		if !native && strings.EqualFold(t.ContractAddress, address) {
			return t, nil
		}
	}

	return nil, fmt.Errorf("token '%s' not found on chain '%s'", address, blockchain)
}

// supportedTokens caches the token list after the first successful fetch
func (c *Client) supportedTokens(ctx context.Context) ([]token, error) {
	c.mu.Lock()
	cached := c.tokens
	c.mu.Unlock()

	if cached != nil {
		return cached, nil
	}

	tokens, err := c.api.Tokens(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tokens = tokens
	c.mu.Unlock()

	return tokens, nil
}

// ExecuteRoute pays the deposit address from the source chain. The quoted
// rate is fixed by the deposit, so the exchange rate hook never fires.
func (c *Client) ExecuteRoute(ctx context.Context, route any, hooks aggregator.ExecutionHooks) error {
	r, ok := route.(*Route)
	if !ok || r == nil {
		return fmt.Errorf("unexpected route type %T", route)
	}

	signer, err := c.cfg.EnsureChain(ctx, r.ChainID)
	if err != nil {
		return err
	}

	req, err := depositRequest(r)
	if err != nil {
		return err
	}

	hash, err := signer.SendTransaction(ctx, req)
	if err != nil {
		return err
	}

	log := c.log.WithFields(logrus.Fields{
		"chain_id":        r.ChainID,
		"tx_hash":         hash.Hex(),
		"deposit_address": r.DepositAddress,
	})
	log.Info("deposit transaction submitted")

	c.mu.Lock()
	c.deposits[strings.ToLower(hash.Hex())] = r.DepositAddress
	c.mu.Unlock()

	hooks.Notify(aggregator.RouteUpdate{Steps: []aggregator.Step{{
		Execution: &aggregator.Execution{
			Status: aggregator.ExecutionPending,
			Process: []aggregator.Process{{
				Type:   aggregator.ProcessCrossChain,
				Status: aggregator.ExecutionPending,
				TxHash: hash.Hex(),
			}},
		},
	}}})

	receipt, err := signer.WaitReceipt(ctx, hash)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("deposit transaction %s reverted", hash.Hex())
	}

	// Telling 1Click about the deposit only speeds up detection
	if err := c.api.SubmitDeposit(ctx, r.DepositAddress, hash.Hex()); err != nil {
		log.WithError(err).Warn("failed to submit deposit transaction")
	}

	return nil
}

func depositRequest(r *Route) (wallet.TxRequest, error) {
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return wallet.TxRequest{}, fmt.Errorf("invalid deposit amount")
	}
	if !common.IsHexAddress(r.DepositAddress) {
		return wallet.TxRequest{}, fmt.Errorf("invalid deposit address %q", r.DepositAddress)
	}

	deposit := common.HexToAddress(r.DepositAddress)
	if r.TokenAddress == "" || strings.EqualFold(r.TokenAddress, teletypes.NativeTokenAddress) {
		return wallet.TxRequest{To: deposit, Value: r.Amount}, nil
	}

	data, err := wallet.PackTransfer(deposit, r.Amount)
	if err != nil {
		return wallet.TxRequest{}, err
	}
	return wallet.TxRequest{To: common.HexToAddress(r.TokenAddress), Data: data}, nil
}

// GetStatus maps 1Click's deposit status onto aggregator statuses
func (c *Client) GetStatus(ctx context.Context, req aggregator.StatusRequest) (*aggregator.StatusResponse, error) {
	c.mu.Lock()
	depositAddress, ok := c.deposits[strings.ToLower(req.TxHash)]
	c.mu.Unlock()

	if !ok {
		return &aggregator.StatusResponse{Status: aggregator.StatusNotFound}, nil
	}

	return c.StatusByDeposit(ctx, depositAddress)
}

// StatusByDeposit looks up a swap directly by its deposit address
func (c *Client) StatusByDeposit(ctx context.Context, depositAddress string) (*aggregator.StatusResponse, error) {
	status, err := c.api.Status(ctx, depositAddress)
	if err != nil {
		return nil, err
	}

	return &aggregator.StatusResponse{
		Status:    mapStatus(status),
		Substatus: status,
	}, nil
}

func mapStatus(status string) aggregator.Status {
	switch strings.ToUpper(status) {
	case "SUCCESS", "COMPLETED":
		return aggregator.StatusDone
	case "FAILED", "REFUNDED":
		return aggregator.StatusFailed
	default:
		return aggregator.StatusPending
	}
}
