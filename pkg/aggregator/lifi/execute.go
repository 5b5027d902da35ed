package lifi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"teleport/pkg/aggregator"
	teletypes "teleport/pkg/types"
	"teleport/pkg/wallet"
)

// ErrRateRejected is returned when a refreshed route moved the rate and the
// caller declined it
var ErrRateRejected = errors.New("price changed and the new rate was not accepted")

const executionActionRequired = "ACTION_REQUIRED"

// ExecuteRoute runs a quoted Step: switch to the source chain, approve the
// spender when the allowance is short, then submit the bridge transaction
// and wait for it to be mined on the source chain.
func (c *Client) ExecuteRoute(ctx context.Context, route any, hooks aggregator.ExecutionHooks) error {
	step, ok := route.(*Step)
	if !ok || step == nil {
		return fmt.Errorf("unexpected route type %T", route)
	}

	signer, err := c.cfg.EnsureChain(ctx, step.Action.FromChainID)
	if err != nil {
		return err
	}

	log := c.log.WithFields(logrus.Fields{
		"chain_id": step.Action.FromChainID,
		"tool":     step.Tool,
	})

	var processes []aggregator.Process

	if allowance, needed, err := c.ensureAllowance(ctx, signer, step, hooks); err != nil {
		return err
	} else if needed {
		processes = append(processes, allowance)
	}

	if step.TransactionRequest == nil {
		if err := c.refreshTransaction(ctx, step, hooks); err != nil {
			return err
		}
	}

	req, err := txRequestFrom(step.TransactionRequest)
	if err != nil {
		return err
	}

	hash, err := signer.SendTransaction(ctx, req)
	if err != nil {
		return err
	}
	log.WithField("tx_hash", hash.Hex()).Info("bridge transaction submitted")

	processes = append(processes, aggregator.Process{
		Type:   aggregator.ProcessCrossChain,
		Status: aggregator.ExecutionPending,
		TxHash: hash.Hex(),
	})
	hooks.Notify(progress(aggregator.ExecutionPending, processes))

	receipt, err := signer.WaitReceipt(ctx, hash)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("bridge transaction %s reverted", hash.Hex())
	}

	log.WithField("tx_hash", hash.Hex()).Debug("bridge transaction mined on source chain")
	return nil
}

func (c *Client) ensureAllowance(ctx context.Context, signer wallet.Signer, step *Step, hooks aggregator.ExecutionHooks) (aggregator.Process, bool, error) {
	token := step.Action.FromToken.Address
	spender := step.Estimate.ApprovalAddress
	if isNative(token) || spender == "" {
		return aggregator.Process{}, false, nil
	}

	amount, err := parseQuantity(step.Action.FromAmount)
	if err != nil {
		return aggregator.Process{}, false, err
	}

	tokenAddr := common.HexToAddress(token)
	spenderAddr := common.HexToAddress(spender)

	current, err := wallet.Allowance(ctx, signer, tokenAddr, signer.Address(), spenderAddr)
	if err != nil {
		return aggregator.Process{}, false, fmt.Errorf("failed to check allowance: %w", err)
	}
	if current.Cmp(amount) >= 0 {
		return aggregator.Process{}, false, nil
	}

	process := aggregator.Process{Type: aggregator.ProcessTokenAllowance, Status: executionActionRequired}
	hooks.Notify(progress(executionActionRequired, []aggregator.Process{process}))

	data, err := wallet.PackApprove(spenderAddr, amount)
	if err != nil {
		return aggregator.Process{}, false, err
	}

	hash, err := signer.SendTransaction(ctx, wallet.TxRequest{To: tokenAddr, Data: data})
	if err != nil {
		return aggregator.Process{}, false, err
	}

	receipt, err := signer.WaitReceipt(ctx, hash)
	if err != nil {
		return aggregator.Process{}, false, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return aggregator.Process{}, false, fmt.Errorf("approval transaction %s reverted", hash.Hex())
	}

	c.log.WithFields(logrus.Fields{
		"token":   token,
		"spender": spender,
	}).Debug("token allowance approved")

	// The approval hash is not reported as a process hash so the first hash
	// observers see is always the bridge transaction.
	process.Status = aggregator.ExecutionDone
	return process, true, nil
}

// refreshTransaction re-quotes a step that has no transaction attached and
// asks the hooks whether a changed rate is acceptable
func (c *Client) refreshTransaction(ctx context.Context, step *Step, hooks aggregator.ExecutionHooks) error {
	fresh, err := c.fetchQuote(ctx, aggregator.QuoteRequest{
		FromChain:   step.Action.FromChainID,
		ToChain:     step.Action.ToChainID,
		FromToken:   step.Action.FromToken.Address,
		ToToken:     step.Action.ToToken.Address,
		FromAmount:  step.Action.FromAmount,
		FromAddress: step.Action.FromAddress,
		ToAddress:   step.Action.ToAddress,
	})
	if err != nil {
		return err
	}
	if fresh.TransactionRequest == nil {
		return errors.New("route has no transaction to submit")
	}

	if fresh.Estimate.ToAmount != step.Estimate.ToAmount &&
		!hooks.AcceptRate(step.Estimate.ToAmount, fresh.Estimate.ToAmount) {
		return ErrRateRejected
	}

	step.Estimate = fresh.Estimate
	step.TransactionRequest = fresh.TransactionRequest
	return nil
}

func txRequestFrom(tr *TransactionRequest) (wallet.TxRequest, error) {
	if tr == nil || tr.To == "" {
		return wallet.TxRequest{}, errors.New("route has no transaction to submit")
	}

	var data []byte
	if tr.Data != "" {
		decoded, err := hexutil.Decode(tr.Data)
		if err != nil {
			return wallet.TxRequest{}, fmt.Errorf("invalid transaction data: %w", err)
		}
		data = decoded
	}

	value, err := parseQuantity(tr.Value)
	if err != nil {
		return wallet.TxRequest{}, err
	}

	gasLimit, err := parseQuantity(tr.GasLimit)
	if err != nil {
		return wallet.TxRequest{}, err
	}

	return wallet.TxRequest{
		To:       common.HexToAddress(tr.To),
		Data:     data,
		Value:    value,
		GasLimit: gasLimit.Uint64(),
	}, nil
}

func progress(status string, processes []aggregator.Process) aggregator.RouteUpdate {
	snapshot := make([]aggregator.Process, len(processes))
	copy(snapshot, processes)
	return aggregator.RouteUpdate{
		Steps: []aggregator.Step{{
			Execution: &aggregator.Execution{Status: status, Process: snapshot},
		}},
	}
}

func isNative(token string) bool {
	return token == "" || strings.EqualFold(token, teletypes.NativeTokenAddress)
}
