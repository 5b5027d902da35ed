package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"teleport/pkg/aggregator"
	"teleport/pkg/aggregator/aggregatortest"
	"teleport/pkg/bridgeerr"
	"teleport/pkg/types"
	"teleport/pkg/wallet/wallettest"
)

const txHash = "0x5e1f2d0c3b4a59687766554433221100ffeeddccbbaa99887766554433221100"

var account = common.HexToAddress("0x1111111111111111111111111111111111111111")

// recordingWait never sleeps; it records the requested durations
type recordingWait struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *recordingWait) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.waits = append(w.waits, d)
	w.mu.Unlock()
	return ctx.Err()
}

func (w *recordingWait) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waits)
}

type ExecutorSuite struct {
	suite.Suite
	client *aggregatortest.Client
	cfg    *aggregator.Config
	waiter *recordingWait

	stages []Stage
	txs    []types.BridgeTransaction
}

func TestExecutorSuite(t *testing.T) {
	suite.Run(t, new(ExecutorSuite))
}

func (s *ExecutorSuite) SetupTest() {
	s.client = &aggregatortest.Client{
		ExecuteFunc: func(_ context.Context, _ any, hooks aggregator.ExecutionHooks) error {
			hooks.Notify(aggregator.RouteUpdate{Steps: []aggregator.Step{{
				Execution: &aggregator.Execution{
					Status:  "ACTION_REQUIRED",
					Process: []aggregator.Process{{Type: aggregator.ProcessTokenAllowance, Status: "ACTION_REQUIRED"}},
				},
			}}})
			hooks.Notify(aggregatortest.Submitted(txHash))
			return nil
		},
	}
	s.cfg = aggregator.NewConfig("", "")
	s.Require().NoError(s.cfg.Connect(context.Background(), wallettest.NewProvider(account, 8453)))
	s.waiter = &recordingWait{}
	s.stages = nil
	s.txs = nil
}

func (s *ExecutorSuite) executor() *Executor {
	e := NewExecutor(s.client, s.cfg, Options{Wait: s.waiter.wait}, nil, logrus.New())
	return e.WithHooks(Hooks{
		OnStage:       func(st Stage) { s.stages = append(s.stages, st) },
		OnTransaction: func(tx types.BridgeTransaction) { s.txs = append(s.txs, tx) },
	})
}

func testQuote() *types.Quote {
	return &types.Quote{
		SourceChainID: 8453,
		DestChainID:   143,
		SourceAmount:  "50",
		RouteHandle:   "route",
	}
}

func (s *ExecutorSuite) TestSuccessOnThirdPoll() {
	s.client.StatusFunc = func(_ context.Context, req aggregator.StatusRequest, attempt int) (*aggregator.StatusResponse, error) {
		s.Equal(txHash, req.TxHash)
		s.Equal(int64(8453), req.FromChain)
		s.Equal(int64(143), req.ToChain)
		if attempt == 3 {
			return &aggregator.StatusResponse{Status: aggregator.StatusDone}, nil
		}
		return &aggregator.StatusResponse{Status: aggregator.StatusPending}, nil
	}

	res := s.executor().Execute(context.Background(), testQuote())

	s.Equal(StageSuccess, res.Status)
	s.Nil(res.Err)
	s.False(res.Optimistic)
	s.False(res.Abandoned)
	s.Equal(txHash, res.Hash)
	s.Require().NotNil(res.Transaction)
	s.Equal(types.TransactionSuccess, res.Transaction.Status)

	s.Equal([]Stage{StageApproving, StageBridging, StageWaiting, StageSuccess}, s.stages)
	s.Len(s.client.StatusCalls(), 3)
	s.Equal([]time.Duration{DefaultPollInterval, DefaultPollInterval}, s.waiter.waits)

	s.Require().Len(s.txs, 1)
	s.Equal(types.BridgeTransaction{
		Hash:          txHash,
		Status:        types.TransactionPending,
		SourceChainID: 8453,
		DestChainID:   143,
		Amount:        "50",
	}, s.txs[0])
}

func (s *ExecutorSuite) TestTransactionPublishedBeforePolling() {
	var callsAtPublish = -1
	e := NewExecutor(s.client, s.cfg, Options{Wait: s.waiter.wait}, nil, logrus.New()).WithHooks(Hooks{
		OnTransaction: func(types.BridgeTransaction) { callsAtPublish = len(s.client.StatusCalls()) },
	})
	s.client.StatusFunc = aggregatortest.Status(aggregator.StatusDone)

	e.Execute(context.Background(), testQuote())
	s.Equal(0, callsAtPublish)
}

func (s *ExecutorSuite) TestOptimisticSuccessAfterBudget() {
	res := s.executor().Execute(context.Background(), testQuote())

	s.Equal(StageSuccess, res.Status)
	s.True(res.Optimistic)
	s.Nil(res.Err)
	s.Len(s.client.StatusCalls(), DefaultMaxAttempts)
	s.Equal(DefaultMaxAttempts-1, s.waiter.count())
	for _, d := range s.waiter.waits {
		s.GreaterOrEqual(d, 5*time.Second)
	}
	s.Equal(types.TransactionSuccess, res.Transaction.Status)
}

func (s *ExecutorSuite) TestFailedStatusStopsImmediately() {
	s.client.StatusFunc = func(_ context.Context, _ aggregator.StatusRequest, attempt int) (*aggregator.StatusResponse, error) {
		if attempt == 3 {
			return &aggregator.StatusResponse{Status: aggregator.StatusFailed}, nil
		}
		return &aggregator.StatusResponse{Status: aggregator.StatusPending}, nil
	}

	res := s.executor().Execute(context.Background(), testQuote())

	s.Equal(StageFailed, res.Status)
	s.Require().NotNil(res.Err)
	s.Equal(bridgeerr.BridgeExecutionFailed, res.Err.Category)
	s.Equal(bridgeerr.MessageBridgeFailed, res.Err.Message)
	s.Len(s.client.StatusCalls(), 3)
	s.Equal(txHash, res.Hash)
	s.Equal(types.TransactionFailed, res.Transaction.Status)
	s.Equal([]Stage{StageApproving, StageBridging, StageWaiting, StageFailed}, s.stages)
}

func (s *ExecutorSuite) TestTransportErrorsAreSwallowed() {
	s.client.StatusFunc = func(_ context.Context, _ aggregator.StatusRequest, attempt int) (*aggregator.StatusResponse, error) {
		if attempt < 4 {
			return nil, errors.New("dial tcp: connection reset")
		}
		return &aggregator.StatusResponse{Status: aggregator.StatusDone}, nil
	}

	res := s.executor().Execute(context.Background(), testQuote())

	s.Equal(StageSuccess, res.Status)
	s.False(res.Optimistic)
	s.Len(s.client.StatusCalls(), 4)
}

func (s *ExecutorSuite) TestTransportErrorsCountTowardsBudget() {
	s.client.StatusFunc = func(context.Context, aggregator.StatusRequest, int) (*aggregator.StatusResponse, error) {
		return nil, errors.New("timeout")
	}

	res := s.executor().Execute(context.Background(), testQuote())

	s.True(res.Optimistic)
	s.Len(s.client.StatusCalls(), DefaultMaxAttempts)
}

func (s *ExecutorSuite) TestUserRejectionIsCancelled() {
	s.client.ExecuteFunc = func(context.Context, any, aggregator.ExecutionHooks) error {
		inner := errors.New("User rejected the request.")
		return fmt.Errorf("execution failed: %w", fmt.Errorf("wallet: %w", inner))
	}

	res := s.executor().Execute(context.Background(), testQuote())

	s.Equal(StageCancelled, res.Status)
	s.Require().NotNil(res.Err)
	s.Equal(bridgeerr.Cancelled, res.Err.Category)
	s.Equal(bridgeerr.MessageCancelled, res.Err.Message)
	s.Empty(res.Hash)
	s.Nil(res.Transaction)
	s.Empty(s.client.StatusCalls())
	s.Equal([]Stage{StageApproving, StageCancelled}, s.stages)
}

func (s *ExecutorSuite) TestSubmissionErrorAfterHashMarksTransactionFailed() {
	s.client.ExecuteFunc = func(_ context.Context, _ any, hooks aggregator.ExecutionHooks) error {
		hooks.Notify(aggregatortest.Submitted(txHash))
		return errors.New("insufficient funds for gas * price + value")
	}

	res := s.executor().Execute(context.Background(), testQuote())

	s.Equal(StageFailed, res.Status)
	s.Equal(bridgeerr.InsufficientFunds, res.Err.Category)
	s.Equal(txHash, res.Hash)
	s.Equal(types.TransactionFailed, res.Transaction.Status)
	s.Len(s.txs, 1)
}

func (s *ExecutorSuite) TestNoHashIsExecutionFailure() {
	s.client.ExecuteFunc = func(context.Context, any, aggregator.ExecutionHooks) error { return nil }

	res := s.executor().Execute(context.Background(), testQuote())

	s.Equal(StageFailed, res.Status)
	s.Equal(bridgeerr.BridgeExecutionFailed, res.Err.Category)
	s.Empty(s.client.StatusCalls())
}

func (s *ExecutorSuite) TestFirstHashWins() {
	s.client.ExecuteFunc = func(_ context.Context, _ any, hooks aggregator.ExecutionHooks) error {
		hooks.Notify(aggregatortest.Submitted(txHash))
		hooks.Notify(aggregatortest.Submitted("0xother"))
		return nil
	}
	s.client.StatusFunc = aggregatortest.Status(aggregator.StatusDone)

	res := s.executor().Execute(context.Background(), testQuote())

	s.Equal(txHash, res.Hash)
	s.Len(s.txs, 1)
}

func (s *ExecutorSuite) TestRateUpdatesAccepted() {
	var accepted bool
	s.client.ExecuteFunc = func(_ context.Context, _ any, hooks aggregator.ExecutionHooks) error {
		accepted = hooks.AcceptRate("100", "90")
		hooks.Notify(aggregatortest.Submitted(txHash))
		return nil
	}
	s.client.StatusFunc = aggregatortest.Status(aggregator.StatusDone)

	s.executor().Execute(context.Background(), testQuote())
	s.True(accepted)
}

func (s *ExecutorSuite) TestCancelWhilePollingAbandons() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.client.StatusFunc = func(_ context.Context, _ aggregator.StatusRequest, attempt int) (*aggregator.StatusResponse, error) {
		if attempt == 2 {
			cancel()
		}
		return &aggregator.StatusResponse{Status: aggregator.StatusPending}, nil
	}

	res := s.executor().Execute(ctx, testQuote())

	s.True(res.Abandoned)
	s.Nil(res.Err)
	s.Equal(StageWaiting, res.Status)
	s.Equal(txHash, res.Hash)
	s.Len(s.client.StatusCalls(), 2)
	s.Equal([]Stage{StageApproving, StageBridging, StageWaiting}, s.stages)
}

func (s *ExecutorSuite) TestSubmissionIgnoresCancellation() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var submitCtxErr error = errors.New("not called")
	s.client.ExecuteFunc = func(ctx context.Context, _ any, hooks aggregator.ExecutionHooks) error {
		submitCtxErr = ctx.Err()
		hooks.Notify(aggregatortest.Submitted(txHash))
		return nil
	}

	res := s.executor().Execute(ctx, testQuote())

	s.NoError(submitCtxErr)
	s.True(res.Abandoned)
	s.Len(s.txs, 1, "the hash is still published")
	s.Empty(s.client.StatusCalls())
}

func (s *ExecutorSuite) TestWalletNotConnected() {
	s.cfg.Disconnect()

	res := s.executor().Execute(context.Background(), testQuote())

	s.Equal(StageFailed, res.Status)
	s.Equal(bridgeerr.WalletNotConnected, res.Err.Category)
	s.Equal(0, s.client.Executions())
	s.Equal([]Stage{StageFailed}, s.stages)
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	require.NoError(t, sleepContext(context.Background(), time.Millisecond))
}

func TestStageTerminal(t *testing.T) {
	assert.False(t, StageWaiting.Terminal())
	assert.True(t, StageSuccess.Terminal())
	assert.True(t, StageCancelled.Terminal())
	assert.True(t, StageFailed.Terminal())
}
