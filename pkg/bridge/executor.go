// Package bridge drives one quoted transfer from signing to a terminal
// outcome: submission through the aggregator, then bounded polling of the
// destination status.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"teleport/pkg/aggregator"
	"teleport/pkg/bridgeerr"
	"teleport/pkg/metrics"
	"teleport/pkg/types"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 120 // ten minutes at the default interval
)

// Stage is the executor's progress. Stages only move forward.
type Stage string

const (
	StageIdle      Stage = "idle"
	StageApproving Stage = "approving"
	StageBridging  Stage = "bridging"
	StageWaiting   Stage = "waiting"
	StageSuccess   Stage = "success"
	StageFailed    Stage = "failed"
	StageCancelled Stage = "cancelled"
)

var stageOrder = map[Stage]int{
	StageIdle:      0,
	StageApproving: 1,
	StageBridging:  2,
	StageWaiting:   3,
	StageSuccess:   4,
	StageFailed:    4,
	StageCancelled: 4,
}

// Terminal reports whether no further stage can follow
func (s Stage) Terminal() bool {
	return stageOrder[s] == stageOrder[StageSuccess]
}

// Result is the outcome of Execute. Status is a terminal stage unless the
// run was Abandoned because its context was cancelled while polling.
type Result struct {
	Hash        string
	Status      Stage
	Transaction *types.BridgeTransaction
	Err         *bridgeerr.Error

	// Optimistic marks a success assumed after the poll budget ran out
	Optimistic bool
	Abandoned  bool
}

// WaitFunc blocks for d or until ctx is done
type WaitFunc func(ctx context.Context, d time.Duration) error

// Hooks observe an execution as it happens. Either may be nil.
type Hooks struct {
	OnStage       func(Stage)
	OnTransaction func(types.BridgeTransaction)
}

type Options struct {
	PollInterval time.Duration
	MaxAttempts  int
	Wait         WaitFunc
}

type Executor struct {
	client       aggregator.Client
	cfg          *aggregator.Config
	pollInterval time.Duration
	maxAttempts  int
	wait         WaitFunc
	hooks        Hooks
	metrics      *metrics.BridgeMetrics
	log          logrus.FieldLogger
}

func NewExecutor(client aggregator.Client, cfg *aggregator.Config, opts Options, m *metrics.BridgeMetrics, log logrus.FieldLogger) *Executor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Wait == nil {
		opts.Wait = sleepContext
	}

	return &Executor{
		client:       client,
		cfg:          cfg,
		pollInterval: opts.PollInterval,
		maxAttempts:  opts.MaxAttempts,
		wait:         opts.Wait,
		metrics:      m,
		log:          log,
	}
}

// WithHooks returns a copy of the executor that reports to h
func (e *Executor) WithHooks(h Hooks) *Executor {
	cp := *e
	cp.hooks = h
	return &cp
}

// run holds the mutable state of one Execute call
type run struct {
	e     *Executor
	quote *types.Quote
	log   logrus.FieldLogger

	mu    sync.Mutex
	stage Stage
	tx    *types.BridgeTransaction
}

// Execute submits the quote's route and waits for the destination chain.
// Submission ignores ctx cancellation so a signed transfer is never cut
// off half way; polling stops as soon as ctx is done.
func (e *Executor) Execute(ctx context.Context, quote *types.Quote) Result {
	start := time.Now()
	r := &run{
		e:     e,
		quote: quote,
		stage: StageIdle,
		log: e.log.WithFields(logrus.Fields{
			"chain_id":      quote.SourceChainID,
			"dest_chain_id": quote.DestChainID,
			"amount":        quote.SourceAmount,
		}),
	}

	result := r.execute(ctx)

	switch {
	case result.Abandoned:
		e.metrics.RecordExecution(quote.SourceChainID, "abandoned", "", time.Since(start))
	case result.Err != nil:
		e.metrics.RecordExecution(quote.SourceChainID, string(result.Status), string(result.Err.Category), time.Since(start))
	default:
		e.metrics.RecordExecution(quote.SourceChainID, string(result.Status), "", time.Since(start))
	}

	return result
}

func (r *run) execute(ctx context.Context) Result {
	if _, ok := r.e.cfg.Account(); !ok {
		return r.fail(bridgeerr.WalletNotConnectedf("Wallet not connected"))
	}

	r.advance(StageApproving)

	hooks := aggregator.ExecutionHooks{
		UpdateRoute: r.onRouteUpdate,
		AcceptExchangeRateUpdate: func(oldToAmount, newToAmount string) bool {
			r.log.WithFields(logrus.Fields{
				"old_to_amount": oldToAmount,
				"new_to_amount": newToAmount,
			}).Info("accepting exchange rate update")
			return true
		},
	}

	if err := r.e.client.ExecuteRoute(context.WithoutCancel(ctx), r.quote.RouteHandle, hooks); err != nil {
		classified := bridgeerr.Classify(err)
		r.log.WithError(err).WithField("category", classified.Category).Warn("bridge submission failed")
		return r.fail(classified)
	}

	tx := r.transaction()
	if tx == nil {
		return r.fail(bridgeerr.New(bridgeerr.BridgeExecutionFailed, bridgeerr.MessageBridgeFailed,
			errors.New("route finished without a transaction hash")))
	}

	r.advance(StageWaiting)
	return r.poll(ctx, tx.Hash)
}

// onRouteUpdate may be called from the aggregator's goroutine
func (r *run) onRouteUpdate(update aggregator.RouteUpdate) {
	if update.ExecutionStatus() == aggregator.ExecutionPending {
		r.advance(StageBridging)
	}

	hash := update.FirstTxHash()
	if hash == "" {
		return
	}

	r.mu.Lock()
	if r.tx != nil {
		r.mu.Unlock()
		return
	}
	r.tx = &types.BridgeTransaction{
		Hash:          hash,
		Status:        types.TransactionPending,
		SourceChainID: r.quote.SourceChainID,
		DestChainID:   r.quote.DestChainID,
		Amount:        r.quote.SourceAmount,
	}
	published := *r.tx
	r.mu.Unlock()

	r.log.WithField("tx_hash", hash).Info("bridge transaction observed")
	if r.e.hooks.OnTransaction != nil {
		r.e.hooks.OnTransaction(published)
	}
}

func (r *run) poll(ctx context.Context, hash string) Result {
	log := r.log.WithField("tx_hash", hash)
	req := aggregator.StatusRequest{
		TxHash:    hash,
		FromChain: r.quote.SourceChainID,
		ToChain:   r.quote.DestChainID,
	}

	for attempt := 1; attempt <= r.e.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := r.e.wait(ctx, r.e.pollInterval); err != nil {
				return r.abandon(log)
			}
		}
		if ctx.Err() != nil {
			return r.abandon(log)
		}

		resp, err := r.e.client.GetStatus(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return r.abandon(log)
			}
			r.e.metrics.RecordPoll(metrics.PollResultError)
			log.WithError(err).WithField("attempt", attempt).Debug("status check failed, will retry")
			continue
		}

		r.e.metrics.RecordPoll(string(resp.Status))
		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"status":  resp.Status,
		}).Debug("bridge status")

		switch resp.Status {
		case aggregator.StatusDone:
			return r.succeed(false)
		case aggregator.StatusFailed:
			return r.fail(bridgeerr.New(bridgeerr.BridgeExecutionFailed, bridgeerr.MessageBridgeFailed,
				errors.New("destination reported the bridge as failed")))
		}
	}

	log.WithField("attempts", r.e.maxAttempts).Warn("bridge status unconfirmed after all attempts, assuming success")
	return r.succeed(true)
}

// advance moves forward to a stage. Skipped in-flight stages are reported
// on the way so observers see the full sequence; terminal stages are
// reported directly.
func (r *run) advance(to Stage) {
	steps := []Stage{to}
	if !to.Terminal() {
		steps = []Stage{StageApproving, StageBridging, StageWaiting}
	}

	for _, next := range steps {
		if stageOrder[next] > stageOrder[to] {
			continue
		}

		r.mu.Lock()
		if stageOrder[next] <= stageOrder[r.stage] {
			r.mu.Unlock()
			continue
		}
		r.stage = next
		r.mu.Unlock()

		if r.e.hooks.OnStage != nil {
			r.e.hooks.OnStage(next)
		}
	}
}

func (r *run) transaction() *types.BridgeTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tx == nil {
		return nil
	}
	cp := *r.tx
	return &cp
}

func (r *run) settle(status types.TransactionStatus) *types.BridgeTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tx == nil {
		return nil
	}
	r.tx.Status = status
	cp := *r.tx
	return &cp
}

func (r *run) succeed(optimistic bool) Result {
	tx := r.settle(types.TransactionSuccess)
	r.advance(StageSuccess)

	r.log.WithFields(logrus.Fields{
		"tx_hash":    tx.Hash,
		"optimistic": optimistic,
	}).Info("bridge completed")

	return Result{
		Hash:        tx.Hash,
		Status:      StageSuccess,
		Transaction: tx,
		Optimistic:  optimistic,
	}
}

func (r *run) fail(err *bridgeerr.Error) Result {
	tx := r.settle(types.TransactionFailed)

	stage := StageFailed
	if err.IsCancelled() {
		stage = StageCancelled
	}
	r.advance(stage)

	result := Result{Status: stage, Transaction: tx, Err: err}
	if tx != nil {
		result.Hash = tx.Hash
	}
	return result
}

func (r *run) abandon(log logrus.FieldLogger) Result {
	log.Info("bridge polling abandoned")

	tx := r.transaction()
	r.mu.Lock()
	stage := r.stage
	r.mu.Unlock()

	return Result{Hash: tx.Hash, Status: stage, Transaction: tx, Abandoned: true}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
