package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"teleport/pkg/aggregator"
	"teleport/pkg/amount"
	"teleport/pkg/balance"
	"teleport/pkg/bridge"
	"teleport/pkg/bridgeerr"
	"teleport/pkg/metrics"
	"teleport/pkg/types"
)

var (
	// ErrStale is returned when a result arrives for a superseded request or session
	ErrStale = errors.New("stale dialog result")

	ErrInvalidAmount        = errors.New("Please enter a valid amount")
	ErrAmountExceedsBalance = errors.New("Amount exceeds available balance")
	ErrNoBalances           = errors.New("No balances available")
)

// Preset amount fractions
var (
	Quarter = decimal.NewFromFloat(0.25)
	Half    = decimal.NewFromFloat(0.5)
	Max     = decimal.NewFromInt(1)
)

// Quoter prices a source amount
type Quoter interface {
	RequestQuote(ctx context.Context, sourceChainID int64, sourceAmount, tokenAddress string, tokenDecimals int) (*types.Quote, error)
}

// Callbacks are invoked outside the session lock. Any may be nil.
type Callbacks struct {
	OnSuccess func(txHash, amount string)
	OnError   func(err error)
	OnOpen    func()
	OnClose   func()
	OnChange  func(State)
	OnStage   func(bridge.Stage)
}

// Deps are the collaborators shared by every session
type Deps struct {
	Balances balance.Provider
	Chains   types.ChainSet
	Config   *aggregator.Config
	Quotes   Quoter
	Executor *bridge.Executor
	Metrics  *metrics.BridgeMetrics
}

// Session is one open dialog. Work started by a session (balance reads,
// quotes, executions) only lands if the session's generation is unchanged;
// quotes additionally need the latest quote sequence number.
type Session struct {
	id     string
	deps   Deps
	cb     Callbacks
	log    logrus.FieldLogger
	parent context.Context

	mu         sync.Mutex
	state      State
	ctx        context.Context
	cancel     context.CancelFunc
	generation uint64
	quoteSeq   uint64
	closed     bool

	wg sync.WaitGroup
}

func newSession(parent context.Context, deps Deps, cb Callbacks, log logrus.FieldLogger) *Session {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(parent)

	return &Session{
		id:     id,
		deps:   deps,
		cb:     cb,
		log:    log.WithField("session", id),
		parent: parent,
		state:  Initial(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Session) ID() string {
	return s.id
}

// State returns a snapshot of the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Wait blocks until background work started so far has finished
func (s *Session) Wait() {
	s.wg.Wait()
}

// SelectSource picks the chain and asset to bridge from
func (s *Session) SelectSource(chainID int64, asset string) error {
	return s.dispatch(SourceSelected{ChainID: chainID, Asset: asset}, true)
}

// SetAmount replaces the typed amount
func (s *Session) SetAmount(value string) error {
	return s.dispatch(AmountChanged{Amount: value}, true)
}

// SetAmountFraction sets the amount to a fraction of the selected balance,
// truncated to display precision so it never exceeds the balance
func (s *Session) SetAmountFraction(pct decimal.Decimal) error {
	st := s.State()
	b, ok := st.SelectedBalance()
	if !ok {
		return fmt.Errorf("%w: no source selected", ErrIllegalTransition)
	}

	exact := amount.FromBaseUnitsString(b.RawBalance, b.Decimals)
	return s.SetAmount(amount.Fraction(exact, pct, amount.DisplayPlaces(b.Decimals)))
}

// Back returns to the previous view from amount or confirm
func (s *Session) Back() error {
	return s.dispatch(Back{}, true)
}

// Retry returns to confirm with the held quote after a failure
func (s *Session) Retry() error {
	return s.dispatch(Retried{}, false)
}

// RequestQuote validates the amount and fetches a quote for it. It blocks
// until the quote arrives; a result superseded in the meantime is dropped
// and ErrStale returned.
func (s *Session) RequestQuote() error {
	s.mu.Lock()
	st := s.state
	if st.View != ViewAmount {
		s.mu.Unlock()
		return fmt.Errorf("%w: quote requested in %s", ErrIllegalTransition, st.View)
	}

	b, ok := st.SelectedBalance()
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: no source selected", ErrIllegalTransition)
	}

	if err := validateAmount(st.Amount, b); err != nil {
		s.mu.Unlock()
		_ = s.dispatch(QuoteFailed{Err: err}, false)
		return err
	}

	s.quoteSeq++
	seq, gen, ctx := s.quoteSeq, s.generation, s.ctx
	s.mu.Unlock()

	log := s.log.WithFields(logrus.Fields{
		"chain_id": b.ChainID,
		"asset":    b.Asset,
		"amount":   st.Amount,
	})

	q, err := s.deps.Quotes.RequestQuote(ctx, b.ChainID, st.Amount, b.TokenAddress, b.Decimals)

	s.mu.Lock()
	current := !s.closed && gen == s.generation && seq == s.quoteSeq
	s.mu.Unlock()
	if !current {
		log.Debug("dropping stale quote result")
		return ErrStale
	}

	if err != nil {
		log.WithError(err).Info("quote unavailable")
		if dispatchErr := s.dispatchAt(gen, QuoteFailed{Err: err}); dispatchErr != nil {
			return dispatchErr
		}
		return err
	}

	return s.dispatchAt(gen, QuoteReceived{Quote: q})
}

func validateAmount(value string, b types.TokenBalance) error {
	if !amount.IsNumeric(value) || !amount.IsPositive(value) {
		return ErrInvalidAmount
	}
	if amount.Exceeds(value, amount.FromBaseUnitsString(b.RawBalance, b.Decimals)) {
		return ErrAmountExceedsBalance
	}
	return nil
}

// Confirm starts executing the held quote in the background
func (s *Session) Confirm() error {
	s.mu.Lock()
	gen, ctx, q := s.generation, s.ctx, s.state.Quote
	s.mu.Unlock()

	if err := s.dispatchAt(gen, Confirmed{}); err != nil {
		return err
	}

	exec := s.deps.Executor.WithHooks(bridge.Hooks{
		OnStage: func(stage bridge.Stage) {
			if s.isCurrent(gen) && s.cb.OnStage != nil {
				s.cb.OnStage(stage)
			}
		},
		OnTransaction: func(tx types.BridgeTransaction) {
			_ = s.dispatchAt(gen, TxSubmitted{Hash: tx.Hash})
		},
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := exec.Execute(ctx, q)
		if result.Abandoned {
			s.log.WithField("tx_hash", result.Hash).Debug("execution result discarded")
			return
		}

		var ev Event
		switch {
		case result.Err == nil:
			ev = ExecutionSucceeded{Hash: result.Hash}
		case result.Err.IsCancelled():
			ev = ExecutionCancelled{Err: result.Err}
		default:
			ev = ExecutionFailed{Err: result.Err}
		}

		if err := s.dispatchAt(gen, ev); errors.Is(err, ErrStale) {
			s.log.WithField("tx_hash", result.Hash).Debug("execution result discarded")
		}
	}()

	return nil
}

// Reset abandons in-flight work and reloads balances from scratch
func (s *Session) Reset() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.generation++
	s.quoteSeq++
	s.ctx, s.cancel = context.WithCancel(s.parent)
	s.state, _ = Reduce(s.state, Reset{})
	snapshot := s.state
	s.mu.Unlock()

	if s.cb.OnChange != nil {
		s.cb.OnChange(snapshot)
	}
	s.refreshBalances()
}

// refreshBalances reads every configured balance in the background
func (s *Session) refreshBalances() {
	s.mu.Lock()
	gen, ctx := s.generation, s.ctx
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		account, ok := s.deps.Config.Account()
		if !ok {
			_ = s.dispatchAt(gen, BalancesFailed{Err: bridgeerr.WalletNotConnectedf("Wallet not connected")})
			return
		}

		balances, err := balance.Collect(ctx, s.deps.Balances, s.deps.Chains, account)
		switch {
		case err != nil:
			s.log.WithError(err).Warn("failed to load balances")
			_ = s.dispatchAt(gen, BalancesFailed{Err: fmt.Errorf("failed to load balances: %w", err)})
		case len(balances) == 0:
			_ = s.dispatchAt(gen, BalancesFailed{Err: ErrNoBalances})
		default:
			_ = s.dispatchAt(gen, BalancesLoaded{Balances: balances})
		}
	}()
}

func (s *Session) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.closed && gen == s.generation
}

// dispatch applies ev to the live generation. bumpQuote invalidates any
// quote in flight.
func (s *Session) dispatch(ev Event, bumpQuote bool) error {
	s.mu.Lock()
	gen := s.generation
	if bumpQuote {
		s.quoteSeq++
	}
	s.mu.Unlock()

	return s.dispatchAt(gen, ev)
}

// dispatchAt applies ev only if the session is still on generation gen
func (s *Session) dispatchAt(gen uint64, ev Event) error {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return ErrStale
	}

	prev := s.state
	next, err := Reduce(prev, ev)
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).Debug("event rejected")
		return err
	}
	s.state = next
	s.mu.Unlock()

	s.notify(prev, next)
	return nil
}

func (s *Session) notify(prev, next State) {
	if s.cb.OnChange != nil {
		s.cb.OnChange(next)
	}
	if prev.View == next.View {
		return
	}

	s.log.WithFields(logrus.Fields{
		"from": prev.View,
		"to":   next.View,
	}).Debug("dialog view changed")

	switch next.View {
	case ViewSuccess:
		if s.cb.OnSuccess != nil {
			s.cb.OnSuccess(next.TxHash, next.Amount)
		}
	case ViewError:
		if s.cb.OnError != nil {
			s.cb.OnError(next.Err)
		}
	}
}

// close cancels in-flight work; nothing from this session lands afterwards
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	s.quoteSeq++
	s.cancel()
}
