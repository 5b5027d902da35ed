// Package dialog models the bridge dialog as a pure reducer over State plus a
// Session that feeds it events from balance reads, quotes and executions.
package dialog

import (
	"errors"
	"fmt"

	"teleport/pkg/amount"
	"teleport/pkg/types"
)

// ErrIllegalTransition is returned when an event is not valid in the current view
var ErrIllegalTransition = errors.New("illegal dialog transition")

type View string

const (
	ViewLoading    View = "loading"
	ViewBalances   View = "balances"
	ViewAmount     View = "amount"
	ViewConfirm    View = "confirm"
	ViewProcessing View = "processing"
	ViewSuccess    View = "success"
	ViewCancelled  View = "cancelled"
	ViewError      View = "error"
)

// State is everything the dialog shows. Amount is always the decimal string
// the user typed; Balances is the full snapshot including empty balances.
type State struct {
	View            View
	SelectedChainID int64
	SelectedAsset   string
	Amount          string
	Quote           *types.Quote
	TxHash          string
	Err             error
	Balances        []types.TokenBalance
}

// Initial is the state a dialog opens and resets into
func Initial() State {
	return State{View: ViewLoading}
}

// SelectedBalance returns the balance the user picked, if any
func (s State) SelectedBalance() (types.TokenBalance, bool) {
	for _, b := range s.Balances {
		if b.ChainID == s.SelectedChainID && b.Asset == s.SelectedAsset {
			return b, true
		}
	}
	return types.TokenBalance{}, false
}

// Event is anything Reduce accepts
type Event interface {
	eventName() string
}

type BalancesLoaded struct{ Balances []types.TokenBalance }
type BalancesFailed struct{ Err error }
type SourceSelected struct {
	ChainID int64
	Asset   string
}
type AmountChanged struct{ Amount string }
type QuoteReceived struct{ Quote *types.Quote }
type QuoteFailed struct{ Err error }
type Confirmed struct{}
type TxSubmitted struct{ Hash string }
type ExecutionSucceeded struct{ Hash string }
type ExecutionCancelled struct{ Err error }
type ExecutionFailed struct{ Err error }
type Retried struct{}
type Back struct{}
type Reset struct{}

func (BalancesLoaded) eventName() string     { return "BalancesLoaded" }
func (BalancesFailed) eventName() string     { return "BalancesFailed" }
func (SourceSelected) eventName() string     { return "SourceSelected" }
func (AmountChanged) eventName() string      { return "AmountChanged" }
func (QuoteReceived) eventName() string      { return "QuoteReceived" }
func (QuoteFailed) eventName() string        { return "QuoteFailed" }
func (Confirmed) eventName() string          { return "Confirmed" }
func (TxSubmitted) eventName() string        { return "TxSubmitted" }
func (ExecutionSucceeded) eventName() string { return "ExecutionSucceeded" }
func (ExecutionCancelled) eventName() string { return "ExecutionCancelled" }
func (ExecutionFailed) eventName() string    { return "ExecutionFailed" }
func (Retried) eventName() string            { return "Retried" }
func (Back) eventName() string               { return "Back" }
func (Reset) eventName() string              { return "Reset" }

// Reduce applies ev to s. On error the returned state is s unchanged.
func Reduce(s State, ev Event) (State, error) {
	if _, ok := ev.(Reset); ok {
		return Initial(), nil
	}

	next := s
	switch s.View {
	case ViewLoading:
		switch e := ev.(type) {
		case BalancesLoaded:
			if len(e.Balances) == 0 {
				return s, illegal(s, ev)
			}
			next.View = ViewBalances
			next.Balances = e.Balances
			next.Err = nil
			return next, nil
		case BalancesFailed:
			next.View = ViewError
			next.Err = e.Err
			return next, nil
		}

	case ViewBalances:
		if e, ok := ev.(SourceSelected); ok {
			next.SelectedChainID = e.ChainID
			next.SelectedAsset = e.Asset
			b, found := next.SelectedBalance()
			if !found || !b.HasFunds() {
				return s, illegal(s, ev)
			}
			next.View = ViewAmount
			next.Amount = ""
			next.Quote = nil
			next.Err = nil
			return next, nil
		}

	case ViewAmount:
		switch e := ev.(type) {
		case AmountChanged:
			if !amount.IsPartialNumeric(e.Amount) {
				return s, illegal(s, ev)
			}
			next.Amount = e.Amount
			next.Quote = nil
			next.Err = nil
			return next, nil
		case QuoteReceived:
			if e.Quote == nil {
				return s, illegal(s, ev)
			}
			next.View = ViewConfirm
			next.Quote = e.Quote
			next.Err = nil
			return next, nil
		case QuoteFailed:
			next.Quote = nil
			next.Err = e.Err
			return next, nil
		case Back:
			next.View = ViewBalances
			next.Quote = nil
			next.Err = nil
			return next, nil
		}

	case ViewConfirm:
		switch ev.(type) {
		case Confirmed:
			if s.Quote == nil {
				return s, illegal(s, ev)
			}
			next.View = ViewProcessing
			next.TxHash = ""
			next.Err = nil
			return next, nil
		case Back:
			next.View = ViewAmount
			next.Quote = nil
			next.Err = nil
			return next, nil
		}

	case ViewProcessing:
		switch e := ev.(type) {
		case TxSubmitted:
			next.TxHash = e.Hash
			return next, nil
		case ExecutionSucceeded:
			next.View = ViewSuccess
			if e.Hash != "" {
				next.TxHash = e.Hash
			}
			return next, nil
		case ExecutionCancelled:
			next.View = ViewCancelled
			next.Err = e.Err
			return next, nil
		case ExecutionFailed:
			next.View = ViewError
			next.Err = e.Err
			return next, nil
		}

	case ViewError, ViewCancelled:
		if _, ok := ev.(Retried); ok {
			if s.Quote == nil {
				return s, illegal(s, ev)
			}
			next.View = ViewConfirm
			next.Err = nil
			return next, nil
		}
	}

	return s, illegal(s, ev)
}

func illegal(s State, ev Event) error {
	return fmt.Errorf("%w: %s in %s", ErrIllegalTransition, ev.eventName(), s.View)
}
