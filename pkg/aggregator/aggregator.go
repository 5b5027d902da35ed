// Package aggregator is the boundary to third-party bridge aggregators:
// quoting, route execution with progress updates, and status lookups.
package aggregator

import (
	"context"
)

// Status is the aggregator's view of a cross-chain transfer
type Status string

const (
	StatusDone     Status = "DONE"
	StatusFailed   Status = "FAILED"
	StatusPending  Status = "PENDING"
	StatusNotFound Status = "NOT_FOUND"
)

// Execution statuses reported on route progress
const (
	ExecutionPending = "PENDING"
	ExecutionDone    = "DONE"
	ExecutionFailed  = "FAILED"
)

// Process types reported on route progress
const (
	ProcessTokenAllowance = "TOKEN_ALLOWANCE"
	ProcessSwap           = "SWAP"
	ProcessCrossChain     = "CROSS_CHAIN"
)

// QuoteRequest asks for a route moving FromAmount (base units) of FromToken
type QuoteRequest struct {
	FromChain   int64
	ToChain     int64
	FromToken   string
	ToToken     string
	FromAmount  string
	FromAddress string
	ToAddress   string
}

// Estimate is what an aggregator returns for a QuoteRequest. Route is the
// aggregator's own handle, passed back unchanged to ExecuteRoute.
type Estimate struct {
	ToAmount    string
	ToAmountMin string
	GasCost     string
	Duration    int // seconds
	Tool        string
	Route       any
}

type StatusRequest struct {
	TxHash    string
	FromChain int64
	ToChain   int64
}

type StatusResponse struct {
	Status    Status
	Substatus string
}

// RouteUpdate is a progress snapshot of a route being executed
type RouteUpdate struct {
	Steps []Step
}

type Step struct {
	Execution *Execution
}

type Execution struct {
	Status  string
	Process []Process
}

type Process struct {
	Type   string
	Status string
	TxHash string
}

// FirstTxHash returns the hash of the first process on the first step that has one
func (u RouteUpdate) FirstTxHash() string {
	if len(u.Steps) == 0 || u.Steps[0].Execution == nil {
		return ""
	}
	for _, p := range u.Steps[0].Execution.Process {
		if p.TxHash != "" {
			return p.TxHash
		}
	}
	return ""
}

// ExecutionStatus returns the first step's execution status, if any
func (u RouteUpdate) ExecutionStatus() string {
	if len(u.Steps) == 0 || u.Steps[0].Execution == nil {
		return ""
	}
	return u.Steps[0].Execution.Status
}

// ExecutionHooks are callbacks invoked while a route executes.
// Either may be nil.
type ExecutionHooks struct {
	UpdateRoute              func(RouteUpdate)
	AcceptExchangeRateUpdate func(oldToAmount, newToAmount string) bool
}

// Notify calls UpdateRoute when set
func (h ExecutionHooks) Notify(update RouteUpdate) {
	if h.UpdateRoute != nil {
		h.UpdateRoute(update)
	}
}

// AcceptRate asks whether to proceed after a rate change; nil hook accepts
func (h ExecutionHooks) AcceptRate(oldToAmount, newToAmount string) bool {
	if h.AcceptExchangeRateUpdate == nil {
		return true
	}
	return h.AcceptExchangeRateUpdate(oldToAmount, newToAmount)
}

// Client is implemented by each aggregator adapter
type Client interface {
	Name() string
	GetQuote(ctx context.Context, req QuoteRequest) (*Estimate, error)
	GetStatus(ctx context.Context, req StatusRequest) (*StatusResponse, error)
	ExecuteRoute(ctx context.Context, route any, hooks ExecutionHooks) error
}
