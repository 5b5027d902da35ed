// Package aggregatortest provides a scriptable aggregator.Client for tests.
package aggregatortest

import (
	"context"
	"sync"

	"teleport/pkg/aggregator"
)

// Client delegates to the funcs that are set; unset funcs succeed with
// empty results. Status attempts are numbered from 1.
type Client struct {
	QuoteFunc   func(ctx context.Context, req aggregator.QuoteRequest) (*aggregator.Estimate, error)
	ExecuteFunc func(ctx context.Context, route any, hooks aggregator.ExecutionHooks) error
	StatusFunc  func(ctx context.Context, req aggregator.StatusRequest, attempt int) (*aggregator.StatusResponse, error)

	mu            sync.Mutex
	quoteRequests []aggregator.QuoteRequest
	statusCalls   []aggregator.StatusRequest
	executions    int
}

var _ aggregator.Client = (*Client)(nil)

func (c *Client) Name() string {
	return "fake"
}

func (c *Client) GetQuote(ctx context.Context, req aggregator.QuoteRequest) (*aggregator.Estimate, error) {
	c.mu.Lock()
	c.quoteRequests = append(c.quoteRequests, req)
	c.mu.Unlock()

	if c.QuoteFunc == nil {
		return &aggregator.Estimate{}, nil
	}
	return c.QuoteFunc(ctx, req)
}

func (c *Client) GetStatus(ctx context.Context, req aggregator.StatusRequest) (*aggregator.StatusResponse, error) {
	c.mu.Lock()
	c.statusCalls = append(c.statusCalls, req)
	attempt := len(c.statusCalls)
	c.mu.Unlock()

	if c.StatusFunc == nil {
		return &aggregator.StatusResponse{Status: aggregator.StatusPending}, nil
	}
	return c.StatusFunc(ctx, req, attempt)
}

func (c *Client) ExecuteRoute(ctx context.Context, route any, hooks aggregator.ExecutionHooks) error {
	c.mu.Lock()
	c.executions++
	c.mu.Unlock()

	if c.ExecuteFunc == nil {
		return nil
	}
	return c.ExecuteFunc(ctx, route, hooks)
}

func (c *Client) QuoteRequests() []aggregator.QuoteRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]aggregator.QuoteRequest, len(c.quoteRequests))
	copy(out, c.quoteRequests)
	return out
}

func (c *Client) StatusCalls() []aggregator.StatusRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]aggregator.StatusRequest, len(c.statusCalls))
	copy(out, c.statusCalls)
	return out
}

func (c *Client) Executions() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.executions
}

// Submitted builds the progress update an adapter sends once the bridge
// transaction is broadcast
func Submitted(txHash string) aggregator.RouteUpdate {
	return aggregator.RouteUpdate{Steps: []aggregator.Step{{
		Execution: &aggregator.Execution{
			Status: aggregator.ExecutionPending,
			Process: []aggregator.Process{{
				Type:   aggregator.ProcessCrossChain,
				Status: aggregator.ExecutionPending,
				TxHash: txHash,
			}},
		},
	}}}
}

// Status is a StatusFunc that always answers s
func Status(s aggregator.Status) func(context.Context, aggregator.StatusRequest, int) (*aggregator.StatusResponse, error) {
	return func(context.Context, aggregator.StatusRequest, int) (*aggregator.StatusResponse, error) {
		return &aggregator.StatusResponse{Status: s}, nil
	}
}
