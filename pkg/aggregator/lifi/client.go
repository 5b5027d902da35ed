package lifi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"teleport/pkg/aggregator"
)

const (
	DefaultBaseURL = "https://li.quest"
	apiKeyHeader   = "x-lifi-api-key"
	requestTimeout = 30 * time.Second
)

// Client talks to the LI.FI REST API and executes its routes on EVM chains
type Client struct {
	baseURL string
	http    *http.Client
	cfg     *aggregator.Config
	log     logrus.FieldLogger
}

var _ aggregator.Client = (*Client)(nil)

// NewClient creates a LI.FI client. httpClient may be nil.
func NewClient(cfg *aggregator.Config, baseURL string, httpClient *http.Client, log logrus.FieldLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		cfg:     cfg,
		log:     log.WithField("aggregator", "lifi"),
	}
}

func (c *Client) Name() string {
	return "lifi"
}

// GetQuote requests a single-step route from /v1/quote
func (c *Client) GetQuote(ctx context.Context, req aggregator.QuoteRequest) (*aggregator.Estimate, error) {
	step, err := c.fetchQuote(ctx, req)
	if err != nil {
		return nil, err
	}

	gasCost := "0"
	if len(step.Estimate.GasCosts) > 0 && step.Estimate.GasCosts[0].Amount != "" {
		gasCost = step.Estimate.GasCosts[0].Amount
	}

	tool := step.ToolDetails.Name
	if tool == "" {
		tool = step.Tool
	}

	return &aggregator.Estimate{
		ToAmount:    step.Estimate.ToAmount,
		ToAmountMin: step.Estimate.ToAmountMin,
		GasCost:     gasCost,
		Duration:    int(math.Ceil(step.Estimate.ExecutionDuration)),
		Tool:        tool,
		Route:       step,
	}, nil
}

func (c *Client) fetchQuote(ctx context.Context, req aggregator.QuoteRequest) (*Step, error) {
	params := url.Values{}
	params.Set("fromChain", strconv.FormatInt(req.FromChain, 10))
	params.Set("toChain", strconv.FormatInt(req.ToChain, 10))
	params.Set("fromToken", req.FromToken)
	params.Set("toToken", req.ToToken)
	params.Set("fromAmount", req.FromAmount)
	params.Set("fromAddress", req.FromAddress)
	params.Set("toAddress", req.ToAddress)
	params.Set("integrator", c.cfg.Integrator)

	var step Step
	if _, err := c.get(ctx, "/v1/quote", params, &step); err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return &step, nil
}

// GetStatus looks up a cross-chain transfer by source transaction hash
func (c *Client) GetStatus(ctx context.Context, req aggregator.StatusRequest) (*aggregator.StatusResponse, error) {
	params := url.Values{}
	params.Set("txHash", req.TxHash)
	params.Set("fromChain", strconv.FormatInt(req.FromChain, 10))
	params.Set("toChain", strconv.FormatInt(req.ToChain, 10))

	var resp statusResponse
	code, err := c.get(ctx, "/v1/status", params, &resp)
	if code == http.StatusNotFound {
		return &aggregator.StatusResponse{Status: aggregator.StatusNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	return &aggregator.StatusResponse{
		Status:    aggregator.Status(resp.Status),
		Substatus: resp.Substatus,
	}, nil
}

// get performs a GET and decodes a JSON body into out. The status code is
// returned even when err is non-nil.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) (int, error) {
	endpoint := c.baseURL + path + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set(apiKeyHeader, c.cfg.APIKey)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return httpResp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var apiErr errorResponse
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return httpResp.StatusCode, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, apiErr.Message)
		}
		return httpResp.StatusCode, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return httpResp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return httpResp.StatusCode, nil
}

// parseQuantity accepts 0x-prefixed hex or decimal; empty is zero
func parseQuantity(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	return v, nil
}
