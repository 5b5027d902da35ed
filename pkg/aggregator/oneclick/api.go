package oneclick

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
)

const (
	DefaultBaseURL = "https://1click.chaindefuser.com"

	swapTypeExactInput = "EXACT_INPUT"
	slippageBps        = 100 // 1%
	quoteDeadline      = 24 * time.Hour
)

type token struct {
	AssetID         string
	Blockchain      string
	Symbol          string
	ContractAddress string
	Decimals        int
}

type quoteParams struct {
	OriginAsset      string
	DestinationAsset string
	Amount           string
	RefundTo         string
	Recipient        string
}

type depositQuote struct {
	DepositAddress string
	AmountOut      string
	MinAmountOut   string
	TimeEstimate   float64
}

// api is the slice of the 1Click API the client uses
type api interface {
	Tokens(ctx context.Context) ([]token, error)
	Quote(ctx context.Context, params quoteParams) (*depositQuote, error)
	Status(ctx context.Context, depositAddress string) (string, error)
	SubmitDeposit(ctx context.Context, depositAddress, txHash string) error
}

// sdkAPI implements api on top of the generated 1Click SDK
type sdkAPI struct {
	client   *oneclick.APIClient
	jwtToken string
}

func newSDKAPI(baseURL, jwtToken string) *sdkAPI {
	config := oneclick.NewConfiguration()
	if baseURL != "" {
		config.Servers = oneclick.ServerConfigurations{{URL: baseURL}}
	}

	return &sdkAPI{
		client:   oneclick.NewAPIClient(config),
		jwtToken: jwtToken,
	}
}

// authed attaches the bearer token the SDK reads from the context
func (a *sdkAPI) authed(ctx context.Context) context.Context {
	if a.jwtToken == "" {
		return ctx
	}
	return context.WithValue(ctx, oneclick.ContextAccessToken, a.jwtToken)
}

func (a *sdkAPI) Tokens(ctx context.Context) ([]token, error) {
	resp, httpResp, err := a.client.OneClickAPI.GetTokens(a.authed(ctx)).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	tokens := make([]token, 0, len(resp))
	for _, t := range resp {
		tokens = append(tokens, token{
			AssetID:         t.GetAssetId(),
			Blockchain:      t.GetBlockchain(),
			Symbol:          t.GetSymbol(),
			ContractAddress: t.GetContractAddress(),
			Decimals:        int(t.GetDecimals()),
		})
	}
	return tokens, nil
}

func (a *sdkAPI) Quote(ctx context.Context, params quoteParams) (*depositQuote, error) {
	req := oneclick.NewQuoteRequest(
		false,              // dry: a real quote carries a deposit address
		swapTypeExactInput, // swapType
		slippageBps,        // slippageTolerance
		params.OriginAsset,
		"ORIGIN_CHAIN", // depositType
		params.DestinationAsset,
		params.Amount,
		params.RefundTo,
		"ORIGIN_CHAIN", // refundType
		params.Recipient,
		"DESTINATION_CHAIN", // recipientType
		time.Now().Add(quoteDeadline),
	)

	resp, httpResp, err := a.client.OneClickAPI.GetQuote(a.authed(ctx)).QuoteRequest(*req).Execute()
	if err != nil {
		return nil, apiError(httpResp, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty quote response")
	}

	q := resp.GetQuote()
	return &depositQuote{
		DepositAddress: q.GetDepositAddress(),
		AmountOut:      q.GetAmountOut(),
		MinAmountOut:   q.GetMinAmountOut(),
		TimeEstimate:   float64(q.GetTimeEstimate()),
	}, nil
}

func (a *sdkAPI) Status(ctx context.Context, depositAddress string) (string, error) {
	resp, httpResp, err := a.client.OneClickAPI.GetExecutionStatus(a.authed(ctx)).DepositAddress(depositAddress).Execute()
	if err != nil {
		return "", fmt.Errorf("failed to get status: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}
	return resp.GetStatus(), nil
}

func (a *sdkAPI) SubmitDeposit(ctx context.Context, depositAddress, txHash string) error {
	req := oneclick.NewSubmitDepositTxRequest(depositAddress, txHash)

	_, httpResp, err := a.client.OneClickAPI.SubmitDepositTx(a.authed(ctx)).SubmitDepositTxRequest(*req).Execute()
	if err != nil {
		return fmt.Errorf("failed to submit deposit: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		return fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}
	return nil
}

// apiError pulls the server's message out of a failed response body
func apiError(httpResp *http.Response, err error) error {
	if httpResp == nil {
		return fmt.Errorf("failed to get quote from API: %w", err)
	}
	defer httpResp.Body.Close()

	body, readErr := io.ReadAll(httpResp.Body)
	if readErr != nil || len(body) == 0 {
		return fmt.Errorf("failed to get quote from API (status: %d): %w", httpResp.StatusCode, err)
	}

	var errorResp map[string]interface{}
	if jsonErr := json.Unmarshal(body, &errorResp); jsonErr == nil {
		if message, ok := errorResp["message"].(string); ok {
			return fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, message)
		}
		if errs, ok := errorResp["errors"]; ok {
			return fmt.Errorf("API error (status %d): %v", httpResp.StatusCode, errs)
		}
	}
	return fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(body))
}
