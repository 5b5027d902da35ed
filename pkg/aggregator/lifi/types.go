package lifi

// Step is the route object returned by /v1/quote. It is used as the route
// handle for ExecuteRoute.
type Step struct {
	ID                 string              `json:"id"`
	Type               string              `json:"type"`
	Tool               string              `json:"tool"`
	ToolDetails        ToolDetails         `json:"toolDetails"`
	Action             Action              `json:"action"`
	Estimate           StepEstimate        `json:"estimate"`
	TransactionRequest *TransactionRequest `json:"transactionRequest,omitempty"`
}

type ToolDetails struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	LogoURI string `json:"logoURI"`
}

type Token struct {
	Address  string `json:"address"`
	ChainID  int64  `json:"chainId"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type Action struct {
	FromChainID int64  `json:"fromChainId"`
	ToChainID   int64  `json:"toChainId"`
	FromToken   Token  `json:"fromToken"`
	ToToken     Token  `json:"toToken"`
	FromAmount  string `json:"fromAmount"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
}

type GasCost struct {
	Type      string `json:"type"`
	Amount    string `json:"amount"`
	AmountUSD string `json:"amountUSD"`
}

type StepEstimate struct {
	Tool              string    `json:"tool"`
	ApprovalAddress   string    `json:"approvalAddress"`
	FromAmount        string    `json:"fromAmount"`
	ToAmount          string    `json:"toAmount"`
	ToAmountMin       string    `json:"toAmountMin"`
	ExecutionDuration float64   `json:"executionDuration"`
	GasCosts          []GasCost `json:"gasCosts"`
}

// TransactionRequest carries hex-encoded quantities as LI.FI returns them
type TransactionRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	GasLimit string `json:"gasLimit"`
	GasPrice string `json:"gasPrice"`
	ChainID  int64  `json:"chainId"`
}

type statusResponse struct {
	Status    string `json:"status"`
	Substatus string `json:"substatus"`
}

type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}
