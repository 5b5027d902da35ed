package types

// BridgeRequest represents a user's shorthand bridge command
type BridgeRequest struct {
	Amount      string
	Symbol      string
	SourceChain string
}

// Quote is a priced estimate of a transfer to the destination chain.
// It is never modified after the quote service hands it out.
type Quote struct {
	SourceChainID int64
	DestChainID   int64

	// SourceAmount is the decimal amount the user typed, not base units
	SourceAmount string

	// DestAmount and DestAmountMin are base units of the destination asset.
	// DestAmountMin is the slippage floor shown as the worst-case outcome.
	DestAmount    string
	DestAmountMin string
	DestDecimals  int
	DestSymbol    string

	EstimatedGasCost         string
	EstimatedDurationSeconds int
	ProviderName             string

	// RouteHandle is owned by the aggregator client that produced it
	RouteHandle any
}

// EstimatedMinutes rounds the duration estimate up to whole minutes
func (q *Quote) EstimatedMinutes() int {
	return (q.EstimatedDurationSeconds + 59) / 60
}

// TransactionStatus is the lifecycle state of a settlement transaction
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionSuccess TransactionStatus = "success"
	TransactionFailed  TransactionStatus = "failed"
)

// BridgeTransaction is created once the settlement hash is known
type BridgeTransaction struct {
	Hash          string            `json:"hash"`
	Status        TransactionStatus `json:"status"`
	SourceChainID int64             `json:"source_chain_id"`
	DestChainID   int64             `json:"dest_chain_id"`
	Amount        string            `json:"amount"`
}

// TokenBalance is a read-only snapshot of one source token balance
type TokenBalance struct {
	ChainID          int64  `json:"chain_id"`
	ChainName        string `json:"chain_name"`
	RawBalance       string `json:"raw_balance"`
	FormattedBalance string `json:"formatted_balance"`
	TokenAddress     string `json:"token_address"`
	Asset            string `json:"asset"`
	Decimals         int    `json:"decimals"`
	Symbol           string `json:"symbol"`
}

// HasFunds reports whether the raw balance is a positive integer
func (b TokenBalance) HasFunds() bool {
	for _, c := range b.RawBalance {
		if c >= '1' && c <= '9' {
			return true
		}
	}
	return false
}
