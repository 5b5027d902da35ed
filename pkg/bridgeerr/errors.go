package bridgeerr

import (
	"errors"
	"fmt"
)

type Category string

// The wallet has no connected account to quote or sign with
const WalletNotConnected Category = "WalletNotConnected"

// The aggregator could not produce a quote
const QuoteUnavailable Category = "QuoteUnavailable"

// The account cannot cover the amount or the gas
const InsufficientFunds Category = "InsufficientFunds"

// A transport problem; nothing may be wrong with the transaction itself
const NetworkError Category = "NetworkError"

// The route moved beyond the accepted slippage
const PriceChanged Category = "PriceChanged"

// The user declined to sign
const Cancelled Category = "Cancelled"

// The destination chain reported the bridge as failed
const BridgeExecutionFailed Category = "BridgeExecutionFailed"

// No outcome for this error known
const Unknown Category = "Unknown"

// Error is a classified failure. Message is safe to show to the user; Cause
// keeps the original error for logs.
type Error struct {
	Category Category
	Message  string
	Cause    error
}

var _ error = &Error{}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCancelled reports whether the failure should land on the cancelled view
func (e *Error) IsCancelled() bool {
	return e != nil && e.Category == Cancelled
}

func New(category Category, message string, cause error) *Error {
	return &Error{
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}

func Errorf(category Category, format string, args ...interface{}) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

func WalletNotConnectedf(format string, args ...interface{}) *Error {
	return Errorf(WalletNotConnected, format, args...)
}

// QuoteUnavailableWrap keeps the aggregator failure as the cause
func QuoteUnavailableWrap(cause error) *Error {
	msg := "Unable to get a quote"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return New(QuoteUnavailable, msg, cause)
}

// CategoryOf returns the category of the first classified error in the
// chain, or an empty category when there is none.
func CategoryOf(err error) Category {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Category
	}
	return ""
}
