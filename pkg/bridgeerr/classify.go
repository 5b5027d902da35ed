package bridgeerr

import (
	"errors"
	"strings"
)

// Signing libraries attach extra context outside Error(); both forms are
// folded into the text the classifier searches.
type detailer interface {
	Details() string
}

type shortMessager interface {
	ShortMessage() string
}

var cancelPhrases = []string{
	"user cancelled",
	"user rejected",
	"user denied",
	"rejected the request",
	"user refused",
	"action_rejected",
	"user declined",
	"cancelled the request",
}

var insufficientFundsPhrases = []string{
	"insufficient funds",
	"insufficient balance",
}

var networkPhrases = []string{
	"network",
	"connection",
	"timeout",
}

var priceChangedPhrases = []string{
	"slippage",
	"price changed",
}

const (
	MessageCancelled         = "Transaction cancelled by user"
	MessageInsufficientFunds = "Insufficient funds for this transaction"
	MessageNetwork           = "Network error. Please check your connection and try again."
	MessagePriceChanged      = "Price changed during transaction. Please try again."
	MessageUnknown           = "Transaction failed. Please try again."
	MessageBridgeFailed      = "Bridge transaction failed"
)

// Classify maps any error into the fixed taxonomy. Errors that are already
// classified pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	msg := strings.ToLower(FullText(err))

	switch {
	case containsAny(msg, cancelPhrases):
		return New(Cancelled, MessageCancelled, err)
	case containsAny(msg, insufficientFundsPhrases):
		return New(InsufficientFunds, MessageInsufficientFunds, err)
	case containsAny(msg, networkPhrases):
		return New(NetworkError, MessageNetwork, err)
	case containsAny(msg, priceChangedPhrases):
		return New(PriceChanged, MessagePriceChanged, err)
	default:
		return New(Unknown, MessageUnknown, err)
	}
}

// FullText concatenates an error's message, the text of every error it
// wraps, and any auxiliary detail fields.
func FullText(err error) string {
	if err == nil {
		return ""
	}

	parts := []string{err.Error()}

	switch wrapped := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range wrapped.Unwrap() {
			parts = append(parts, FullText(inner))
		}
	case interface{ Unwrap() error }:
		if inner := wrapped.Unwrap(); inner != nil {
			parts = append(parts, FullText(inner))
		}
	}

	if d, ok := err.(detailer); ok && d.Details() != "" {
		parts = append(parts, d.Details())
	}
	if s, ok := err.(shortMessager); ok && s.ShortMessage() != "" {
		parts = append(parts, s.ShortMessage())
	}

	return strings.Join(parts, " ")
}

func containsAny(msg string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
