package domain

import "fmt"

// ErrorKind tags a recoverable failure surfaced as state.
type ErrorKind string

const (
	// Connectivity
	ErrorProviderMissing ErrorKind = "provider-missing"
	ErrorNoAccount       ErrorKind = "no-account"
	ErrorWrongNetwork    ErrorKind = "wrong-network"
	ErrorRequestFailed   ErrorKind = "request-failed"

	// Minting
	ErrorNoBinding       ErrorKind = "no-binding"
	ErrorSupplyExhausted ErrorKind = "supply-exhausted"
	ErrorTxRejected      ErrorKind = "tx-rejected"
	ErrorTxFailed        ErrorKind = "tx-failed"
)

var errorMessages = map[ErrorKind]string{
	ErrorProviderMissing: "Make sure you have a connected wallet",
	ErrorNoAccount:       "Make sure you have an account",
	ErrorWrongNetwork:    "You are NOT connected to the right network",
	ErrorRequestFailed:   "Wallet request failed",
	ErrorNoBinding:       "The contract is not available for this account",
	ErrorSupplyExhausted: "We are out of NFTs",
	ErrorTxRejected:      "The transaction was rejected",
	ErrorTxFailed:        "The transaction failed",
}

// Message returns the human-readable message shown for the kind.
func (k ErrorKind) Message() string {
	if msg, ok := errorMessages[k]; ok {
		return msg
	}
	return string(k)
}

// StateError is a tagged error held in ConnectivityState or MintState.
// Detail carries the underlying provider or contract message, if any.
type StateError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
}

func (e *StateError) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// NewStateError builds a StateError with the kind's standard message.
func NewStateError(kind ErrorKind, detail string) *StateError {
	return &StateError{Kind: kind, Message: kind.Message(), Detail: detail}
}

// NewWrongNetworkError names the expected network in the message.
func NewWrongNetworkError(expected ChainID) *StateError {
	return &StateError{
		Kind:    ErrorWrongNetwork,
		Message: fmt.Sprintf("You are NOT connected to %s", expected.Name()),
	}
}

// HasKind reports whether e is of the given kind. A nil error never matches.
func (e *StateError) HasKind(kind ErrorKind) bool {
	return e != nil && e.Kind == kind
}
