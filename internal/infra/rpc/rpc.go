// Package rpc provides the JSON-RPC transport shared by the wallet provider
// and the contract binding.
//
// Results are returned as decoded JSON values (string, map[string]any,
// []any, ...), the same shape the EVM adapters parse with hex helpers.
package rpc

import (
	"context"
	"errors"
	"fmt"
)

// Client makes JSON-RPC calls.
type Client interface {
	// Call makes a single RPC request
	Call(ctx context.Context, method string, params []any) (any, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, method string, params []any) (any, error)

func (f ClientFunc) Call(ctx context.Context, method string, params []any) (any, error) {
	return f(ctx, method, params)
}

// CodeUserRejected is the EIP-1193 code for a request the user declined.
const CodeUserRejected = 4001

// Error is a JSON-RPC error object returned by the endpoint.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsUserRejected reports whether err carries the EIP-1193 user rejection code.
func IsUserRejected(err error) bool {
	var rpcErr *Error
	return errors.As(err, &rpcErr) && rpcErr.Code == CodeUserRejected
}

// Message returns the endpoint's message for RPC errors and err.Error()
// otherwise.
func Message(err error) string {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Message
	}
	return err.Error()
}
