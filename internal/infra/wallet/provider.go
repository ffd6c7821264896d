// Package wallet implements the wallet provider capability: account and
// chain queries against an EIP-1193 style JSON-RPC endpoint, plus
// accountsChanged/chainChanged notifications.
package wallet

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/epicmint/internal/infra/rpc"
)

// Event names a provider-level notification.
type Event string

const (
	EventAccountsChanged Event = "accountsChanged"
	EventChainChanged    Event = "chainChanged"
)

// Notification carries a fresh value snapshot for an Event. Accounts is set
// for EventAccountsChanged, ChainID for EventChainChanged.
type Notification struct {
	Event    Event
	Accounts []string
	ChainID  string
}

// Handler receives notifications in the order the provider emits them.
type Handler func(Notification)

// Subscription is a registered handler. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Provider is the wallet bridge.
type Provider interface {
	// RequestAccounts returns the already-authorized accounts without prompting
	RequestAccounts(ctx context.Context) ([]string, error)

	// RequestAuthorization asks the wallet to authorize accounts (may prompt)
	RequestAuthorization(ctx context.Context) ([]string, error)

	// ChainID returns the active chain id in hex form
	ChainID(ctx context.Context) (string, error)

	// On registers a handler for the event
	On(event Event, handler Handler) Subscription
}

// Config holds wallet endpoint settings. An empty URL means no provider is
// available.
type Config struct {
	URL          string        `yaml:"url"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Lookup returns the provider described by cfg, or false when none is
// configured. The result is never a typed nil.
func Lookup(cfg Config, log *slog.Logger) (Provider, bool) {
	if cfg.URL == "" {
		return nil, false
	}
	client := rpc.NewHTTPClient("wallet", cfg.URL, cfg.Timeout)
	return NewRPCProvider(client, cfg.PollInterval, log), true
}
