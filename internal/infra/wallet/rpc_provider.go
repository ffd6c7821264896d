package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/vietddude/epicmint/internal/infra/rpc"
)

// RPCProvider implements Provider over JSON-RPC. Endpoints reached over HTTP
// cannot push events, so a watcher goroutine polls eth_accounts and
// eth_chainId while at least one handler is registered and emits a
// notification whenever a value changes.
type RPCProvider struct {
	client   rpc.Client
	interval time.Duration
	log      *slog.Logger

	mu          sync.Mutex
	nextID      uint64
	subscribers []subscriber
	stopWatch   context.CancelFunc
}

type subscriber struct {
	id      uint64
	event   Event
	handler Handler
}

// NewRPCProvider creates a provider backed by client.
func NewRPCProvider(client rpc.Client, interval time.Duration, log *slog.Logger) *RPCProvider {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &RPCProvider{
		client:   client,
		interval: interval,
		log:      log.With("component", "wallet"),
	}
}

func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	return p.accounts(ctx, "eth_accounts")
}

func (p *RPCProvider) RequestAuthorization(ctx context.Context) ([]string, error) {
	return p.accounts(ctx, "eth_requestAccounts")
}

func (p *RPCProvider) ChainID(ctx context.Context) (string, error) {
	result, err := p.client.Call(ctx, "eth_chainId", nil)
	if err != nil {
		return "", fmt.Errorf("eth_chainId failed: %w", err)
	}
	chainID, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("invalid eth_chainId response: %T", result)
	}
	return chainID, nil
}

func (p *RPCProvider) accounts(ctx context.Context, method string) ([]string, error) {
	result, err := p.client.Call(ctx, method, nil)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", method, err)
	}
	if result == nil {
		return []string{}, nil
	}
	raw, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid %s response: %T", method, result)
	}
	accounts := make([]string, 0, len(raw))
	for _, a := range raw {
		if s, ok := a.(string); ok {
			accounts = append(accounts, s)
		}
	}
	return accounts, nil
}

// On registers handler and starts the watcher if it is not running.
func (p *RPCProvider) On(event Event, handler Handler) Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	p.subscribers = append(p.subscribers, subscriber{id: id, event: event, handler: handler})

	if p.stopWatch == nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.stopWatch = cancel
		go p.watch(ctx)
	}

	var once sync.Once
	return subscriptionFunc(func() {
		once.Do(func() { p.off(id) })
	})
}

// off removes a handler and stops the watcher once none remain. It never
// waits for the watcher, so handlers may unsubscribe from inside a callback.
func (p *RPCProvider) off(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribers = slices.DeleteFunc(p.subscribers, func(s subscriber) bool {
		return s.id == id
	})
	if len(p.subscribers) == 0 && p.stopWatch != nil {
		p.stopWatch()
		p.stopWatch = nil
	}
}

func (p *RPCProvider) watch(ctx context.Context) {
	lastAccounts, accountsErr := p.RequestAccounts(ctx)
	lastChain, chainErr := p.ChainID(ctx)
	haveAccounts, haveChain := accountsErr == nil, chainErr == nil

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		accounts, err := p.RequestAccounts(ctx)
		if err != nil {
			p.log.Debug("poll accounts failed", "error", err)
		} else if !haveAccounts || !slices.Equal(accounts, lastAccounts) {
			changed := haveAccounts
			lastAccounts, haveAccounts = accounts, true
			if changed {
				p.dispatch(ctx, Notification{Event: EventAccountsChanged, Accounts: slices.Clone(accounts)})
			}
		}

		chainID, err := p.ChainID(ctx)
		if err != nil {
			p.log.Debug("poll chain id failed", "error", err)
		} else if !haveChain || chainID != lastChain {
			changed := haveChain
			lastChain, haveChain = chainID, true
			if changed {
				p.dispatch(ctx, Notification{Event: EventChainChanged, ChainID: chainID})
			}
		}
	}
}

// dispatch calls the handlers registered for n.Event at the time of each
// call, so a handler removed by an earlier handler is skipped.
func (p *RPCProvider) dispatch(ctx context.Context, n Notification) {
	p.mu.Lock()
	ids := make([]uint64, 0, len(p.subscribers))
	for _, s := range p.subscribers {
		if s.event == n.Event {
			ids = append(ids, s.id)
		}
	}
	p.mu.Unlock()

	p.log.Debug("provider notification", "event", n.Event, "accounts", n.Accounts, "chain_id", n.ChainID)

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if h := p.handler(id); h != nil {
			h(n)
		}
	}
}

func (p *RPCProvider) handler(id uint64) Handler {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.subscribers {
		if s.id == id {
			return s.handler
		}
	}
	return nil
}

type subscriptionFunc func()

func (f subscriptionFunc) Unsubscribe() { f() }
